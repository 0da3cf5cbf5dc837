package sanitize

import "testing"

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"trim", "  report.pdf  ", "report.pdf"},
		{"spaces", "my    big   file.txt", "my big file.txt"},
		{"hyphens", "a---b--c.txt", "a-b-c.txt"},
		{"illegal", `a<b>c:d"e|f?g*h.txt`, "abcdefgh.txt"},
		{"slashes", `dir/sub\file.txt`, "dirsubfile.txt"},
		{"control", "bad\x01\x1fname.txt", "badname.txt"},
		{"unicode", "日本語 ファイル.txt", "日本語 ファイル.txt"},
		{"empty", "", Placeholder},
		{"only illegal", "<>?*", Placeholder},
		{"whitespace", "   ", Placeholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.in); got != tt.want {
				t.Errorf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

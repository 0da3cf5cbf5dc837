package sanitize

import (
	"regexp"
	"strings"
)

// Placeholder 清理后为空时使用的文件名
const Placeholder = "unnamed_file"

var (
	multiSpace  = regexp.MustCompile(` +`)
	multiHyphen = regexp.MustCompile(`--+`)
	illegal     = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
)

// Filename 将任意字符串转换为在常见文件系统上安全的文件名，保留 Unicode
func Filename(name string) string {
	s := strings.TrimSpace(name)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiHyphen.ReplaceAllString(s, "-")
	s = illegal.ReplaceAllString(s, "")

	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

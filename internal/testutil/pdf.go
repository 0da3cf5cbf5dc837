// Package testutil 测试用的文件构造工具
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// PDFOptions 构造 PDF 的参数
type PDFOptions struct {
	Pages int
	// PageBytes 每页内容流的大致字节数，用来控制文件大小
	PageBytes int
	Title     string
	Author    string
}

// MinimalPDF 生成一个结构完整的多页 PDF，xref 偏移按实际写入位置计算
//
// Title、Author 非空时写入 Info 字典。每页内容流只包含注释行，不依赖字体资源。
func MinimalPDF(opts PDFOptions) []byte {
	if opts.Pages < 1 {
		opts.Pages = 1
	}

	var buf bytes.Buffer
	var offsets []int

	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// 1: Catalog, 2: Pages, 3..: 每页一个 Page 和一个内容流
	object("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, opts.Pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 200 200] /Resources << >> >>",
		strings.Join(kids, " "), opts.Pages))

	for i := 0; i < opts.Pages; i++ {
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R >>", 4+2*i))
		content := pageContent(i, opts.PageBytes)
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	info := ""
	if opts.Title != "" || opts.Author != "" {
		var fields []string
		if opts.Title != "" {
			fields = append(fields, "/Title ("+escape(opts.Title)+")")
		}
		if opts.Author != "" {
			fields = append(fields, "/Author ("+escape(opts.Author)+")")
		}
		object("<< " + strings.Join(fields, " ") + " >>")
		info = fmt.Sprintf(" /Info %d 0 R", len(offsets))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, info, xref)

	return buf.Bytes()
}

// pageContent 每页不同的注释内容，避免各页内容完全相同
func pageContent(page, size int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%% page %d\n", page+1)

	seed := uint32(page*7919 + 1)
	line := make([]byte, 0, 64)
	for b.Len() < size {
		line = line[:0]
		line = append(line, '%', ' ')
		for len(line) < 63 {
			seed = seed*1664525 + 1013904223
			line = append(line, "0123456789abcdef"[seed>>28])
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

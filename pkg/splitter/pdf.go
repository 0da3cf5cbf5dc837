package splitter

import (
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// pdfDocument 基于 pdfcpu 的 PDF 文档，每次写入都按页码区间裁剪源文件
type pdfDocument struct {
	path  string
	pages int
}

// OpenPDF 打开 PDF 并读取页数
func OpenPDF(path string) (Document, error) {
	// pdfcpu 默认会在用户配置目录写入配置文件
	disableConfigDir.Do(api.DisableConfigDir)

	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取页数失败: %w", err)
	}
	return &pdfDocument{path: path, pages: pages}, nil
}

func (d *pdfDocument) PageCount() int {
	return d.pages
}

func (d *pdfDocument) WriteRange(start, end int, dst string) (int64, error) {
	selection := []string{fmt.Sprintf("%d-%d", start+1, end)}
	if err := api.TrimFile(d.path, dst, selection, model.NewDefaultConfiguration()); err != nil {
		return 0, err
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

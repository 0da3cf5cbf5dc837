package organizer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spf13/afero"
)

const (
	UnknownAuthor = "Unknown_Author"

	// 类型检测读取的文件头大小
	headerSize = 8192
)

var disableConfigDir sync.Once

// Metadata 尽力提取的书目信息
type Metadata struct {
	Title  string
	Author string
}

// Extractor 从文件中提取标题和作者，取不到的字段留空
type Extractor interface {
	Extract(path string) (Metadata, error)
}

// MetadataExtractor 读取文档内嵌的标题和作者
//
// 目前支持 PDF 的 Info 字典；其他格式返回空的 Metadata，由调用方回退到文件名。
type MetadataExtractor struct {
	fs afero.Fs
}

func NewMetadataExtractor(fs afero.Fs) MetadataExtractor {
	return MetadataExtractor{fs: fs}
}

func (e MetadataExtractor) Extract(path string) (Metadata, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return e.pdf(path)
	}
	return Metadata{}, nil
}

func (e MetadataExtractor) pdf(path string) (Metadata, error) {
	file, err := e.fs.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer file.Close()

	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return Metadata{}, fmt.Errorf("读取 PDF 失败: %w", err)
	}
	// Info 字典中的 Title、Author 在校验时解码
	if err := api.ValidateContext(ctx); err != nil {
		return Metadata{}, fmt.Errorf("校验 PDF 失败: %w", err)
	}

	return Metadata{Title: ctx.Title, Author: ctx.Author}, nil
}

// withFallback 标题为空时使用文件名，作者为空时使用 UnknownAuthor
func withFallback(meta Metadata, path string) Metadata {
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Author = strings.TrimSpace(meta.Author)
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if meta.Author == "" {
		meta.Author = UnknownAuthor
	}
	return meta
}

// detectFileType 读取文件头并识别类型
func detectFileType(fs afero.Fs, path string) (types.Type, error) {
	file, err := fs.Open(path)
	if err != nil {
		return types.Unknown, err
	}
	defer file.Close()

	buffer := make([]byte, headerSize)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return types.Unknown, fmt.Errorf("读取文件头部失败: %w", err)
	}

	return filetype.Match(buffer[:n])
}

// extension 返回文件扩展名；没有扩展名时按内容识别，仍无法识别则为空
func extension(fs afero.Fs, path string) string {
	if ext := filepath.Ext(path); ext != "" {
		return ext
	}

	kind, err := detectFileType(fs, path)
	if err != nil || kind == types.Unknown {
		return ""
	}
	return "." + kind.Extension
}

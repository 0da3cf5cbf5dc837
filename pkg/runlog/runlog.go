package runlog

import (
	"bufio"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/internal"
)

// File 一次运行的 UTF-8 日志文件，每行写入后立即刷新
type File struct {
	path   string
	file   afero.File
	writer *bufio.Writer
	mu     sync.Mutex
	closed bool
}

// Create 创建（截断）日志文件
func Create(fs afero.Fs, path string) (*File, error) {
	file, err := fs.Create(path)
	if err != nil {
		return nil, err
	}

	return &File{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (f *File) Path() string {
	return f.path
}

// WriteLine 写入一行并刷新
func (f *File) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	if _, err := f.writer.WriteString(line + "\n"); err != nil {
		return err
	}
	return f.writer.Flush()
}

// Close 刷新缓冲区并关闭文件，可重复调用
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	if err := f.writer.Flush(); err != nil {
		f.file.Close()
		return err
	}
	return f.file.Close()
}

// Sink 把运行日志分发到内存缓冲、日志文件和控制台
type Sink struct {
	appendFn func(lines ...string)
	file     internal.LogWriter
	console  zerolog.Logger
}

// NewSink appendFn 负责写入运行状态中的缓冲区，console 用于终端输出
func NewSink(appendFn func(lines ...string), console zerolog.Logger) *Sink {
	return &Sink{appendFn: appendFn, console: console}
}

// Attach 设置日志文件，之后的每一行都会写入该文件
func (s *Sink) Attach(w internal.LogWriter) {
	s.file = w
}

// Write 按换行拆分消息后分发
func (s *Sink) Write(message string) {
	lines := strings.Split(message, "\n")

	if s.appendFn != nil {
		s.appendFn(lines...)
	}

	for _, line := range lines {
		if s.file != nil {
			if err := s.file.WriteLine(line); err != nil {
				s.console.Error().Err(err).Msgf("写入运行日志失败: %s", s.file.Path())
			}
		}
		if line != "" {
			s.console.Info().Msg(line)
		}
	}
}

// Close 关闭日志文件
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

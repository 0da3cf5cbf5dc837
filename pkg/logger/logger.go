package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// current 全局 logger，未调用 Init 前输出到 io.Discard
var current atomic.Pointer[zerolog.Logger]

func init() {
	discard := zerolog.New(io.Discard)
	current.Store(&discard)
}

// Init 初始化 zerolog 日志
// level: 日志级别 ("trace", "debug", "info", "warn", "error")
// file: 日志文件路径，为空时仅输出到控制台
// console: 为 false 时不写控制台（TUI 占用终端时使用）
func Init(level string, file string, console bool) error {
	var outputs []io.Writer
	if console {
		outputs = append(outputs, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"})
	}

	if file != "" {
		fileWriter, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		outputs = append(outputs, zerolog.ConsoleWriter{Out: fileWriter, NoColor: true, TimeFormat: "2006-01-02 15:04:05"})
	}

	var output io.Writer = io.Discard
	switch len(outputs) {
	case 0:
	case 1:
		output = outputs[0]
	default:
		output = io.MultiWriter(outputs...)
	}

	logger := zerolog.New(output).With().Timestamp().Logger().Level(ParseLevel(level))
	current.Store(&logger)
	return nil
}

// ParseLevel 解析日志级别，无法识别时返回 info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 返回全局 logger 实例，可在任意 goroutine 中调用
// 如果 logger 未初始化，返回输出到 io.Discard 的默认 logger
func Get() *zerolog.Logger {
	return current.Load()
}

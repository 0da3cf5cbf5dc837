package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/moyu-x/data-librarian/pkg/config"
	"github.com/moyu-x/data-librarian/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
	logFile  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "整理文档库：查找重复文件、拆分大 PDF、按作者归档",
	Long: `Data Librarian 是一个用于维护本地文档库的命令行工具。

主要功能:
- 按内容的 SHA-256 摘要查找重复文件，并移动到存放目录（首次出现的文件保留原位）
- 将超过大小上限的 PDF 按页拆分为多个小文件，自动调整每块页数
- 按作者和标题把书籍整理到目标目录
- 提供 HTTP 控制面，可以在后台启动、轮询和取消上述任务`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		file := cfg.Logging.File
		if cmd.Flags().Changed("log-file") {
			file = logFile
		}

		// TUI 占用终端时控制台不输出日志
		useTUI, _ := cmd.Flags().GetBool("tui")
		return logger.Init(level, file, !useTUI)
	},
}

// Execute 由 main.main 调用
func Execute() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认在 $HOME/.data-librarian、当前目录、/etc/data-librarian 中查找 config.yaml）")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "日志级别: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "日志文件路径，为空时只输出到控制台")
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/runctl"
)

var organizeCmd = &cobra.Command{
	Use:   "organize <source>",
	Short: "按作者和标题整理书籍",
	Long: `把源目录中的文件移动到 <dest>/<作者>/<标题><扩展名>。
作者和标题读取自 PDF 的文档信息，缺失时以文件名作为标题，并归入 Unknown_Author。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if dest, _ := cmd.Flags().GetString("dest"); dest != "" {
			cfg.Organizer.Destination = dest
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		return runAndWatch(cmd, svc, internal.KindSort, "书库整理", func() runctl.StartResult {
			return svc.StartSort(args[0], dryRun)
		})
	},
}

func init() {
	organizeCmd.Flags().String("dest", "", "目标目录，相对路径相对于源目录（默认 Organized_Books）")
	organizeCmd.Flags().Bool("dry-run", false, "预览模式，只记录不移动")
	organizeCmd.Flags().Bool("tui", false, "使用终端界面显示进度")

	rootCmd.AddCommand(organizeCmd)
}

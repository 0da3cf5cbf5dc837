package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/runctl"
)

var splitCmd = &cobra.Command{
	Use:   "split <folder>",
	Short: "把超过大小上限的 PDF 拆分为多个小文件",
	Long: `递归查找目录中大于上限的 PDF，按页拆分为 <name>_pages_<start>-<end>.pdf。
某一块超过上限时删除并用更少的页数重试，原文件保持不变。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxMB, _ := cmd.Flags().GetFloat64("max-mb")
		pages, _ := cmd.Flags().GetInt("pages")

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		return runAndWatch(cmd, svc, internal.KindSplit, "PDF 拆分", func() runctl.StartResult {
			return svc.StartSplit(args[0], maxMB, pages)
		})
	},
}

func init() {
	splitCmd.Flags().Float64("max-mb", 0, "每个输出文件的大小上限（MB），0 表示使用配置值")
	splitCmd.Flags().Int("pages", 0, "第一次尝试的每块页数，0 表示使用配置值")
	splitCmd.Flags().Bool("tui", false, "使用终端界面显示进度")

	rootCmd.AddCommand(splitCmd)
}

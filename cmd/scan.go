package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/config"
	"github.com/moyu-x/data-librarian/pkg/runctl"
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "查找重复文件并移动到存放目录",
	Long: `递归遍历根目录，计算每个文件内容的 SHA-256 摘要。
第一次出现的文件保留原位，之后内容相同的文件移动到根目录下的 _DuplicateHoldingBin。
每次运行都会在存放目录中写入一份带时间戳的运行日志。`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("dry-run") {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		cfg.Scanner.MoveDuplicates = !dryRun
	}
	if cmd.Flags().Changed("index") {
		cfg.Index.Backend, _ = cmd.Flags().GetString("index")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	root := ""
	if len(args) > 0 {
		root = args[0]
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	return runAndWatch(cmd, svc, internal.KindScan, "重复文件扫描", func() runctl.StartResult {
		return svc.StartScan(root)
	})
}

func init() {
	scanCmd.Flags().Bool("dry-run", false, "预览模式，只记录重复文件不移动")
	scanCmd.Flags().Bool("tui", false, "使用终端界面显示进度")
	scanCmd.Flags().String("index", config.IndexBackendMemory, "摘要索引: memory 或 sqlite")

	rootCmd.AddCommand(scanCmd)
}

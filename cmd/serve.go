package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 控制面",
	Long: `启动 HTTP 服务，通过 JSON 接口启动、轮询和取消扫描、拆分、整理任务。
每种任务同一时刻只允许一个运行。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		svc, err := newService()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = server.New(cfg.Server.Addr, svc).ListenAndServe(ctx)

		// 请求取消所有仍在进行的运行，再等待它们结束
		svc.CancelScan()
		svc.CancelSplit()
		svc.CancelSort()
		svc.Close()
		logger.Get().Info().Msg("控制面已关闭")
		return err
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "监听地址（默认 :8000）")

	rootCmd.AddCommand(serveCmd)
}

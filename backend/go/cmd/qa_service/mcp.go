package main

import (
	"AskBot/backend/go/internal/qa_service/mcptool"
	"AskBot/backend/go/pkg/logger"
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "以 STDIO 方式运行 MCP 服务，把问答能力暴露为工具",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdout 留给 MCP 协议，日志改写到 stderr。
		logger.InitWithOutput(logger.ParseLevel(cfg.Logger.Level), os.Stderr)

		ctx := context.Background()
		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		return server.ServeStdio(mcptool.NewServer(a.resolver, a.facts))
	},
}

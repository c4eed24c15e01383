package main

import (
	"AskBot/backend/go/internal/config"
	"AskBot/backend/go/pkg/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "qa_service",
	Short:         "Knowledge-base first Q&A service with a Messenger relay",
	Long:          `qa_service 先在人工维护的问答库中精确匹配问题，未命中时调用生成服务，并把 Messenger 消息转发到同一条回答路径。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "qa_service: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "backend/go/internal/config/config.yaml", "配置文件路径")
	rootCmd.AddCommand(serveCmd, importCmd, tokenCmd, missesCmd, mcpCmd)
}

// loadConfig 加载配置并初始化全局日志。
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	return cfg, nil
}

package main

import (
	"AskBot/backend/go/internal/database/kafka"
	"AskBot/backend/go/internal/models"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var missesGroup string

var missesCmd = &cobra.Command{
	Use:   "misses",
	Short: "持续打印知识库未命中的问题，按 Ctrl-C 退出",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Databases.Kafka.Brokers) == 0 {
			return fmt.Errorf("未配置 Kafka brokers")
		}
		client, err := kafka.Connect(&cfg.Databases.Kafka)
		if err != nil {
			return err
		}
		defer client.Close()

		reader := kafka.NewMissReader(client, missesGroup)
		defer reader.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return reader.Each(ctx, func(e models.MissEvent) error {
			_, err := fmt.Fprintf(out, "%s\t%s\t%s\n", e.OccurredAt.Local().Format(time.DateTime), e.Source, e.Question)
			return err
		})
	},
}

func init() {
	missesCmd.Flags().StringVar(&missesGroup, "group", "", "消费者组；为空时从头读取且不提交偏移量")
}

package main

import (
	"AskBot/backend/go/internal/qa_service/api"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "用配置中的密钥签发访问令牌（运维用）",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		role := tokenRole
		if role == "" {
			role = cfg.Auth.AdminRole
		}
		token, err := api.IssueToken(cfg.Auth.JwtSecret, tokenSubject, role, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "令牌主体（用户名）")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "角色，默认为配置中的管理员角色")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "有效期")
}

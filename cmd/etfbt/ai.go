package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/etflab/etf-backtest/internal/ai"
)

func init() {
	rootCmd.AddCommand(aiCmd)
}

var aiCmd = &cobra.Command{
	Use:   "ai <question>",
	Short: "向投资分析助手提问",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		advisor, err := ai.NewAdvisor(cfg.APIKey(), cfg.AI.BaseURL, cfg.AI.Model)
		if err != nil {
			return fmt.Errorf("ai unavailable: %w", err)
		}
		answer, err := advisor.Chat(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

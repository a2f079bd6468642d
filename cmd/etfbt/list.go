package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/etflab/etf-backtest/internal/engine"
)

var listRefresh bool

func init() {
	listCmd.Flags().BoolVar(&listRefresh, "refresh", false, "忽略本地缓存强制刷新")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全市场ETF (30天本地缓存)",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := engine.New(cfg, logger)
		list, err := e.Store().GetInstrumentList(cmd.Context(), listRefresh)
		if err != nil {
			return err
		}
		for _, inst := range list {
			fmt.Printf("%s\t%s\n", inst.Symbol, inst.Name)
		}
		fmt.Printf("total: %d\n", len(list))
		return nil
	},
}

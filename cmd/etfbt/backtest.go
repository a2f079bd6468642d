package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/etflab/etf-backtest/internal/config"
	"github.com/etflab/etf-backtest/internal/engine"
)

var (
	btSymbols   []string
	btWeights   []float64
	btStart     string
	btEnd       string
	btInitial   float64
	btRebalance bool
)

func init() {
	backtestCmd.Flags().StringSliceVar(&btSymbols, "symbols", nil, "标的代码列表 (覆盖配置文件)")
	backtestCmd.Flags().Float64SliceVar(&btWeights, "weights", nil, "目标权重列表 (覆盖配置文件)")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "开始日期 yyyy-mm-dd")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "结束日期 yyyy-mm-dd")
	backtestCmd.Flags().Float64Var(&btInitial, "initial", 0, "初始投入")
	backtestCmd.Flags().BoolVar(&btRebalance, "rebalance", false, "启用年度再平衡")
	rootCmd.AddCommand(backtestCmd)
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "运行组合估值回测 (不再平衡 vs 年度再平衡 vs 等权基准)",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyBacktestFlags(cmd)

		e := engine.New(cfg, logger)
		if _, err := e.Run(cmd.Context()); err != nil {
			return fmt.Errorf("backtest failed: %w", err)
		}
		e.PrintSummary()
		return nil
	},
}

// applyBacktestFlags 命令行参数覆盖配置文件
func applyBacktestFlags(cmd *cobra.Command) {
	if len(btSymbols) > 0 {
		assets := make([]config.AssetConfig, len(btSymbols))
		for i, s := range btSymbols {
			w := 1.0 / float64(len(btSymbols))
			if i < len(btWeights) {
				w = btWeights[i]
			}
			assets[i] = config.AssetConfig{Symbol: s, Weight: w}
		}
		cfg.Assets = assets
	}
	if btStart != "" {
		cfg.Backtest.StartDate = btStart
	}
	if btEnd != "" {
		cfg.Backtest.EndDate = btEnd
	}
	if btInitial > 0 {
		cfg.Backtest.InitialCapital = btInitial
	}
	if cmd.Flags().Changed("rebalance") {
		cfg.Backtest.RebalanceAnnually = btRebalance
	}
}

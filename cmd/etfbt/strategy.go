package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/etflab/etf-backtest/internal/cost"
	"github.com/etflab/etf-backtest/internal/engine"
	"github.com/etflab/etf-backtest/internal/report"
	"github.com/etflab/etf-backtest/internal/strategy"
	"github.com/etflab/etf-backtest/pkg/types"
)

var (
	stSymbols []string
	stStart   string
	stEnd     string

	momWindow    int
	momMAWindow  int
	momPositions int

	rotFreq    string
	rotWindow  int
	rotHold    int
	rotFeeRate float64

	gridWidth   float64
	gridFeeRate float64

	indKind    string
	indWindow  int
	indWindows []int
	indK       float64
)

func init() {
	for _, c := range []*cobra.Command{momentumCmd, rotateCmd, gridCmd, indicatorCmd} {
		c.Flags().StringSliceVar(&stSymbols, "symbols", nil, "标的代码列表")
		c.Flags().StringVar(&stStart, "start", "", "开始日期 yyyy-mm-dd")
		c.Flags().StringVar(&stEnd, "end", "", "结束日期 yyyy-mm-dd")
		c.MarkFlagRequired("symbols")
		c.MarkFlagRequired("start")
		c.MarkFlagRequired("end")
	}

	momentumCmd.Flags().IntVar(&momWindow, "momentum", 20, "动量窗口")
	momentumCmd.Flags().IntVar(&momMAWindow, "ma", 28, "均线窗口")
	momentumCmd.Flags().IntVar(&momPositions, "top", 2, "最大持仓数")

	rotateCmd.Flags().StringVar(&rotFreq, "freq", "M", "调仓频率 M/W/Q")
	rotateCmd.Flags().IntVar(&rotWindow, "momentum", 20, "动量窗口")
	rotateCmd.Flags().IntVar(&rotHold, "top", 2, "持仓数量")
	rotateCmd.Flags().Float64Var(&rotFeeRate, "fee", 0, "换仓费率 (如0.0003)")

	gridCmd.Flags().Float64Var(&gridWidth, "width", 5, "网格宽度 (%)")
	gridCmd.Flags().Float64Var(&gridFeeRate, "fee", 0, "交易费率")

	indicatorCmd.Flags().StringVar(&indKind, "kind", "ma", "指标类型 ma/roc/boll/bias")
	indicatorCmd.Flags().IntVar(&indWindow, "window", 20, "指标窗口")
	indicatorCmd.Flags().IntSliceVar(&indWindows, "windows", nil, "批量回测的窗口列表 (覆盖--window)")
	indicatorCmd.Flags().Float64Var(&indK, "k", 2, "布林带宽度倍数")

	rootCmd.AddCommand(momentumCmd, rotateCmd, gridCmd, indicatorCmd)
}

var momentumCmd = &cobra.Command{
	Use:   "momentum",
	Short: "动量轮动回测 (均线过滤+动量排序)",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseDateRange(stStart, stEnd)
		if err != nil {
			return err
		}

		e := engine.New(cfg, logger)
		warmNames(cmd, e)

		result, err := strategy.SimulateMomentum(cmd.Context(), e.Store(), strategy.MomentumConfig{
			Symbols:        stSymbols,
			Start:          start,
			End:            end,
			MomentumPeriod: momWindow,
			MAPeriod:       momMAWindow,
			MaxPositions:   momPositions,
		})
		if err != nil {
			return fmt.Errorf("momentum simulation failed: %w", err)
		}

		printStrategySummary("Momentum", result.Metrics)
		fmt.Printf("Trades: %d\n", len(result.Trades))

		writer := report.NewWriter(cfg.Output.Dir, cfg.Output.GenerateCharts, logger)
		if err := writer.WriteSeries("momentum", "动量策略净值", []string{"策略净值"},
			[]types.ValueSeries{result.NAV}); err != nil {
			logger.Warn("report export failed", "error", err)
		}
		return writer.WriteJSON("momentum_summary", result)
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "周期轮动回测 (按周/月/季动量排序)",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseDateRange(stStart, stEnd)
		if err != nil {
			return err
		}

		e := engine.New(cfg, logger)
		warmNames(cmd, e)

		result, err := strategy.SimulateRotation(cmd.Context(), e.Store(), strategy.RotationConfig{
			Symbols:        stSymbols,
			Start:          start,
			End:            end,
			MomentumWindow: rotWindow,
			HoldCount:      rotHold,
			Frequency:      strategy.Frequency(rotFreq),
			CostModel:      feeModel(rotFeeRate),
		})
		if err != nil {
			return fmt.Errorf("rotation simulation failed: %w", err)
		}

		printStrategySummary("Rotation", result.Metrics)
		fmt.Printf("Total Fees: %.2f\n", result.TotalFee)

		writer := report.NewWriter(cfg.Output.Dir, cfg.Output.GenerateCharts, logger)
		if err := writer.WriteSeries("rotation", "轮动策略净值", []string{"策略净值"},
			[]types.ValueSeries{result.NAV}); err != nil {
			logger.Warn("report export failed", "error", err)
		}
		return writer.WriteJSON("rotation_summary", result)
	},
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "网格策略回测 (单标的, 年度重设网格)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(stSymbols) != 1 {
			return fmt.Errorf("grid strategy takes exactly one symbol")
		}
		start, end, err := parseDateRange(stStart, stEnd)
		if err != nil {
			return err
		}

		e := engine.New(cfg, logger)
		warmNames(cmd, e)

		result, err := strategy.SimulateGrid(cmd.Context(), e.Store(), strategy.GridConfig{
			Symbol:    stSymbols[0],
			Start:     start,
			End:       end,
			N:         gridWidth,
			CostModel: feeModel(gridFeeRate),
		})
		if err != nil {
			return fmt.Errorf("grid simulation failed: %w", err)
		}

		printStrategySummary("Grid "+result.Name, result.Metrics)
		fmt.Printf("Total Fees: %.4f\n", result.TotalFee)

		writer := report.NewWriter(cfg.Output.Dir, cfg.Output.GenerateCharts, logger)
		if err := writer.WriteSeries("grid", "网格策略净值", []string{"策略净值"},
			[]types.ValueSeries{result.NAV}); err != nil {
			logger.Warn("report export failed", "error", err)
		}
		return writer.WriteJSON("grid_summary", result)
	},
}

var indicatorCmd = &cobra.Command{
	Use:   "indicator",
	Short: "技术指标规则回测 (ma/roc/boll/bias)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(stSymbols) != 1 {
			return fmt.Errorf("indicator backtest takes exactly one symbol")
		}
		start, end, err := parseDateRange(stStart, stEnd)
		if err != nil {
			return err
		}

		e := engine.New(cfg, logger)
		warmNames(cmd, e)

		indCfg := strategy.IndicatorConfig{
			Symbol: stSymbols[0],
			Start:  start,
			End:    end,
			Kind:   strategy.IndicatorKind(indKind),
			N:      indWindow,
			K:      indK,
		}

		if len(indWindows) == 1 {
			indCfg.N = indWindows[0]
		}

		// 多窗口批量回测: 打印对比表后结束
		if len(indWindows) > 1 {
			results := strategy.SweepIndicatorWindows(cmd.Context(), e.Store(), indCfg, indWindows)
			if len(results) == 0 {
				return fmt.Errorf("no window produced a usable backtest")
			}
			fmt.Printf("\n%-8s %10s %10s %10s %8s\n", "window", "total%", "annual%", "maxDD%", "win%")
			for _, r := range results {
				fmt.Printf("%-8d %10.2f %10.2f %10.2f %8.1f\n",
					r.Window, r.TotalReturn, r.AnnualReturn, r.MaxDrawdown, r.WinRate)
			}
			writer := report.NewWriter(cfg.Output.Dir, false, logger)
			return writer.WriteJSON("indicator_sweep", results)
		}

		result, err := strategy.SimulateIndicator(cmd.Context(), e.Store(), indCfg)
		if err != nil {
			return fmt.Errorf("indicator simulation failed: %w", err)
		}

		fmt.Printf("\n========== %s (%s) ==========\n", result.Name, indKind)
		fmt.Printf("Strategy:  total %.2f%%  annual %.2f%%  maxDD %.2f%%  win %.1f%%\n",
			result.TotalReturn, result.AnnualReturn, result.MaxDrawdown, result.WinRate)
		fmt.Printf("Buy&Hold:  total %.2f%%  annual %.2f%%\n", result.BenchTotal, result.BenchAnnual)
		fmt.Printf("Excess Annual: %.2f%%\n", result.Excess)
		fmt.Println("======================================")

		writer := report.NewWriter(cfg.Output.Dir, cfg.Output.GenerateCharts, logger)
		if err := writer.WriteSeries("indicator", "指标策略 vs 买入持有",
			[]string{"策略净值", "买入持有"},
			[]types.ValueSeries{result.NAV, result.Benchmark}); err != nil {
			logger.Warn("report export failed", "error", err)
		}
		return writer.WriteJSON("indicator_summary", result)
	},
}

func printStrategySummary(label string, m types.Metrics) {
	fmt.Printf("\n========== %s Summary ==========\n", label)
	fmt.Printf("Total Return: %.2f%%\n", m.TotalReturn)
	fmt.Printf("Annual Return: %.2f%%\n", m.AnnualReturn)
	fmt.Printf("Volatility: %.2f%%\n", m.Volatility)
	fmt.Printf("Sharpe: %.2f\n", m.Sharpe)
	fmt.Printf("Max Drawdown: %.2f%%\n", m.MaxDrawdown)
}

func feeModel(rate float64) cost.Model {
	if rate <= 0 {
		return cost.ZeroModel{}
	}
	return cost.NewCommissionModel(rate, 0)
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/etflab/etf-backtest/internal/engine"
	"github.com/etflab/etf-backtest/internal/report"
	"github.com/etflab/etf-backtest/internal/strategy"
	"github.com/etflab/etf-backtest/pkg/types"
)

var (
	dcaSymbols []string
	dcaWeights []float64
	dcaStart   string
	dcaEnd     string
	dcaAmount  float64
	dcaDay     int
)

func init() {
	dcaCmd.Flags().StringSliceVar(&dcaSymbols, "symbols", nil, "标的代码列表")
	dcaCmd.Flags().Float64SliceVar(&dcaWeights, "weights", nil, "权重列表 (默认等权)")
	dcaCmd.Flags().StringVar(&dcaStart, "start", "", "开始日期 yyyy-mm-dd")
	dcaCmd.Flags().StringVar(&dcaEnd, "end", "", "结束日期 yyyy-mm-dd")
	dcaCmd.Flags().Float64Var(&dcaAmount, "amount", 1000, "每月定投金额")
	dcaCmd.Flags().IntVar(&dcaDay, "day", 1, "每月定投日 (1-31)")
	dcaCmd.MarkFlagRequired("symbols")
	dcaCmd.MarkFlagRequired("start")
	dcaCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(dcaCmd)
}

var dcaCmd = &cobra.Command{
	Use:   "dca",
	Short: "定投回测 (月度定投, XIRR年化)",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseDateRange(dcaStart, dcaEnd)
		if err != nil {
			return err
		}

		weights := dcaWeights
		if len(weights) == 0 {
			weights = make([]float64, len(dcaSymbols))
			for i := range weights {
				weights[i] = 1.0 / float64(len(dcaSymbols))
			}
		}

		e := engine.New(cfg, logger)
		warmNames(cmd, e)

		result, err := strategy.SimulateDCA(cmd.Context(), e.Store(), strategy.DCAConfig{
			Symbols:       dcaSymbols,
			Weights:       weights,
			Start:         start,
			End:           end,
			MonthlyAmount: dcaAmount,
			InvestDay:     dcaDay,
		})
		if err != nil {
			return fmt.Errorf("dca simulation failed: %w", err)
		}

		fmt.Println("\n========== DCA Summary ==========")
		fmt.Printf("Contributions: %d x %.2f\n", len(result.Records), dcaAmount)
		fmt.Printf("Total Invested: %.2f\n", result.TotalInvested)
		fmt.Printf("Final Value: %.2f\n", result.FinalValue)
		fmt.Printf("Simple Return: %.2f%%\n", (result.FinalValue/result.TotalInvested-1)*100)
		if result.XIRRFailed {
			fmt.Println("Annualized (XIRR): n/a (solver did not converge)")
		} else {
			fmt.Printf("Annualized (XIRR): %.2f%%\n", result.AnnualizedReturn)
		}
		if len(result.Unavailable) > 0 {
			fmt.Printf("Dropped (no data): %v\n", result.Unavailable)
		}
		fmt.Println("=================================")

		writer := report.NewWriter(cfg.Output.Dir, cfg.Output.GenerateCharts, logger)
		dates := make([]time.Time, len(result.Records))
		invested := make([]float64, len(result.Records))
		values := make([]float64, len(result.Records))
		for i, rec := range result.Records {
			dates[i] = rec.Date
			invested[i] = rec.Invested
			values[i] = rec.Value
		}
		err = writer.WriteSeries("dca", "定投市值与累计投入",
			[]string{"市值", "累计投入"},
			[]types.ValueSeries{
				{Dates: dates, Values: values},
				{Dates: dates, Values: invested},
			})
		if err != nil {
			logger.Warn("report export failed", "error", err)
		}
		return writer.WriteJSON("dca_summary", result)
	},
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s before start date %s", endStr, startStr)
	}
	return start, end, nil
}

// warmNames 预热名称表, 失败不阻断
func warmNames(cmd *cobra.Command, e *engine.BacktestEngine) {
	if _, err := e.Store().GetInstrumentList(cmd.Context(), false); err != nil {
		logger.Warn("instrument list unavailable", "error", err)
	}
}

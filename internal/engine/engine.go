// Package engine 串联配置、行情缓存、组合估值与报告输出的回测工作流
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/etflab/etf-backtest/internal/config"
	"github.com/etflab/etf-backtest/internal/data"
	"github.com/etflab/etf-backtest/internal/metrics"
	"github.com/etflab/etf-backtest/internal/portfolio"
	"github.com/etflab/etf-backtest/internal/report"
	"github.com/etflab/etf-backtest/pkg/types"
)

// BacktestEngine 回测引擎
type BacktestEngine struct {
	cfg    *config.Config
	store  *data.Store
	logger *slog.Logger
	result *Result
}

// Result 一次完整回测的汇总
type Result struct {
	Config     types.BacktestConfig
	Valuation  *portfolio.Result
	Comparison *portfolio.Comparison
	Benchmark  types.Metrics
	RunID      string
}

// New 创建回测引擎
func New(cfg *config.Config, logger *slog.Logger) *BacktestEngine {
	source := data.NewEastmoneySource(time.Duration(cfg.Cache.RequestTimeout) * time.Second)
	store := data.NewStore(cfg.Cache.Dir, source, cfg.Cache.MaxRetries,
		cfg.RetryDelay(), cfg.Cache.ListTTLDays, logger)
	return &BacktestEngine{cfg: cfg, store: store, logger: logger}
}

// Store 暴露行情缓存, 供策略子命令复用
func (e *BacktestEngine) Store() *data.Store {
	return e.store
}

// Run 运行组合估值回测并落盘报告
func (e *BacktestEngine) Run(ctx context.Context) (*Result, error) {
	btCfg, err := e.cfg.ToBacktestConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}

	// 预热名称表, 失败不阻断回测
	if _, err := e.store.GetInstrumentList(ctx, false); err != nil {
		e.logger.Warn("instrument list unavailable, names fall back to symbols", "error", err)
	}

	fmt.Printf("Loading data for instruments: %v\n", btCfg.Symbols)
	valuation, err := portfolio.NewEngine(e.store, e.logger).ValuePortfolio(ctx, btCfg)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Backtest from %s to %s (%d trading days)\n",
		valuation.Table.Dates[0].Format("2006-01-02"),
		valuation.Table.Dates[valuation.Table.Len()-1].Format("2006-01-02"),
		valuation.Table.Len())

	result := &Result{
		Config:    btCfg,
		Valuation: valuation,
		Benchmark: metrics.Compute(valuation.Benchmark.Returns(), valuation.Benchmark),
	}

	if valuation.Rebalance != nil {
		cmp, err := portfolio.Compare(valuation.NoRebalance, *valuation.Rebalance, e.cfg.Metrics.RiskFreeRate)
		if err != nil {
			return nil, fmt.Errorf("comparison failed: %w", err)
		}
		result.Comparison = cmp
	}

	writer := report.NewWriter(e.cfg.Output.Dir, e.cfg.Output.GenerateCharts, e.logger)
	result.RunID = writer.RunID()
	if err := writer.WriteValuation(btCfg, valuation, result.Comparison, result.Benchmark); err != nil {
		e.logger.Warn("report export failed", "error", err)
	}

	e.result = result
	return result, nil
}

// PrintSummary 打印回测摘要
func (e *BacktestEngine) PrintSummary() {
	if e.result == nil {
		fmt.Println("No results available")
		return
	}
	r := e.result
	v := r.Valuation

	fmt.Println("\n========== Backtest Summary ==========")
	fmt.Printf("Run ID: %s\n", r.RunID)
	fmt.Printf("Period: %s to %s\n",
		r.Config.Start.Format("2006-01-02"), r.Config.End.Format("2006-01-02"))
	fmt.Printf("Initial Investment: %.2f\n", r.Config.InitialInvestment)
	for symbol, name := range v.Names {
		fmt.Printf("  %s  %s\n", symbol, name)
	}
	if len(v.Unavailable) > 0 {
		fmt.Printf("Dropped (no data): %v\n", v.Unavailable)
	}

	fmt.Printf("\nNo-Rebalance Final Value: %.2f\n", v.NoRebalance.Last())
	fmt.Printf("Equal-Weight Benchmark Final Value: %.2f\n", v.Benchmark.Last())
	if v.Rebalance != nil {
		fmt.Printf("Annual-Rebalance Final Value: %.2f (%d rebalances)\n",
			v.Rebalance.Last(), len(r.Valuation.RebalanceDates))
	}

	if r.Comparison != nil {
		fmt.Println("\n--- Rebalance vs No-Rebalance ---")
		printMetricsRow("No-Rebalance", r.Comparison.NoRebalance)
		printMetricsRow("Rebalance", r.Comparison.Rebalance)
		printMetricsRow("Difference", r.Comparison.Difference)
	}
	fmt.Println("======================================")
}

func printMetricsRow(label string, m types.Metrics) {
	fmt.Printf("%-14s total %8.2f%%  annual %7.2f%%  vol %6.2f%%  sharpe %6.2f  maxDD %7.2f%%\n",
		label, m.TotalReturn, m.AnnualReturn, m.Volatility, m.Sharpe, m.MaxDrawdown)
}

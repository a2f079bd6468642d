package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/etflab/etf-backtest/internal/cost"
	"github.com/etflab/etf-backtest/internal/metrics"
	"github.com/etflab/etf-backtest/internal/portfolio"
	"github.com/etflab/etf-backtest/pkg/types"
)

// Frequency 调仓频率
type Frequency string

const (
	Monthly   Frequency = "M"
	Weekly    Frequency = "W"
	Quarterly Frequency = "Q"
)

// RotationConfig 轮动回测配置
type RotationConfig struct {
	Symbols        []string
	Start          time.Time
	End            time.Time
	MomentumWindow int       // 动量窗口天数 (默认20)
	HoldCount      int       // 持仓数量 (默认2)
	InitialCash    float64   // 初始资金 (默认10000)
	Frequency      Frequency // 调仓频率 (默认每月)
	CostModel      cost.Model
}

// RotationResult 轮动回测结果
type RotationResult struct {
	NAV      types.ValueSeries
	Metrics  types.Metrics
	TotalFee float64
	Names    map[string]string
}

// SimulateRotation 周期轮动回测
// 每个周期最后一个交易日按窗口动量选前N只等权配置,
// 信号次日生效并持有至下次调仓, 无信号期间空仓
func SimulateRotation(ctx context.Context, source portfolio.PriceSource, cfg RotationConfig) (*RotationResult, error) {
	if cfg.MomentumWindow <= 0 {
		cfg.MomentumWindow = 20
	}
	if cfg.HoldCount <= 0 {
		cfg.HoldCount = 2
	}
	if cfg.InitialCash <= 0 {
		cfg.InitialCash = 10000
	}
	if cfg.Frequency == "" {
		cfg.Frequency = Monthly
	}
	if cfg.CostModel == nil {
		cfg.CostModel = cost.ZeroModel{}
	}

	start, end := types.Day(cfg.Start), types.Day(cfg.End)

	var histories []types.PriceHistory
	names := make(map[string]string)
	for _, symbol := range cfg.Symbols {
		h, err := source.GetHistory(ctx, symbol, start, end)
		if err != nil || h.Empty() {
			continue
		}
		histories = append(histories, h)
		names[symbol] = source.LookupName(symbol)
	}
	if len(histories) < 2 {
		return nil, &portfolio.InsufficientDataError{
			Requested: len(cfg.Symbols),
			Available: len(histories),
		}
	}

	table, err := portfolio.Align(histories)
	if err != nil {
		return nil, err
	}
	if table.Len() <= cfg.MomentumWindow+1 {
		return nil, fmt.Errorf("not enough trading days for a %d-day momentum window", cfg.MomentumWindow)
	}

	rebalance := periodEnds(table.Dates, cfg.Frequency)

	n := len(table.Symbols)
	weights := make([]float64, n)     // 当前生效权重
	nextWeights := make([]float64, n) // 调仓日选出, 次日生效

	values := make([]float64, table.Len())
	values[0] = cfg.InitialCash
	result := &RotationResult{Names: names}

	for i := 0; i < table.Len(); i++ {
		if i > 0 {
			var ret float64
			for j := 0; j < n; j++ {
				ret += weights[j] * (table.Prices[i][j]/table.Prices[i-1][j] - 1)
			}
			values[i] = values[i-1] * (1 + ret)
		}

		if rebalance[i] && i >= cfg.MomentumWindow {
			copy(nextWeights, rankWeights(table, i, cfg.MomentumWindow, cfg.HoldCount))

			// 换仓成本按成交额计提
			var turnover float64
			for j := 0; j < n; j++ {
				turnover += math.Abs(nextWeights[j]-weights[j]) * values[i]
			}
			fee := cfg.CostModel.Fee(turnover)
			values[i] -= fee
			result.TotalFee += fee
		}

		// 信号次日生效
		copy(weights, nextWeights)
	}

	result.NAV = types.ValueSeries{Dates: table.Dates, Values: values}
	result.Metrics = metrics.Compute(result.NAV.Returns(), result.NAV)
	return result, nil
}

// rankWeights 按动量取前N只, 等权1/N
func rankWeights(table *portfolio.Table, i, window, holdCount int) []float64 {
	type candidate struct {
		col int
		mom float64
	}
	candidates := make([]candidate, 0, len(table.Symbols))
	for j := range table.Symbols {
		mom := table.Prices[i][j]/table.Prices[i-window][j] - 1
		candidates = append(candidates, candidate{col: j, mom: mom})
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].mom > candidates[b].mom })

	if holdCount > len(candidates) {
		holdCount = len(candidates)
	}
	weights := make([]float64, len(table.Symbols))
	for _, c := range candidates[:holdCount] {
		weights[c.col] = 1 / float64(holdCount)
	}
	return weights
}

// periodEnds 标记每个周期的最后一个交易日
func periodEnds(dates []time.Time, freq Frequency) []bool {
	out := make([]bool, len(dates))
	for i := 0; i < len(dates)-1; i++ {
		if periodKey(dates[i], freq) != periodKey(dates[i+1], freq) {
			out[i] = true
		}
	}
	if len(dates) > 0 {
		out[len(dates)-1] = true
	}
	return out
}

func periodKey(d time.Time, freq Frequency) string {
	switch freq {
	case Weekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", d.Year(), (int(d.Month())-1)/3+1)
	default:
		return d.Format("2006-01")
	}
}

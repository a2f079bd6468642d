package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/etflab/etf-backtest/internal/metrics"
	"github.com/etflab/etf-backtest/internal/portfolio"
	"github.com/etflab/etf-backtest/pkg/types"
)

// MomentumConfig 动量策略回测配置
type MomentumConfig struct {
	Symbols        []string
	Start          time.Time
	End            time.Time
	MomentumPeriod int // 动量窗口 (默认20)
	MAPeriod       int // 均线窗口 (默认28)
	MaxPositions   int // 最大持仓数 (默认2)
}

// MomentumResult 动量策略回测结果
type MomentumResult struct {
	NAV     types.ValueSeries // 净值, 起点1.0
	Metrics types.Metrics
	Trades  []types.Trade
	Names   map[string]string
}

const minCommonDays = 30

// SimulateMomentum 动量轮动回测
// 候选集为收盘价高于均线的标的, 按动量取前N只等权持有;
// 当日收盘选出的持仓从下一交易日起生效, 无候选时空仓
func SimulateMomentum(ctx context.Context, source portfolio.PriceSource, cfg MomentumConfig) (*MomentumResult, error) {
	if cfg.MomentumPeriod <= 0 {
		cfg.MomentumPeriod = 20
	}
	if cfg.MAPeriod <= 0 {
		cfg.MAPeriod = 28
	}
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = 2
	}

	start, end := types.Day(cfg.Start), types.Day(cfg.End)

	var histories []types.PriceHistory
	names := make(map[string]string)
	warmup := cfg.MomentumPeriod
	if cfg.MAPeriod > warmup {
		warmup = cfg.MAPeriod
	}
	for _, symbol := range cfg.Symbols {
		h, err := source.GetHistory(ctx, symbol, start, end)
		if err != nil || h.Len() < warmup+10 {
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

	dates, prices := intersectDates(histories)
	if len(dates) < minCommonDays {
		return nil, fmt.Errorf("only %d common trading days, need at least %d", len(dates), minCommonDays)
	}
	if len(dates) <= warmup {
		return nil, fmt.Errorf("not enough common trading days for a %d-day warmup", warmup)
	}

	n := len(histories)
	symbols := make([]string, n)
	for i, h := range histories {
		symbols[i] = h.Symbol
	}

	navDates := dates[warmup:]
	values := make([]float64, len(navDates))
	values[0] = 1.0

	result := &MomentumResult{Names: names}
	var holdings []int

	for i := warmup; i < len(dates); i++ {
		// 先用昨日收盘选定的持仓结算当日收益, 避免使用未来信息
		if i > warmup {
			var ret float64
			if len(holdings) > 0 {
				for _, j := range holdings {
					ret += prices[i][j]/prices[i-1][j] - 1
				}
				ret /= float64(len(holdings))
			}
			values[i-warmup] = values[i-warmup-1] * (1 + ret)
		}

		next := selectTop(prices, i, cfg.MomentumPeriod, cfg.MAPeriod, cfg.MaxPositions)
		result.Trades = append(result.Trades, diffHoldings(holdings, next, symbols, names, dates[i], prices[i])...)
		holdings = next
	}

	result.NAV = types.ValueSeries{Dates: navDates, Values: values}
	result.Metrics = metrics.Compute(result.NAV.Returns(), result.NAV)
	return result, nil
}

// selectTop 当日候选: 收盘>均线, 按动量降序取前N
func selectTop(prices [][]float64, i, momPeriod, maPeriod, maxPositions int) []int {
	type candidate struct {
		col int
		mom float64
	}
	var candidates []candidate
	for j := range prices[i] {
		ma := rollingMeanAt(prices, i, j, maPeriod)
		if prices[i][j] <= ma {
			continue
		}
		mom := prices[i][j]/prices[i-momPeriod][j] - 1
		candidates = append(candidates, candidate{col: j, mom: mom})
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].mom > candidates[b].mom })

	if len(candidates) > maxPositions {
		candidates = candidates[:maxPositions]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.col
	}
	sort.Ints(out)
	return out
}

func rollingMeanAt(prices [][]float64, i, j, window int) float64 {
	var sum float64
	for k := i - window + 1; k <= i; k++ {
		sum += prices[k][j]
	}
	return sum / float64(window)
}

// diffHoldings 生成调仓交易记录
func diffHoldings(prev, next []int, symbols []string, names map[string]string, date time.Time, prices []float64) []types.Trade {
	inPrev := make(map[int]bool, len(prev))
	for _, j := range prev {
		inPrev[j] = true
	}
	inNext := make(map[int]bool, len(next))
	for _, j := range next {
		inNext[j] = true
	}

	var trades []types.Trade
	for _, j := range prev {
		if !inNext[j] {
			trades = append(trades, types.Trade{
				Date: date, Symbol: symbols[j], Name: names[symbols[j]],
				Side: "SELL", Price: prices[j],
			})
		}
	}
	for _, j := range next {
		if !inPrev[j] {
			trades = append(trades, types.Trade{
				Date: date, Symbol: symbols[j], Name: names[symbols[j]],
				Side: "BUY", Price: prices[j],
			})
		}
	}
	return trades
}

// intersectDates 取所有序列共同的交易日并构建价格矩阵
func intersectDates(histories []types.PriceHistory) ([]time.Time, [][]float64) {
	counts := make(map[time.Time]int)
	for _, h := range histories {
		for _, d := range h.Dates {
			counts[d]++
		}
	}

	var dates []time.Time
	for d, c := range counts {
		if c == len(histories) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	prices := make([][]float64, len(dates))
	for i := range prices {
		prices[i] = make([]float64, len(histories))
	}
	for j, h := range histories {
		byDate := make(map[time.Time]float64, h.Len())
		for i, d := range h.Dates {
			byDate[d] = h.Closes[i]
		}
		for i, d := range dates {
			prices[i][j] = byDate[d]
		}
	}
	return dates, prices
}

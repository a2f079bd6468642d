// Package portfolio 实现组合估值引擎: 给定标的、目标权重与价格表,
// 计算不再平衡、年度再平衡与等权基准三条净值曲线
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/etflab/etf-backtest/pkg/types"
)

// PriceSource 行情来源 (由调用方注入, 测试可用内存实现替代)
type PriceSource interface {
	// GetHistory 返回区间内的收盘价序列, 可能为空, 拉取失败不报错
	GetHistory(ctx context.Context, symbol string, start, end time.Time) (types.PriceHistory, error)

	// LookupName 解析标的显示名称
	LookupName(symbol string) string
}

// Engine 组合估值引擎
type Engine struct {
	source PriceSource
	logger *slog.Logger
}

// NewEngine 创建估值引擎
func NewEngine(source PriceSource, logger *slog.Logger) *Engine {
	return &Engine{source: source, logger: logger}
}

// Result 估值结果
// NoRebalance与Benchmark始终存在; Rebalance仅在启用年度再平衡时非nil;
// 三条净值曲线共享对齐价格表的日期轴, 首日均等于初始投入
type Result struct {
	NoRebalance    types.ValueSeries
	Benchmark      types.ValueSeries
	Rebalance      *types.ValueSeries
	RebalanceDates []time.Time
	Returns        [][]float64
	Table          *Table
	Names          map[string]string
	Weights        []float64 // 剔除无数据标的后重新归一的有效权重
	Unavailable    []string
}

// ValuePortfolio 执行一次组合估值
// 无法获取数据的标的被剔除并记录; 请求≥2只而幸存不足2只时
// 返回InsufficientDataError (单标的模式除外)
func (e *Engine) ValuePortfolio(ctx context.Context, cfg types.BacktestConfig) (*Result, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	start, end := types.Day(cfg.Start), types.Day(cfg.End)

	var histories []types.PriceHistory
	var survivorWeights []float64
	var unavailable []string
	for i, symbol := range cfg.Symbols {
		h, err := e.source.GetHistory(ctx, symbol, start, end)
		if err != nil || h.Empty() {
			unavailable = append(unavailable, symbol)
			continue
		}
		histories = append(histories, h)
		survivorWeights = append(survivorWeights, cfg.Weights[i])
	}

	if len(unavailable) > 0 {
		e.logger.Warn("instruments without data dropped from basket", "symbols", unavailable)
	}

	// 单标的模式: 只请求了1只且有数据, 退化为买入持有
	if len(histories) < 2 && !(len(cfg.Symbols) == 1 && len(histories) == 1) {
		return nil, &InsufficientDataError{
			Requested:   len(cfg.Symbols),
			Available:   len(histories),
			Unavailable: unavailable,
		}
	}

	table, err := Align(histories)
	if err != nil {
		if _, ok := err.(*EmptyDateRangeError); ok {
			return nil, &EmptyDateRangeError{Start: start, End: end}
		}
		return nil, err
	}
	if table.Len() < 2 {
		return nil, &EmptyDateRangeError{Start: start, End: end}
	}

	weights := normalize(survivorWeights)
	returns := table.DailyReturns()

	result := &Result{
		NoRebalance: compound(table.Dates, returns, weights, cfg.InitialInvestment),
		Benchmark:   compound(table.Dates, returns, equalWeights(len(table.Symbols)), cfg.InitialInvestment),
		Returns:     returns,
		Table:       table,
		Names:       e.resolveNames(table.Symbols),
		Weights:     weights,
		Unavailable: unavailable,
	}

	if cfg.RebalanceAnnually {
		series, rebalanced := rebalanceAnnually(table, weights, cfg.InitialInvestment)
		result.Rebalance = &series
		result.RebalanceDates = rebalanced
		e.logger.Info("annual rebalancing applied", "events", len(rebalanced))
	}

	return result, nil
}

func validate(cfg types.BacktestConfig) error {
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("no instruments specified")
	}
	if len(cfg.Weights) != len(cfg.Symbols) {
		return fmt.Errorf("weights length %d does not match instruments length %d",
			len(cfg.Weights), len(cfg.Symbols))
	}
	var sum float64
	for _, w := range cfg.Weights {
		if w < 0 {
			return fmt.Errorf("negative weight %v", w)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("weights must sum to a positive value")
	}
	if cfg.InitialInvestment <= 0 {
		return fmt.Errorf("initial investment must be positive")
	}
	if cfg.End.Before(cfg.Start) {
		return fmt.Errorf("end date %s before start date %s",
			cfg.End.Format("2006-01-02"), cfg.Start.Format("2006-01-02"))
	}
	return nil
}

// normalize 将权重归一化到和为1
func normalize(weights []float64) []float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}

func equalWeights(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0 / float64(n)
	}
	return out
}

// compound 按加权日收益率复利: value[t] = initial * Π(1 + Σ w_j*r_j)
func compound(dates []time.Time, returns [][]float64, weights []float64, initial float64) types.ValueSeries {
	values := make([]float64, len(dates))
	values[0] = initial
	for t, row := range returns {
		var r float64
		for j, w := range weights {
			r += w * row[j]
		}
		values[t+1] = values[t] * (1 + r)
	}
	return types.ValueSeries{Dates: dates, Values: values}
}

// rebalanceAnnually 显式份额模拟的年度再平衡路径
// 首日按目标权重建仓, 此后逐日按市值计价;
// 每个新自然年的首个交易日用当前总市值按目标权重重置份额
func rebalanceAnnually(table *Table, weights []float64, initial float64) (types.ValueSeries, []time.Time) {
	n := len(table.Symbols)

	holdings := make([]float64, n)
	for j := range holdings {
		holdings[j] = initial * weights[j] / table.Prices[0][j]
	}

	values := make([]float64, table.Len())
	values[0] = initial
	rebalanceDates := []time.Time{table.Dates[0]}
	lastRebalanceYear := table.Dates[0].Year()

	for i := 1; i < table.Len(); i++ {
		date := table.Dates[i]
		prices := table.Prices[i]

		if pendingRebalance(date, lastRebalanceYear) {
			// 再平衡只改变配置, 不改变当日总市值
			total := markToMarket(holdings, prices)
			for j := range holdings {
				holdings[j] = total * weights[j] / prices[j]
			}
			rebalanceDates = append(rebalanceDates, date)
			lastRebalanceYear = date.Year()
		}

		values[i] = markToMarket(holdings, prices)
	}

	return types.ValueSeries{Dates: table.Dates, Values: values}, rebalanceDates
}

// pendingRebalance 年度边界判定: 进入新自然年的首个交易日触发
func pendingRebalance(date time.Time, lastRebalanceYear int) bool {
	return date.Year() != lastRebalanceYear
}

func markToMarket(holdings, prices []float64) float64 {
	var total float64
	for j, h := range holdings {
		total += h * prices[j]
	}
	return total
}

func (e *Engine) resolveNames(symbols []string) map[string]string {
	names := make(map[string]string, len(symbols))
	for _, s := range symbols {
		names[s] = e.source.LookupName(s)
	}
	return names
}

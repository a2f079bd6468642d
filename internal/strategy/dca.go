// Package strategy 实现定投、动量轮动、网格与技术指标等回测模拟器
// 共用组合估值引擎的对齐/指标原语, 各自叠加信号逻辑
package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/etflab/etf-backtest/internal/metrics"
	"github.com/etflab/etf-backtest/internal/portfolio"
	"github.com/etflab/etf-backtest/pkg/types"
)

// DCAConfig 定投回测配置
type DCAConfig struct {
	Symbols       []string
	Weights       []float64
	Start         time.Time
	End           time.Time
	MonthlyAmount float64
	InvestDay     int // 每月定投日 (1-31), 超出当月天数时取月末
}

// DCARecord 单次定投记录
type DCARecord struct {
	Date         time.Time
	Invested     float64 // 累计投入
	Value        float64 // 当日市值
	SimpleReturn float64 // 简单收益率 (%)
}

// DCAResult 定投回测结果
// XIRR求解失败时AnnualizedReturn为0且XIRRFailed为true
type DCAResult struct {
	Records          []DCARecord
	Cashflows        []types.Cashflow
	TotalInvested    float64
	FinalValue       float64
	AnnualizedReturn float64 // % (XIRR)
	XIRRFailed       bool
	Names            map[string]string
	Unavailable      []string
}

// SimulateDCA 定投回测
// 按月生成定投日 (目标日超出当月取月末), 非交易日回退到最近交易日,
// 按权重拆分月投入买入份额, 期末市值作为终端正现金流求XIRR
func SimulateDCA(ctx context.Context, source portfolio.PriceSource, cfg DCAConfig) (*DCAResult, error) {
	if cfg.MonthlyAmount <= 0 {
		return nil, fmt.Errorf("monthly amount must be positive")
	}
	if cfg.InvestDay < 1 || cfg.InvestDay > 31 {
		return nil, fmt.Errorf("invest day must be between 1 and 31")
	}
	if len(cfg.Weights) != len(cfg.Symbols) {
		return nil, fmt.Errorf("weights length %d does not match instruments length %d",
			len(cfg.Weights), len(cfg.Symbols))
	}

	start, end := types.Day(cfg.Start), types.Day(cfg.End)

	var histories []types.PriceHistory
	var weights []float64
	var unavailable []string
	names := make(map[string]string)
	for i, symbol := range cfg.Symbols {
		h, err := source.GetHistory(ctx, symbol, start, end)
		if err != nil || h.Empty() {
			unavailable = append(unavailable, symbol)
			continue
		}
		histories = append(histories, h)
		weights = append(weights, cfg.Weights[i])
		names[symbol] = source.LookupName(symbol)
	}
	if len(histories) == 0 {
		return nil, &portfolio.InsufficientDataError{
			Requested:   len(cfg.Symbols),
			Available:   0,
			Unavailable: unavailable,
		}
	}

	table, err := portfolio.Align(histories)
	if err != nil {
		return nil, err
	}

	var weightSum float64
	for _, w := range weights {
		weightSum += w
	}

	units := make([]float64, len(table.Symbols))
	result := &DCAResult{Names: names, Unavailable: unavailable}

	for _, target := range monthlySchedule(start, end, cfg.InvestDay) {
		idx, ok := latestOnOrBefore(table.Dates, target)
		if !ok {
			continue
		}

		for j := range table.Symbols {
			var amount float64
			if weightSum > 0 {
				amount = weights[j] / weightSum * cfg.MonthlyAmount
			} else {
				amount = cfg.MonthlyAmount / float64(len(table.Symbols))
			}
			units[j] += amount / table.Prices[idx][j]
		}

		result.TotalInvested += cfg.MonthlyAmount
		result.Cashflows = append(result.Cashflows, types.Cashflow{
			Date:   table.Dates[idx],
			Amount: -cfg.MonthlyAmount,
		})

		value := holdingsValue(units, table.Prices[idx])
		result.Records = append(result.Records, DCARecord{
			Date:         table.Dates[idx],
			Invested:     result.TotalInvested,
			Value:        value,
			SimpleReturn: (value/result.TotalInvested - 1) * 100,
		})
	}

	if len(result.Records) == 0 {
		return nil, fmt.Errorf("no valid contribution dates between %s and %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	lastIdx := table.Len() - 1
	result.FinalValue = holdingsValue(units, table.Prices[lastIdx])
	result.Cashflows = append(result.Cashflows, types.Cashflow{
		Date:   table.Dates[lastIdx],
		Amount: result.FinalValue,
	})

	rate := metrics.XIRR(result.Cashflows)
	if math.IsNaN(rate) {
		result.XIRRFailed = true
	} else {
		result.AnnualizedReturn = rate * 100
	}

	return result, nil
}

// monthlySchedule 生成每月目标定投日, 目标日超出当月天数时取月末
func monthlySchedule(start, end time.Time, investDay int) []time.Time {
	var out []time.Time
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		day := investDay
		if last := daysInMonth(cursor.Year(), cursor.Month()); day > last {
			day = last
		}
		target := time.Date(cursor.Year(), cursor.Month(), day, 0, 0, 0, 0, time.UTC)
		if !target.Before(start) && !target.After(end) {
			out = append(out, target)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// latestOnOrBefore 在递增日期轴上找最后一个不晚于target的下标
func latestOnOrBefore(dates []time.Time, target time.Time) (int, bool) {
	idx := sort.Search(len(dates), func(i int) bool { return dates[i].After(target) })
	if idx == 0 {
		return 0, false
	}
	return idx - 1, true
}

func holdingsValue(units, prices []float64) float64 {
	var total float64
	for j, u := range units {
		total += u * prices[j]
	}
	return total
}

package types

import (
	"math"
	"time"
)

// Instrument ETF标的 (代码+名称)
type Instrument struct {
	Symbol string
	Name   string
}

// Bar 单日行情数据 (缓存CSV中的一行)
type Bar struct {
	Date   time.Time
	Open   float64
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// PriceHistory 单只ETF的日线收盘价序列
// 不变式: 日期严格递增, 无重复, 保留行的价格 > 0
type PriceHistory struct {
	Symbol string
	Dates  []time.Time
	Closes []float64
}

// Len 返回序列长度
func (h PriceHistory) Len() int {
	return len(h.Dates)
}

// Empty 是否为空序列
func (h PriceHistory) Empty() bool {
	return len(h.Dates) == 0
}

// Clip 截取[start, end]范围内的子序列
func (h PriceHistory) Clip(start, end time.Time) PriceHistory {
	out := PriceHistory{Symbol: h.Symbol}
	for i, d := range h.Dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Closes = append(out.Closes, h.Closes[i])
	}
	return out
}

// ValueSeries 组合净值序列 (货币单位, 与对齐价格表共享日期轴)
type ValueSeries struct {
	Dates  []time.Time
	Values []float64
}

// Len 返回序列长度
func (s ValueSeries) Len() int {
	return len(s.Dates)
}

// First 首日净值
func (s ValueSeries) First() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[0]
}

// Last 末日净值
func (s ValueSeries) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// Returns 计算逐日简单收益率 (长度为Len()-1)
func (s ValueSeries) Returns() []float64 {
	if len(s.Values) < 2 {
		return nil
	}
	rets := make([]float64, len(s.Values)-1)
	for i := 1; i < len(s.Values); i++ {
		rets[i-1] = s.Values[i]/s.Values[i-1] - 1
	}
	return rets
}

// Cashflow 定投现金流 (投入为负, 期末清算为正)
type Cashflow struct {
	Date   time.Time
	Amount float64
}

// Metrics 绩效指标 (百分比口径)
type Metrics struct {
	TotalReturn  float64 // 总收益率 (%)
	AnnualReturn float64 // 年化收益率 (%)
	Volatility   float64 // 年化波动率 (%)
	Sharpe       float64 // 夏普比率
	MaxDrawdown  float64 // 最大回撤 (%)
}

// Trade 模拟器交易记录
type Trade struct {
	Date   time.Time
	Symbol string
	Name   string
	Side   string // "BUY" or "SELL"
	Price  float64
	Fee    float64
}

// BacktestConfig 回测配置
type BacktestConfig struct {
	Symbols           []string
	Weights           []float64
	Start             time.Time
	End               time.Time
	InitialInvestment float64
	RebalanceAnnually bool
}

// Day 将时间归一化到当日零点 (UTC), 日线数据仅按日期比较
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

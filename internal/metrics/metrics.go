// Package metrics 提供收益/风险指标与XIRR求解器
package metrics

import (
	"math"

	"github.com/etflab/etf-backtest/pkg/types"
)

// Compute 从收益率序列与净值序列计算绩效指标
// 年化采用365自然日口径且夏普不扣无风险利率
// (与portfolio.Compare的252交易日口径刻意不同, 按调用方区分);
// 任一输入为空时返回零值结果
func Compute(returns []float64, values types.ValueSeries) types.Metrics {
	if len(returns) == 0 || values.Len() == 0 {
		return types.Metrics{}
	}

	totalReturn := (values.Last()/values.First() - 1) * 100

	calendarDays := values.Dates[values.Len()-1].Sub(values.Dates[0]).Hours() / 24
	var annualReturn float64
	if calendarDays > 0 {
		annualReturn = (math.Pow(1+totalReturn/100, 365/calendarDays) - 1) * 100
	} else {
		annualReturn = totalReturn
	}

	volatility := Std(returns) * math.Sqrt(252) * 100

	var sharpe float64
	if volatility != 0 {
		sharpe = (annualReturn / 100) / (volatility / 100)
	}

	return types.Metrics{
		TotalReturn:  totalReturn,
		AnnualReturn: annualReturn,
		Volatility:   volatility,
		Sharpe:       sharpe,
		MaxDrawdown:  MaxDrawdown(values.Values),
	}
}

// MaxDrawdown 最大回撤 (%): min over t of (v(t)-历史峰值)/历史峰值
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	minDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		dd := (v - peak) / peak
		if dd < minDD {
			minDD = dd
		}
	}
	return minDD * 100
}

// Std 样本标准差 (n-1分母, 与pandas默认一致)
func Std(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// AnnualReturn 单个自然年的收益率
type AnnualReturn struct {
	Year   int
	Return float64 // %
}

// AnnualReturns 按自然年重采样计算逐年收益率 (%)
// 每年取最后一个净值, 与上一年年末净值比较, 首年无基准不计
func AnnualReturns(values types.ValueSeries) []AnnualReturn {
	if values.Len() == 0 {
		return nil
	}

	type yearEnd struct {
		year  int
		value float64
	}
	var ends []yearEnd
	for i, d := range values.Dates {
		y := d.Year()
		if len(ends) > 0 && ends[len(ends)-1].year == y {
			ends[len(ends)-1].value = values.Values[i]
		} else {
			ends = append(ends, yearEnd{year: y, value: values.Values[i]})
		}
	}

	var out []AnnualReturn
	for i := 1; i < len(ends); i++ {
		out = append(out, AnnualReturn{
			Year:   ends[i].year,
			Return: (ends[i].value/ends[i-1].value - 1) * 100,
		})
	}
	return out
}

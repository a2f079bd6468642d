package metrics

import (
	"math"

	"github.com/etflab/etf-backtest/pkg/types"
)

const (
	xirrInitialGuess = 0.10
	xirrMaxIter      = 50
	xirrTol          = 1.48e-8
)

// XIRR 计算不规则现金流的内部收益率
// 现金流按日期排序, 投入为负, 期末清算为正;
// 折现按(1+rate)^(天数/365), 从0.10起用割线法求NPV零点。
// 求解失败返回NaN而不是错误: 调用方必须检查NaN,
// 下游将NaN按0%展示 (保持批量计算不中断的既有约定)
func XIRR(cashflows []types.Cashflow) float64 {
	if len(cashflows) < 2 {
		return math.NaN()
	}

	hasNeg, hasPos := false, false
	for _, cf := range cashflows {
		if cf.Amount < 0 {
			hasNeg = true
		}
		if cf.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return math.NaN()
	}

	first := cashflows[0].Date
	days := make([]float64, len(cashflows))
	for i, cf := range cashflows {
		days[i] = cf.Date.Sub(first).Hours() / 24
	}

	npv := func(rate float64) float64 {
		if rate <= -1 {
			return math.NaN()
		}
		var sum float64
		for i, cf := range cashflows {
			sum += cf.Amount / math.Pow(1+rate, days[i]/365)
		}
		return sum
	}

	return secant(npv, xirrInitialGuess)
}

// secant 割线法求根 (scipy.optimize.newton不带导数时的算法)
func secant(f func(float64) float64, x0 float64) float64 {
	x1 := x0 * (1 + 1e-4)
	if x1 == x0 {
		x1 = x0 + 1e-4
	}

	f0, f1 := f(x0), f(x1)
	if math.IsNaN(f0) || math.IsNaN(f1) {
		return math.NaN()
	}

	for i := 0; i < xirrMaxIter; i++ {
		if f1 == f0 {
			return math.NaN()
		}
		x2 := x1 - f1*(x1-x0)/(f1-f0)
		if math.IsNaN(x2) || math.IsInf(x2, 0) {
			return math.NaN()
		}
		if math.Abs(x2-x1) < xirrTol {
			return x2
		}
		x0, f0 = x1, f1
		x1 = x2
		f1 = f(x1)
		if math.IsNaN(f1) {
			return math.NaN()
		}
	}

	return math.NaN()
}

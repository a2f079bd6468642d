package portfolio

import (
	"fmt"
	"math"

	"github.com/etflab/etf-backtest/internal/metrics"
	"github.com/etflab/etf-backtest/pkg/types"
)

// DefaultRiskFreeRate 夏普比率使用的无风险利率 (%)
const DefaultRiskFreeRate = 3.0

// Comparison 再平衡与不再平衡的对比指标
// Difference = Rebalance - NoRebalance, 逐项相减
type Comparison struct {
	NoRebalance types.Metrics
	Rebalance   types.Metrics
	Difference  types.Metrics
}

// Compare 计算两条净值曲线的对比指标
// 年化采用252交易日口径, 夏普扣除无风险利率;
// 输入含NaN或非正值时直接报错, 不做清洗 (此时估值必然已出错)
func Compare(noRebalance, rebalance types.ValueSeries, riskFreeRate float64) (*Comparison, error) {
	if noRebalance.Len() == 0 || rebalance.Len() == 0 {
		return nil, fmt.Errorf("comparison requires two non-empty series")
	}
	if noRebalance.Len() != rebalance.Len() {
		return nil, fmt.Errorf("series length mismatch: %d vs %d", noRebalance.Len(), rebalance.Len())
	}
	if err := checkSeries("no-rebalance", noRebalance); err != nil {
		return nil, err
	}
	if err := checkSeries("rebalance", rebalance); err != nil {
		return nil, err
	}

	nr := tradingDayMetrics(noRebalance, riskFreeRate)
	rb := tradingDayMetrics(rebalance, riskFreeRate)

	return &Comparison{
		NoRebalance: nr,
		Rebalance:   rb,
		Difference: types.Metrics{
			TotalReturn:  rb.TotalReturn - nr.TotalReturn,
			AnnualReturn: rb.AnnualReturn - nr.AnnualReturn,
			Volatility:   rb.Volatility - nr.Volatility,
			Sharpe:       rb.Sharpe - nr.Sharpe,
			MaxDrawdown:  rb.MaxDrawdown - nr.MaxDrawdown,
		},
	}, nil
}

func checkSeries(name string, s types.ValueSeries) error {
	for i, v := range s.Values {
		if math.IsNaN(v) {
			return fmt.Errorf("%s series contains NaN at index %d", name, i)
		}
		if v <= 0 {
			return fmt.Errorf("%s series contains non-positive value %v at index %d", name, v, i)
		}
	}
	return nil
}

// tradingDayMetrics 252交易日口径的指标 (对比表专用,
// 与metrics包的365自然日口径刻意不同, 两种口径按调用方区分)
func tradingDayMetrics(s types.ValueSeries, riskFreeRate float64) types.Metrics {
	days := float64(s.Len())
	totalReturn := (s.Last()/s.First() - 1) * 100
	annualReturn := (math.Pow(s.Last()/s.First(), 252/days) - 1) * 100

	rets := s.Returns()
	volatility := metrics.Std(rets) * math.Sqrt(252) * 100

	var sharpe float64
	if volatility > 0 {
		sharpe = (annualReturn - riskFreeRate) / volatility
	}

	return types.Metrics{
		TotalReturn:  totalReturn,
		AnnualReturn: annualReturn,
		Volatility:   volatility,
		Sharpe:       sharpe,
		MaxDrawdown:  metrics.MaxDrawdown(s.Values),
	}
}

package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/etflab/etf-backtest/pkg/types"
)

func series(values []float64) types.ValueSeries {
	dates := make([]time.Time, len(values))
	d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = d.AddDate(0, 0, i)
	}
	return types.ValueSeries{Dates: dates, Values: values}
}

func TestCompareFlatSeries(t *testing.T) {
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 10000
	}

	cmp, err := Compare(series(flat), series(flat), DefaultRiskFreeRate)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if cmp.NoRebalance.TotalReturn != 0 {
		t.Errorf("total return = %v, want 0", cmp.NoRebalance.TotalReturn)
	}
	if cmp.NoRebalance.Volatility != 0 {
		t.Errorf("volatility = %v, want 0", cmp.NoRebalance.Volatility)
	}
	// 零波动时夏普取0而不是无穷
	if cmp.NoRebalance.Sharpe != 0 {
		t.Errorf("sharpe = %v, want 0", cmp.NoRebalance.Sharpe)
	}
	if cmp.Difference.AnnualReturn != 0 {
		t.Errorf("difference = %v, want 0", cmp.Difference.AnnualReturn)
	}
}

func TestCompareAnnualizationConvention(t *testing.T) {
	// 252个交易日翻倍: 252交易日口径下年化恰为100%
	doubling := make([]float64, 252)
	for i := range doubling {
		doubling[i] = 10000 * math.Pow(2, float64(i)/251)
	}

	cmp, err := Compare(series(doubling), series(doubling), DefaultRiskFreeRate)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if got := cmp.NoRebalance.TotalReturn; math.Abs(got-100) > 1e-9 {
		t.Errorf("total return = %v, want 100", got)
	}
	if got := cmp.NoRebalance.AnnualReturn; math.Abs(got-100) > 1e-9 {
		t.Errorf("annual return = %v, want 100", got)
	}
	// 夏普扣除无风险利率
	wantSharpe := (cmp.NoRebalance.AnnualReturn - DefaultRiskFreeRate) / cmp.NoRebalance.Volatility
	if got := cmp.NoRebalance.Sharpe; math.Abs(got-wantSharpe) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", got, wantSharpe)
	}
}

func TestCompareDifferenceIsPairwise(t *testing.T) {
	up := make([]float64, 50)
	flat := make([]float64, 50)
	for i := range up {
		up[i] = 10000 * (1 + float64(i)*0.001)
		flat[i] = 10000
	}

	cmp, err := Compare(series(flat), series(up), DefaultRiskFreeRate)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got := cmp.Difference.TotalReturn; math.Abs(got-(cmp.Rebalance.TotalReturn-cmp.NoRebalance.TotalReturn)) > 1e-12 {
		t.Errorf("difference not pairwise: %v", got)
	}
	if cmp.Difference.TotalReturn <= 0 {
		t.Errorf("rising rebalance series should win, difference = %v", cmp.Difference.TotalReturn)
	}
}

func TestCompareRejectsBadInput(t *testing.T) {
	good := series([]float64{10000, 10100, 10200})

	cases := []struct {
		name string
		nr   types.ValueSeries
		rb   types.ValueSeries
	}{
		{"empty", types.ValueSeries{}, good},
		{"length mismatch", good, series([]float64{10000, 10100})},
		{"nan", series([]float64{10000, math.NaN(), 10200}), good},
		{"non-positive", series([]float64{10000, -5, 10200}), good},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compare(tc.nr, tc.rb, DefaultRiskFreeRate); err == nil {
				t.Error("expected error")
			}
		})
	}
}

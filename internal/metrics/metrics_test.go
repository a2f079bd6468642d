package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/etflab/etf-backtest/pkg/types"
)

func seriesOver(days int, values []float64) types.ValueSeries {
	dates := make([]time.Time, len(values))
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	step := float64(days) / float64(len(values)-1)
	for i := range dates {
		dates[i] = start.Add(time.Duration(float64(i)*step*24) * time.Hour)
	}
	return types.ValueSeries{Dates: dates, Values: values}
}

func TestComputeEmptyInputs(t *testing.T) {
	zero := types.Metrics{}
	if got := Compute(nil, types.ValueSeries{}); got != zero {
		t.Errorf("Compute(empty) = %+v, want zero value", got)
	}
	if got := Compute([]float64{0.01}, types.ValueSeries{}); got != zero {
		t.Errorf("Compute(no values) = %+v, want zero value", got)
	}
}

func TestComputeCalendarDayAnnualization(t *testing.T) {
	// 整365自然日翻倍: 年化恰为100% (自然日口径, 与交易日数无关)
	values := []float64{10000, 12000, 20000}
	s := seriesOver(365, values)

	m := Compute(s.Returns(), s)
	if math.Abs(m.TotalReturn-100) > 1e-9 {
		t.Errorf("total return = %v, want 100", m.TotalReturn)
	}
	if math.Abs(m.AnnualReturn-100) > 1e-6 {
		t.Errorf("annual return = %v, want 100", m.AnnualReturn)
	}

	// 两年翻倍: 年化 sqrt(2)-1
	s2 := seriesOver(730, values)
	m2 := Compute(s2.Returns(), s2)
	want := (math.Sqrt(2) - 1) * 100
	if math.Abs(m2.AnnualReturn-want) > 1e-6 {
		t.Errorf("two-year annual return = %v, want %v", m2.AnnualReturn, want)
	}
}

func TestComputeSharpeOmitsRiskFree(t *testing.T) {
	values := []float64{10000, 10100, 10050, 10300, 10200, 10500}
	s := seriesOver(365, values)

	m := Compute(s.Returns(), s)
	if m.Volatility <= 0 {
		t.Fatalf("volatility = %v, want > 0", m.Volatility)
	}
	want := (m.AnnualReturn / 100) / (m.Volatility / 100)
	if math.Abs(m.Sharpe-want) > 1e-12 {
		t.Errorf("sharpe = %v, want %v (no risk-free subtraction)", m.Sharpe, want)
	}
}

func TestMaxDrawdown(t *testing.T) {
	// 100 -> 50 是50%回撤, 后续回升不改变最大值
	if got := MaxDrawdown([]float64{100, 50, 75}); math.Abs(got-(-50)) > 1e-12 {
		t.Errorf("max drawdown = %v, want -50", got)
	}
	if got := MaxDrawdown([]float64{100, 110, 120}); got != 0 {
		t.Errorf("rising series drawdown = %v, want 0", got)
	}
	if got := MaxDrawdown(nil); got != 0 {
		t.Errorf("empty drawdown = %v, want 0", got)
	}
}

func TestMaxDrawdownBounds(t *testing.T) {
	cases := [][]float64{
		{100, 90, 95, 80, 120, 60},
		{1, 1000, 1},
		{5, 5, 5},
		{100, 0.0001},
	}
	for _, values := range cases {
		dd := MaxDrawdown(values)
		if dd > 0 || dd < -100 {
			t.Errorf("MaxDrawdown(%v) = %v, want in [-100, 0]", values, dd)
		}
	}
}

func TestStd(t *testing.T) {
	// 样本标准差 (n-1分母)
	got := Std([]float64{1, 2, 3, 4})
	want := math.Sqrt(5.0 / 3.0)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Std = %v, want %v", got, want)
	}
	if got := Std([]float64{42}); got != 0 {
		t.Errorf("Std of single value = %v, want 0", got)
	}
}

func TestAnnualReturns(t *testing.T) {
	dates := []time.Time{
		time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 6, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 12, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	s := types.ValueSeries{
		Dates:  dates,
		Values: []float64{10000, 11000, 11500, 12100, 12705},
	}

	rets := AnnualReturns(s)
	if len(rets) != 2 {
		t.Fatalf("annual returns = %d entries, want 2", len(rets))
	}
	if rets[0].Year != 2022 || math.Abs(rets[0].Return-10) > 1e-9 {
		t.Errorf("2022 return = %+v, want 10%%", rets[0])
	}
	if rets[1].Year != 2023 || math.Abs(rets[1].Return-5) > 1e-9 {
		t.Errorf("2023 return = %+v, want 5%%", rets[1])
	}
}

package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/etflab/etf-backtest/pkg/types"
)

func TestXIRRRoundTrip(t *testing.T) {
	t0 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, rate := range []float64{0.08, 0.25, -0.10} {
		cashflows := []types.Cashflow{
			{Date: t0, Amount: -1000},
			{Date: t0.AddDate(0, 0, 365), Amount: 1000 * (1 + rate)},
		}
		got := XIRR(cashflows)
		if math.Abs(got-rate) > 1e-4 {
			t.Errorf("XIRR round trip for %v = %v", rate, got)
		}
	}
}

func TestXIRRZeroRate(t *testing.T) {
	// 平价定投: 12期投入, 期末取回本金, 收益率为0
	t0 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	var cashflows []types.Cashflow
	for i := 0; i < 12; i++ {
		cashflows = append(cashflows, types.Cashflow{
			Date:   t0.AddDate(0, i, 0),
			Amount: -1000,
		})
	}
	cashflows = append(cashflows, types.Cashflow{
		Date:   t0.AddDate(1, 0, 0),
		Amount: 12000,
	})

	got := XIRR(cashflows)
	if math.IsNaN(got) {
		t.Fatal("XIRR did not converge")
	}
	if math.Abs(got) > 1e-6 {
		t.Errorf("XIRR = %v, want ~0", got)
	}
}

func TestXIRRReturnsNaNOnBadInput(t *testing.T) {
	t0 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		cashflows []types.Cashflow
	}{
		{"empty", nil},
		{"single", []types.Cashflow{{Date: t0, Amount: -1000}}},
		{"all negative", []types.Cashflow{
			{Date: t0, Amount: -1000},
			{Date: t0.AddDate(0, 1, 0), Amount: -1000},
		}},
		{"all positive", []types.Cashflow{
			{Date: t0, Amount: 1000},
			{Date: t0.AddDate(0, 1, 0), Amount: 1000},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := XIRR(tc.cashflows); !math.IsNaN(got) {
				t.Errorf("XIRR = %v, want NaN", got)
			}
		})
	}
}

package strategy

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/etflab/etf-backtest/internal/portfolio"
	"github.com/etflab/etf-backtest/pkg/types"
)

func TestSimulateMomentumPicksRisingAsset(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := dailyDates(start, 120)
	source := &fakeSource{histories: map[string]types.PriceHistory{
		"UP":   geometricHistory("UP", dates, 100, 0.01),
		"FLAT": constHistory("FLAT", dates, 50),
	}}

	result, err := SimulateMomentum(context.Background(), source, MomentumConfig{
		Symbols: []string{"UP", "FLAT"},
		Start:   start,
		End:     dates[len(dates)-1],
	})
	if err != nil {
		t.Fatalf("SimulateMomentum: %v", err)
	}

	if got := result.NAV.Values[0]; got != 1 {
		t.Errorf("initial NAV = %v, want 1", got)
	}

	// 持续上涨的标的一直在候选中, 横盘的永不越过均线:
	// 建仓后不再换仓
	if len(result.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(result.Trades))
	}
	if result.Trades[0].Side != "BUY" || result.Trades[0].Symbol != "UP" {
		t.Errorf("trade = %+v, want BUY UP", result.Trades[0])
	}

	// 信号次日生效: 净值从建仓次日起按1%复利
	warmup := 28
	wantLast := math.Pow(1.01, float64(len(dates)-warmup-1))
	if got := result.NAV.Last(); math.Abs(got-wantLast) > 1e-9 {
		t.Errorf("final NAV = %v, want %v", got, wantLast)
	}
}

func TestSimulateMomentumInsufficientData(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := dailyDates(start, 120)
	source := &fakeSource{histories: map[string]types.PriceHistory{
		"A": constHistory("A", dates, 10),
	}}

	_, err := SimulateMomentum(context.Background(), source, MomentumConfig{
		Symbols: []string{"A", "missing"},
		Start:   start,
		End:     dates[len(dates)-1],
	})
	var insufficient *portfolio.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientDataError", err)
	}
}

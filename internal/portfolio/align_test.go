package portfolio

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/etflab/etf-backtest/pkg/types"
)

func d(day int) time.Time {
	return time.Date(2023, 6, day, 0, 0, 0, 0, time.UTC)
}

func TestAlignForwardFill(t *testing.T) {
	a := types.PriceHistory{
		Symbol: "A",
		Dates:  []time.Time{d(1), d(2), d(3)},
		Closes: []float64{10, 11, 12},
	}
	b := types.PriceHistory{
		Symbol: "B",
		Dates:  []time.Time{d(1), d(3)}, // d(2)停牌
		Closes: []float64{20, 22},
	}

	table, err := Align([]types.PriceHistory{a, b})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("table length = %d, want 3", table.Len())
	}

	if got := table.Prices[1][1]; got != 20 {
		t.Errorf("forward-filled price = %v, want 20", got)
	}
	if !table.Stale[1][1] {
		t.Error("filled cell not marked stale")
	}
	if table.Stale[1][0] {
		t.Error("observed cell marked stale")
	}

	// 填充日该标的收益率为0
	rets := table.DailyReturns()
	if got := rets[0][1]; got != 0 {
		t.Errorf("return on filled date = %v, want 0", got)
	}
}

func TestAlignTrimsToCommonStart(t *testing.T) {
	a := types.PriceHistory{
		Symbol: "A",
		Dates:  []time.Time{d(1), d(2), d(3), d(4)},
		Closes: []float64{10, 11, 12, 13},
	}
	b := types.PriceHistory{
		Symbol: "B",
		Dates:  []time.Time{d(3), d(4)}, // 晚上市
		Closes: []float64{20, 21},
	}

	table, err := Align([]types.PriceHistory{a, b})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("table length = %d, want 2", table.Len())
	}
	if !table.Dates[0].Equal(d(3)) {
		t.Errorf("first date = %v, want %v", table.Dates[0], d(3))
	}
}

func TestAlignRepairsInvalidPrice(t *testing.T) {
	a := types.PriceHistory{
		Symbol: "A",
		Dates:  []time.Time{d(1), d(2), d(3)},
		Closes: []float64{10, 0, 12}, // 中间无效
	}
	b := types.PriceHistory{
		Symbol: "B",
		Dates:  []time.Time{d(1), d(2), d(3)},
		Closes: []float64{20, 20, 20},
	}

	table, err := Align([]types.PriceHistory{a, b})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if got := table.Prices[1][0]; got != 10 {
		t.Errorf("repaired price = %v, want previous valid 10", got)
	}
	if !table.Stale[1][0] {
		t.Error("repaired cell not marked stale")
	}

	// 首日无效: 用后一有效值修复
	c := types.PriceHistory{
		Symbol: "C",
		Dates:  []time.Time{d(1), d(2)},
		Closes: []float64{math.NaN(), 30},
	}
	table, err = Align([]types.PriceHistory{c, b})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if got := table.Prices[0][0]; got != 30 {
		t.Errorf("backward-repaired price = %v, want 30", got)
	}
}

func TestAlignUnrecoverableColumn(t *testing.T) {
	a := types.PriceHistory{
		Symbol: "A",
		Dates:  []time.Time{d(1), d(2)},
		Closes: []float64{0, 0}, // 全列无效
	}
	b := types.PriceHistory{
		Symbol: "B",
		Dates:  []time.Time{d(1), d(2)},
		Closes: []float64{20, 21},
	}

	_, err := Align([]types.PriceHistory{a, b})
	var invalid *InvalidPriceDataError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidPriceDataError", err)
	}
	if invalid.Symbol != "A" {
		t.Errorf("offending symbol = %q, want A", invalid.Symbol)
	}
}

func TestDailyReturns(t *testing.T) {
	a := types.PriceHistory{
		Symbol: "A",
		Dates:  []time.Time{d(1), d(2), d(3)},
		Closes: []float64{100, 110, 99},
	}
	table, err := Align([]types.PriceHistory{a})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	rets := table.DailyReturns()
	if len(rets) != 2 {
		t.Fatalf("returns length = %d, want 2", len(rets))
	}
	if math.Abs(rets[0][0]-0.10) > 1e-12 {
		t.Errorf("return[0] = %v, want 0.10", rets[0][0])
	}
	if math.Abs(rets[1][0]-(-0.10)) > 1e-12 {
		t.Errorf("return[1] = %v, want -0.10", rets[1][0])
	}
}

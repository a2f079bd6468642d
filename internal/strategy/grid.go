package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/etflab/etf-backtest/internal/cost"
	"github.com/etflab/etf-backtest/internal/metrics"
	"github.com/etflab/etf-backtest/internal/portfolio"
	"github.com/etflab/etf-backtest/pkg/types"
)

// GridConfig 网格策略回测配置
// 规则: 每年首个交易日以当年首收盘价为锚半仓建仓, 年内:
// 涨N%降至25%仓, 涨2N%清仓, 跌N%增至75%仓, 跌2N%满仓
type GridConfig struct {
	Symbol    string
	Start     time.Time
	End       time.Time
	N         float64 // 网格宽度 (%)
	CostModel cost.Model
}

// GridResult 网格策略回测结果
type GridResult struct {
	NAV      types.ValueSeries // 净值, 起点1.0, 跨年连续
	Metrics  types.Metrics
	TotalFee float64
	Name     string
}

// SimulateGrid 网格策略回测
// 每年以该年首个收盘价重设网格并将仓位调回50%,
// 净值跨年连续结转 (不逐年重置)
func SimulateGrid(ctx context.Context, source portfolio.PriceSource, cfg GridConfig) (*GridResult, error) {
	if cfg.N <= 0 {
		return nil, fmt.Errorf("grid width N must be positive")
	}
	if cfg.CostModel == nil {
		cfg.CostModel = cost.ZeroModel{}
	}

	start, end := types.Day(cfg.Start), types.Day(cfg.End)
	h, err := source.GetHistory(ctx, cfg.Symbol, start, end)
	if err != nil {
		return nil, err
	}
	if h.Len() < 2 {
		return nil, fmt.Errorf("no usable price data for %s", cfg.Symbol)
	}

	result := &GridResult{Name: source.LookupName(cfg.Symbol)}

	// 初始全额现金1.0, 首个交易日即触发建仓
	cash, shares, position := 1.0, 0.0, 0.0
	var total float64
	var grids gridLevels
	year := 0

	values := make([]float64, h.Len())
	for i, date := range h.Dates {
		price := h.Closes[i]

		// 新的一年: 重设网格锚点, 仓位调回50%
		if date.Year() != year {
			year = date.Year()
			grids = newGridLevels(price, cfg.N)
			total = cash + shares*price
			fee := result.rebalanceTo(0.5, total, price, &cash, &shares, cfg.CostModel)
			position = 0.5
			total -= fee
		}

		total = cash + shares*price
		switch {
		case price >= grids.up2 && position > 0:
			total -= result.rebalanceTo(0, total, price, &cash, &shares, cfg.CostModel)
			position = 0
		case price >= grids.up1 && position > 0.25:
			total -= result.rebalanceTo(0.25, total, price, &cash, &shares, cfg.CostModel)
			position = 0.25
		case price <= grids.down2 && position < 1:
			total -= result.rebalanceTo(1, total, price, &cash, &shares, cfg.CostModel)
			position = 1
		case price <= grids.down1 && position < 0.75:
			total -= result.rebalanceTo(0.75, total, price, &cash, &shares, cfg.CostModel)
			position = 0.75
		}

		values[i] = cash + shares*price
	}

	result.NAV = types.ValueSeries{Dates: h.Dates, Values: values}
	result.Metrics = metrics.Compute(result.NAV.Returns(), result.NAV)
	return result, nil
}

type gridLevels struct {
	up1, up2, down1, down2 float64
}

func newGridLevels(anchor, n float64) gridLevels {
	return gridLevels{
		up1:   anchor * (1 + n/100),
		up2:   anchor * (1 + 2*n/100),
		down1: anchor * (1 - n/100),
		down2: anchor * (1 - 2*n/100),
	}
}

// rebalanceTo 将持仓调整到目标仓位比例, 返回交易费用
func (r *GridResult) rebalanceTo(target, total, price float64, cash, shares *float64, model cost.Model) float64 {
	targetShares := target * total / price
	tradeValue := math.Abs(targetShares-*shares) * price
	fee := model.Fee(tradeValue)

	*cash += (*shares - targetShares) * price
	*shares = targetShares
	*cash -= fee
	r.TotalFee += fee
	return fee
}

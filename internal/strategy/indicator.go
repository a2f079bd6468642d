package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/etflab/etf-backtest/internal/metrics"
	"github.com/etflab/etf-backtest/internal/portfolio"
	"github.com/etflab/etf-backtest/pkg/types"
)

// IndicatorKind 技术指标类型
type IndicatorKind string

const (
	IndicatorMA   IndicatorKind = "ma"   // 收盘价>N日均线持有, 否则空仓
	IndicatorROC  IndicatorKind = "roc"  // N日变动率>0持有, 否则空仓
	IndicatorBOLL IndicatorKind = "boll" // 中轨上方做多, 下方做空, 出轨道空仓
	IndicatorBIAS IndicatorKind = "bias" // 乖离率分段: (0,10%]做多, (-10%,0]做空, 极端反向
)

// IndicatorConfig 技术指标回测配置
type IndicatorConfig struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Kind   IndicatorKind
	N      int     // 指标窗口
	K      float64 // 布林带宽度倍数 (默认2)
}

// IndicatorResult 技术指标回测结果
// 策略与买入持有基准共享日期轴, 年化采用nav^(252/交易日数)口径
type IndicatorResult struct {
	NAV          types.ValueSeries // 策略净值, 起点1.0
	Benchmark    types.ValueSeries // 买入持有净值
	TotalReturn  float64           // %
	AnnualReturn float64           // %
	BenchTotal   float64           // %
	BenchAnnual  float64           // %
	Excess       float64           // 年化超额 (%)
	WinRate      float64           // 策略日收益>0占比 (%)
	MaxDrawdown  float64           // %
	Window       int
	Name         string
}

// SimulateIndicator 技术指标规则回测
// 信号在次一交易日生效 (signal.shift(1))
func SimulateIndicator(ctx context.Context, source portfolio.PriceSource, cfg IndicatorConfig) (*IndicatorResult, error) {
	if cfg.N <= 1 {
		return nil, fmt.Errorf("indicator window N must be greater than 1")
	}
	if cfg.K <= 0 {
		cfg.K = 2
	}

	start, end := types.Day(cfg.Start), types.Day(cfg.End)
	h, err := source.GetHistory(ctx, cfg.Symbol, start, end)
	if err != nil {
		return nil, err
	}
	if h.Len() < cfg.N+10 {
		return nil, fmt.Errorf("not enough data for %s: %d rows, need at least %d",
			cfg.Symbol, h.Len(), cfg.N+10)
	}

	signals, err := computeSignals(h.Closes, cfg)
	if err != nil {
		return nil, err
	}

	n := h.Len()
	nav := make([]float64, n)
	bench := make([]float64, n)
	nav[0], bench[0] = 1, 1

	var wins, days int
	for i := 1; i < n; i++ {
		ret := h.Closes[i]/h.Closes[i-1] - 1
		stratRet := ret * signals[i-1]
		nav[i] = nav[i-1] * (1 + stratRet)
		bench[i] = bench[i-1] * (1 + ret)
		days++
		if stratRet > 0 {
			wins++
		}
	}

	result := &IndicatorResult{
		NAV:         types.ValueSeries{Dates: h.Dates, Values: nav},
		Benchmark:   types.ValueSeries{Dates: h.Dates, Values: bench},
		Name:        source.LookupName(cfg.Symbol),
		MaxDrawdown: metrics.MaxDrawdown(nav),
		Window:      cfg.N,
	}
	result.TotalReturn = (nav[n-1] - 1) * 100
	result.BenchTotal = (bench[n-1] - 1) * 100
	result.AnnualReturn = (math.Pow(nav[n-1], 252/float64(n)) - 1) * 100
	result.BenchAnnual = (math.Pow(bench[n-1], 252/float64(n)) - 1) * 100
	result.Excess = result.AnnualReturn - result.BenchAnnual
	if days > 0 {
		result.WinRate = float64(wins) / float64(days) * 100
	}
	return result, nil
}

// SweepIndicatorWindows 对同一标的批量回测多个指标窗口
// 单个窗口失败不中断整批, 失败项跳过
func SweepIndicatorWindows(ctx context.Context, source portfolio.PriceSource, cfg IndicatorConfig, windows []int) []*IndicatorResult {
	var out []*IndicatorResult
	for _, n := range windows {
		c := cfg
		c.N = n
		result, err := SimulateIndicator(ctx, source, c)
		if err != nil {
			continue
		}
		out = append(out, result)
	}
	return out
}

// computeSignals 按指标类型计算逐日信号 (1多/-1空/0空仓), 窗口不足为0
func computeSignals(closes []float64, cfg IndicatorConfig) ([]float64, error) {
	n := len(closes)
	signals := make([]float64, n)

	switch cfg.Kind {
	case IndicatorMA:
		for i := cfg.N - 1; i < n; i++ {
			if closes[i] > rollingMean(closes, i, cfg.N) {
				signals[i] = 1
			}
		}
	case IndicatorROC:
		for i := cfg.N; i < n; i++ {
			if closes[i]/closes[i-cfg.N]-1 > 0 {
				signals[i] = 1
			}
		}
	case IndicatorBOLL:
		for i := cfg.N - 1; i < n; i++ {
			mid := rollingMean(closes, i, cfg.N)
			sd := rollingStd(closes, i, cfg.N)
			up := mid + cfg.K*sd
			down := mid - cfg.K*sd
			switch {
			case closes[i] > up || closes[i] < down:
				signals[i] = 0
			case closes[i] >= mid:
				signals[i] = 1
			default:
				signals[i] = -1
			}
		}
	case IndicatorBIAS:
		for i := cfg.N - 1; i < n; i++ {
			ma := rollingMean(closes, i, cfg.N)
			bias := (closes[i] - ma) / ma
			switch {
			case bias > 0.10:
				signals[i] = -1
			case bias > 0:
				signals[i] = 1
			case bias > -0.10:
				signals[i] = -1
			default:
				signals[i] = 1
			}
		}
	default:
		return nil, fmt.Errorf("unknown indicator kind %q", cfg.Kind)
	}

	return signals, nil
}

func rollingMean(xs []float64, i, window int) float64 {
	var sum float64
	for k := i - window + 1; k <= i; k++ {
		sum += xs[k]
	}
	return sum / float64(window)
}

func rollingStd(xs []float64, i, window int) float64 {
	mean := rollingMean(xs, i, window)
	var ss float64
	for k := i - window + 1; k <= i; k++ {
		d := xs[k] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(window-1))
}

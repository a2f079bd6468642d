// Package report 负责回测结果落盘: JSON摘要、净值CSV与PNG曲线图
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/etflab/etf-backtest/internal/metrics"
	"github.com/etflab/etf-backtest/internal/portfolio"
	"github.com/etflab/etf-backtest/pkg/types"
)

// Writer 报告输出器
// 每次回测分配一个run_id, 所有产物文件名带run_id前缀
type Writer struct {
	dir    string
	runID  string
	charts bool
	logger *slog.Logger
}

// NewWriter 创建报告输出器
func NewWriter(dir string, charts bool, logger *slog.Logger) *Writer {
	return &Writer{
		dir:    dir,
		runID:  uuid.NewString()[:8],
		charts: charts,
		logger: logger,
	}
}

// RunID 本次回测的标识
func (w *Writer) RunID() string { return w.runID }

// Summary JSON摘要结构
type Summary struct {
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Config      types.BacktestConfig `json:"config"`
	Names       map[string]string    `json:"names"`
	Weights     []float64            `json:"effective_weights"`
	Unavailable []string             `json:"unavailable,omitempty"`
	Comparison  *portfolio.Comparison  `json:"comparison,omitempty"`
	Benchmark   types.Metrics          `json:"benchmark"`
	Annual      []metrics.AnnualReturn `json:"annual_returns,omitempty"`
	Rebalances  []string               `json:"rebalance_dates,omitempty"`
}

// WriteValuation 导出组合估值结果: 摘要JSON + 净值CSV + 曲线PNG
func (w *Writer) WriteValuation(cfg types.BacktestConfig, result *portfolio.Result, cmp *portfolio.Comparison, benchmark types.Metrics) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	summary := Summary{
		RunID:       w.runID,
		GeneratedAt: time.Now(),
		Config:      cfg,
		Names:       result.Names,
		Weights:     result.Weights,
		Unavailable: result.Unavailable,
		Comparison:  cmp,
		Benchmark:   benchmark,
		Annual:      metrics.AnnualReturns(result.NoRebalance),
	}
	for _, d := range result.RebalanceDates {
		summary.Rebalances = append(summary.Rebalances, d.Format("2006-01-02"))
	}
	if err := w.writeJSON("summary", summary); err != nil {
		return err
	}

	series := []namedSeries{
		{"不再平衡", result.NoRebalance},
		{"等权基准", result.Benchmark},
	}
	if result.Rebalance != nil {
		series = append(series, namedSeries{"年度再平衡", *result.Rebalance})
	}
	if err := w.writeSeriesCSV("values", series); err != nil {
		return err
	}

	if w.charts {
		if err := w.writeLineChart("values", "组合净值曲线", series); err != nil {
			w.logger.Warn("chart rendering failed", "error", err)
		}
	}
	return nil
}

// WriteSeries 导出任意一组净值曲线 (策略模拟器共用)
func (w *Writer) WriteSeries(name, title string, labels []string, series []types.ValueSeries) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	named := make([]namedSeries, len(series))
	for i := range series {
		named[i] = namedSeries{labels[i], series[i]}
	}
	if err := w.writeSeriesCSV(name, named); err != nil {
		return err
	}
	if w.charts {
		if err := w.writeLineChart(name, title, named); err != nil {
			w.logger.Warn("chart rendering failed", "error", err)
		}
	}
	return nil
}

// WriteJSON 导出任意结构为JSON产物
func (w *Writer) WriteJSON(name string, v any) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return w.writeJSON(name, v)
}

type namedSeries struct {
	label  string
	series types.ValueSeries
}

func (w *Writer) path(name, ext string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.%s", w.runID, name, ext))
}

func (w *Writer) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := w.path(name, "json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.logger.Info("report written", "path", path)
	return nil
}

// writeSeriesCSV 多条曲线共用第一条的日期轴
func (w *Writer) writeSeriesCSV(name string, series []namedSeries) error {
	if len(series) == 0 || series[0].series.Len() == 0 {
		return fmt.Errorf("no series to export")
	}

	path := w.path(name, "csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	header := []string{"date"}
	for _, s := range series {
		header = append(header, s.label)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, date := range series[0].series.Dates {
		row := []string{date.Format("2006-01-02")}
		for _, s := range series {
			if i < s.series.Len() {
				row = append(row, strconv.FormatFloat(s.series.Values[i], 'f', 4, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	w.logger.Info("report written", "path", path)
	return nil
}

package report

import (
	"os"

	"github.com/vicanso/go-charts/v2"
)

// writeLineChart 将多条净值曲线渲染为PNG
// x轴取第一条曲线的日期轴, 纵轴上下各留5%边距
func (w *Writer) writeLineChart(name, title string, series []namedSeries) error {
	values := make([][]float64, len(series))
	labels := make([]string, len(series))
	for i, s := range series {
		values[i] = s.series.Values
		labels[i] = s.label
	}

	xLabels := make([]string, series[0].series.Len())
	for i, d := range series[0].series.Dates {
		xLabels[i] = d.Format("2006-01-02")
	}

	yMin, yMax := valueRange(values)

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 8,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: labels}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return err
	}
	img, err := painter.Bytes()
	if err != nil {
		return err
	}

	path := w.path(name, "png")
	if err := os.WriteFile(path, img, 0644); err != nil {
		return err
	}
	w.logger.Info("chart written", "path", path)
	return nil
}

func valueRange(values [][]float64) (float64, float64) {
	min, max := values[0][0], values[0][0]
	for _, row := range values {
		for _, v := range row {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	pad := (max - min) * 0.05
	if pad <= 0 {
		pad = max * 0.002
	}
	min -= pad
	if min < 0 {
		min = 0
	}
	return min, max + pad
}

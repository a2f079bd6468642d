package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etflab/etf-backtest/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSeries(n int) types.ValueSeries {
	dates := make([]time.Time, n)
	values := make([]float64, n)
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
		values[i] = 10000 * (1 + float64(i)*0.001)
	}
	return types.ValueSeries{Dates: dates, Values: values}
}

func TestWriteSeriesCSV(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false, testLogger())

	s := testSeries(5)
	err := w.WriteSeries("values", "测试", []string{"组合", "基准"}, []types.ValueSeries{s, s})
	if err != nil {
		t.Fatalf("WriteSeries: %v", err)
	}

	path := filepath.Join(dir, w.RunID()+"_values.csv")
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("csv missing: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("csv unreadable: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("rows = %d, want header + 5", len(records))
	}
	if records[0][0] != "date" || records[0][1] != "组合" || records[0][2] != "基准" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "2023-01-02" {
		t.Errorf("first date = %q", records[1][0])
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false, testLogger())

	payload := map[string]any{"total": 12000.0}
	if err := w.WriteJSON("dca_summary", payload); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, w.RunID()+"_dca_summary.json"))
	if err != nil {
		t.Fatalf("json missing: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("json unreadable: %v", err)
	}
	if decoded["total"] != 12000.0 {
		t.Errorf("total = %v", decoded["total"])
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	dir := t.TempDir()
	a := NewWriter(dir, false, testLogger())
	b := NewWriter(dir, false, testLogger())
	if a.RunID() == b.RunID() {
		t.Error("run ids collide")
	}
	if len(a.RunID()) != 8 {
		t.Errorf("run id %q, want 8 chars", a.RunID())
	}
}

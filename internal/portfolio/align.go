package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/etflab/etf-backtest/pkg/types"
)

// Table 对齐价格表: 多只ETF外连接到同一日期轴并前向填充
// Stale标记该格是否为填充值 (当日未交易, 沿用最近已知价格)
type Table struct {
	Dates   []time.Time
	Symbols []string
	Prices  [][]float64 // [日期][标的]
	Stale   [][]bool
}

// Len 交易日数量
func (t *Table) Len() int {
	return len(t.Dates)
}

// Align 将多只ETF的价格序列对齐到共同日期轴
// 日期轴为各序列日期的并集, 且从所有标的均已有观测的那天开始;
// 缺口前向填充, 填充后仍非正或缺失的价格用相邻有效值修复,
// 全列无有效价格时返回InvalidPriceDataError
func Align(histories []types.PriceHistory) (*Table, error) {
	dateSet := make(map[time.Time]bool)
	var firstDates []time.Time
	for _, h := range histories {
		if h.Empty() {
			continue
		}
		firstDates = append(firstDates, h.Dates[0])
		for _, d := range h.Dates {
			dateSet[d] = true
		}
	}
	if len(firstDates) == 0 {
		return nil, &EmptyDateRangeError{}
	}

	// 从最晚的首个观测日开始, 保证每只ETF在每个保留日都有可填充的价格
	startDate := firstDates[0]
	for _, d := range firstDates[1:] {
		if d.After(startDate) {
			startDate = d
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		if !d.Before(startDate) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) == 0 {
		return nil, &EmptyDateRangeError{}
	}

	table := &Table{
		Dates:   dates,
		Symbols: make([]string, 0, len(histories)),
		Prices:  make([][]float64, len(dates)),
		Stale:   make([][]bool, len(dates)),
	}
	for _, h := range histories {
		if !h.Empty() {
			table.Symbols = append(table.Symbols, h.Symbol)
		}
	}
	for i := range table.Prices {
		table.Prices[i] = make([]float64, len(table.Symbols))
		table.Stale[i] = make([]bool, len(table.Symbols))
	}

	col := 0
	for _, h := range histories {
		if h.Empty() {
			continue
		}
		fillColumn(table, col, h)
		col++
	}

	if err := repair(table); err != nil {
		return nil, err
	}
	return table, nil
}

// fillColumn 填入单只ETF的价格并前向填充缺口
func fillColumn(t *Table, col int, h types.PriceHistory) {
	byDate := make(map[time.Time]float64, h.Len())
	for i, d := range h.Dates {
		byDate[d] = h.Closes[i]
	}

	last := math.NaN()
	for i, d := range t.Dates {
		if p, ok := byDate[d]; ok {
			t.Prices[i][col] = p
			last = p
		} else {
			t.Prices[i][col] = last
			t.Stale[i][col] = true
		}
	}
}

// repair 修复填充后仍无效的价格: 先取前一有效值, 否则取后一有效值
func repair(t *Table) error {
	for j := range t.Symbols {
		for i := range t.Dates {
			p := t.Prices[i][j]
			if p > 0 && !math.IsNaN(p) {
				continue
			}
			if fixed, ok := nearestValid(t, i, j); ok {
				t.Prices[i][j] = fixed
				t.Stale[i][j] = true
				continue
			}
			return &InvalidPriceDataError{
				Symbol: t.Symbols[j],
				Date:   t.Dates[i],
				Row:    i,
				Col:    j,
			}
		}
	}
	return nil
}

func nearestValid(t *Table, row, col int) (float64, bool) {
	for i := row - 1; i >= 0; i-- {
		if p := t.Prices[i][col]; p > 0 && !math.IsNaN(p) {
			return p, true
		}
	}
	for i := row + 1; i < len(t.Dates); i++ {
		if p := t.Prices[i][col]; p > 0 && !math.IsNaN(p) {
			return p, true
		}
	}
	return 0, false
}

// DailyReturns 计算逐日简单收益率表 (首个交易日无收益率, 长度Len()-1)
func (t *Table) DailyReturns() [][]float64 {
	if t.Len() < 2 {
		return nil
	}
	rets := make([][]float64, t.Len()-1)
	for i := 1; i < t.Len(); i++ {
		row := make([]float64, len(t.Symbols))
		for j := range t.Symbols {
			row[j] = t.Prices[i][j]/t.Prices[i-1][j] - 1
		}
		rets[i-1] = row
	}
	return rets
}

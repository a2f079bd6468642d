package portfolio

import (
	"fmt"
	"strings"
	"time"
)

// InsufficientDataError 可用标的不足, 无法回测
type InsufficientDataError struct {
	Requested   int
	Available   int
	Unavailable []string
}

func (e *InsufficientDataError) Error() string {
	if len(e.Unavailable) > 0 {
		return fmt.Sprintf("insufficient data: %d of %d instruments available (unavailable: %s)",
			e.Available, e.Requested, strings.Join(e.Unavailable, ", "))
	}
	return fmt.Sprintf("insufficient data: %d of %d instruments available", e.Available, e.Requested)
}

// InvalidPriceDataError 填充后仍存在无效价格
type InvalidPriceDataError struct {
	Symbol string
	Date   time.Time
	Row    int
	Col    int
}

func (e *InvalidPriceDataError) Error() string {
	return fmt.Sprintf("invalid price data for %s at %s (row %d, col %d)",
		e.Symbol, e.Date.Format("2006-01-02"), e.Row, e.Col)
}

// EmptyDateRangeError 区间内无交易日
type EmptyDateRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *EmptyDateRangeError) Error() string {
	return fmt.Sprintf("no trading dates between %s and %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

// Package data 实现行情数据源与本地CSV缓存
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/etflab/etf-backtest/internal/util"
	"github.com/etflab/etf-backtest/pkg/types"
)

// Source 外部行情数据源接口
type Source interface {
	// FetchHistory 拉取单只ETF的全量日线历史 (前复权)
	FetchHistory(ctx context.Context, symbol string) ([]types.Bar, error)

	// FetchInstrumentList 拉取全市场ETF列表
	FetchInstrumentList(ctx context.Context) ([]types.Instrument, error)
}

// EastmoneySource 东方财富行情数据源
type EastmoneySource struct {
	client  *http.Client
	klineURL string
	listURL  string
}

// NewEastmoneySource 创建东方财富数据源
func NewEastmoneySource(timeout time.Duration) *EastmoneySource {
	return &EastmoneySource{
		client:   &http.Client{Timeout: timeout},
		klineURL: "https://push2his.eastmoney.com/api/qt/stock/kline/get",
		listURL:  "https://push2.eastmoney.com/api/qt/clist/get",
	}
}

type klineResp struct {
	Data struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

type clistResp struct {
	Data struct {
		Diff []struct {
			Code string `json:"f12"`
			Name string `json:"f14"`
		} `json:"diff"`
	} `json:"data"`
}

// FetchHistory 拉取全量日线K线
func (s *EastmoneySource) FetchHistory(ctx context.Context, symbol string) ([]types.Bar, error) {
	code := util.CleanSymbol(symbol)
	url := fmt.Sprintf(
		"%s?secid=%s&klt=101&fqt=1&beg=0&end=20500101&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56",
		s.klineURL, secID(code),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kline request for %s: status %d", symbol, resp.StatusCode)
	}

	var kr klineResp
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return nil, err
	}
	if len(kr.Data.Klines) == 0 {
		return nil, errors.New("no kline data")
	}

	bars := make([]types.Bar, 0, len(kr.Data.Klines))
	for _, line := range kr.Data.Klines {
		bar, err := parseKline(line)
		if err != nil {
			continue // 跳过无法解析的行
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, errors.New("no parsable kline rows")
	}
	return bars, nil
}

// FetchInstrumentList 拉取全市场ETF列表
func (s *EastmoneySource) FetchInstrumentList(ctx context.Context) ([]types.Instrument, error) {
	url := fmt.Sprintf(
		"%s?pn=1&pz=10000&po=1&fid=f12&fs=b:MK0021,b:MK0022,b:MK0023,b:MK0024&fields=f12,f14",
		s.listURL,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instrument list request: status %d", resp.StatusCode)
	}

	var cr clistResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, err
	}
	if len(cr.Data.Diff) == 0 {
		return nil, errors.New("empty instrument list")
	}

	seen := make(map[string]bool)
	list := make([]types.Instrument, 0, len(cr.Data.Diff))
	for _, row := range cr.Data.Diff {
		code := util.CleanSymbol(row.Code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		list = append(list, types.Instrument{Symbol: code, Name: row.Name})
	}
	return list, nil
}

// parseKline 解析单行K线 "日期,开盘,收盘,最高,最低,成交量"
func parseKline(line string) (types.Bar, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return types.Bar{}, fmt.Errorf("short kline row: %q", line)
	}

	date, err := time.Parse("2006-01-02", fields[0])
	if err != nil {
		return types.Bar{}, err
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return types.Bar{}, err
		}
		vals[i] = v
	}

	return types.Bar{
		Date:   types.Day(date),
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vals[4],
	}, nil
}

// secID 东方财富secid: 沪市5开头为1.xxx, 其余为0.xxx
func secID(code string) string {
	if strings.HasPrefix(code, "5") {
		return "1." + code
	}
	return "0." + code
}

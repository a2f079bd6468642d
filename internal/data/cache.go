package data

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/etflab/etf-backtest/internal/util"
	"github.com/etflab/etf-backtest/pkg/types"
)

const (
	metadataFile = "metadata.json"
	listFile     = "etf_list.csv"
)

var barColumns = []string{"date", "open", "close", "high", "low", "volume"}

// cacheMeta 缓存元数据: symbol -> 最近刷新信息
type cacheMeta map[string]cacheEntry

type cacheEntry struct {
	Date    string   `json:"date"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// Store 本地行情缓存
// 每只ETF一个CSV文件, 外加一个metadata.json记录刷新日期;
// "有效"定义为最近刷新日期等于今天, 过期则先尝试重新拉取
type Store struct {
	dir        string
	source     Source
	maxRetries int
	retryDelay time.Duration
	listTTL    time.Duration
	logger     *slog.Logger
	now        func() time.Time

	names map[string]string
}

// NewStore 创建行情缓存
func NewStore(dir string, source Source, maxRetries int, retryDelay time.Duration, listTTLDays int, logger *slog.Logger) *Store {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if listTTLDays <= 0 {
		listTTLDays = 30
	}
	return &Store{
		dir:        dir,
		source:     source,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		listTTL:    time.Duration(listTTLDays) * 24 * time.Hour,
		logger:     logger,
		now:        time.Now,
	}
}

// GetHistory 获取[start,end]范围内的收盘价序列
// 当天缓存有效则直接使用; 否则重新拉取全量数据 (有限次重试),
// 拉取失败时退回最近一次的磁盘快照, 可能返回空序列, 不返回拉取错误
func (s *Store) GetHistory(ctx context.Context, symbol string, start, end time.Time) (types.PriceHistory, error) {
	start, end = types.Day(start), types.Day(end)

	if s.cacheValid(symbol) {
		if bars, err := s.loadBars(symbol); err == nil && len(bars) > 0 {
			s.logger.Debug("using same-day cache", "symbol", symbol)
			return historyFromBars(symbol, bars).Clip(start, end), nil
		}
	}

	var bars []types.Bar
	err := util.Retry(ctx, s.maxRetries, s.retryDelay, func() error {
		var ferr error
		bars, ferr = s.source.FetchHistory(ctx, symbol)
		return ferr
	})
	if err != nil {
		s.logger.Warn("fetch failed, falling back to cached snapshot", "symbol", symbol, "error", err)
		bars, err = s.loadBars(symbol)
		if err != nil || len(bars) == 0 {
			return types.PriceHistory{Symbol: symbol}, nil
		}
		return historyFromBars(symbol, bars).Clip(start, end), nil
	}

	if err := s.saveBars(symbol, bars); err != nil {
		s.logger.Warn("failed to write cache", "symbol", symbol, "error", err)
	}

	return historyFromBars(symbol, bars).Clip(start, end), nil
}

// GetInstrumentList 获取ETF列表 (30天TTL缓存, 可强制刷新)
func (s *Store) GetInstrumentList(ctx context.Context, forceRefresh bool) ([]types.Instrument, error) {
	path := filepath.Join(s.dir, listFile)

	if !forceRefresh {
		if info, err := os.Stat(path); err == nil && s.now().Sub(info.ModTime()) < s.listTTL {
			if list, err := s.loadList(path); err == nil && len(list) > 0 {
				s.cacheNames(list)
				return list, nil
			}
		}
	}

	list, err := s.source.FetchInstrumentList(ctx)
	if err != nil {
		s.logger.Warn("instrument list fetch failed, falling back to cached list", "error", err)
		list, lerr := s.loadList(path)
		if lerr != nil {
			return nil, fmt.Errorf("instrument list unavailable: %w", err)
		}
		s.cacheNames(list)
		return list, nil
	}

	if err := s.saveList(path, list); err != nil {
		s.logger.Warn("failed to write instrument list cache", "error", err)
	}
	s.cacheNames(list)
	return list, nil
}

// LookupName 解析标的显示名称, 未知代码返回代码本身
func (s *Store) LookupName(symbol string) string {
	code := util.CleanSymbol(symbol)
	if name, ok := s.names[code]; ok {
		return name
	}
	return symbol
}

// cacheValid 缓存是否当天有效
func (s *Store) cacheValid(symbol string) bool {
	meta := s.loadMeta()
	today := s.now().Format("2006-01-02")
	return meta[util.CleanSymbol(symbol)].Date == today
}

func (s *Store) cachePath(symbol string) string {
	return filepath.Join(s.dir, util.CleanSymbol(symbol)+"_data.csv")
}

func (s *Store) loadMeta() cacheMeta {
	meta := cacheMeta{}
	data, err := os.ReadFile(filepath.Join(s.dir, metadataFile))
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		s.logger.Warn("failed to parse cache metadata", "error", err)
		return cacheMeta{}
	}
	return meta
}

func (s *Store) saveMeta(meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, metadataFile), data, 0644)
}

// loadBars 从缓存CSV加载全量K线
func (s *Store) loadBars(symbol string) ([]types.Bar, error) {
	file, err := os.Open(s.cachePath(symbol))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("cache CSV for %s has no data rows", symbol)
	}

	bars := make([]types.Bar, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) < 6 {
			continue
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		close_, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		high, _ := strconv.ParseFloat(row[3], 64)
		low, _ := strconv.ParseFloat(row[4], 64)
		volume, _ := strconv.ParseFloat(row[5], 64)
		bars = append(bars, types.Bar{
			Date: types.Day(date), Open: open, Close: close_,
			High: high, Low: low, Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// saveBars 将全量K线写入缓存并更新元数据
func (s *Store) saveBars(symbol string, bars []types.Bar) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(s.cachePath(symbol))
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(barColumns); err != nil {
		return err
	}
	for _, bar := range bars {
		row := []string{
			bar.Date.Format("2006-01-02"),
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	meta := s.loadMeta()
	meta[util.CleanSymbol(symbol)] = cacheEntry{
		Date:    s.now().Format("2006-01-02"),
		Rows:    len(bars),
		Columns: barColumns,
	}
	return s.saveMeta(meta)
}

func (s *Store) loadList(path string) ([]types.Instrument, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	var list []types.Instrument
	for i, row := range records {
		if i == 0 || len(row) < 2 {
			continue
		}
		list = append(list, types.Instrument{Symbol: row[0], Name: row[1]})
	}
	return list, nil
}

func (s *Store) saveList(path string, list []types.Instrument) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"symbol", "name"}); err != nil {
		return err
	}
	for _, inst := range list {
		if err := w.Write([]string{inst.Symbol, inst.Name}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) cacheNames(list []types.Instrument) {
	if s.names == nil {
		s.names = make(map[string]string, len(list))
	}
	for _, inst := range list {
		s.names[inst.Symbol] = inst.Name
	}
}

// historyFromBars 将K线转为收盘价序列, 丢弃价格非正的行
func historyFromBars(symbol string, bars []types.Bar) types.PriceHistory {
	h := types.PriceHistory{Symbol: symbol}
	var last time.Time
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		if !bar.Date.After(last) && len(h.Dates) > 0 {
			continue // 丢弃重复或乱序日期
		}
		h.Dates = append(h.Dates, bar.Date)
		h.Closes = append(h.Closes, bar.Close)
		last = bar.Date
	}
	return h
}

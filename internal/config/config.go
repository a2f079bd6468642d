package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etflab/etf-backtest/pkg/types"
	"gopkg.in/yaml.v3"
)

// Config 配置文件结构
type Config struct {
	Backtest BacktestSection `yaml:"backtest"`
	Assets   []AssetConfig   `yaml:"assets"`
	Cache    CacheSection    `yaml:"cache"`
	Metrics  MetricsSection  `yaml:"metrics"`
	Output   OutputSection   `yaml:"output"`
	AI       AISection       `yaml:"ai"`
	Logging  LoggingSection  `yaml:"logging"`
}

// BacktestSection 回测配置
type BacktestSection struct {
	StartDate         string  `yaml:"start_date"`
	EndDate           string  `yaml:"end_date"`
	InitialCapital    float64 `yaml:"initial_capital"`
	RebalanceAnnually bool    `yaml:"rebalance_annually"`
}

// AssetConfig 资产配置
type AssetConfig struct {
	Symbol string  `yaml:"symbol"`
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// CacheSection 行情缓存配置
type CacheSection struct {
	Dir             string `yaml:"dir"`
	MaxRetries      int    `yaml:"max_retries"`
	RetryDelaySecs  int    `yaml:"retry_delay_seconds"`
	ListTTLDays     int    `yaml:"list_ttl_days"`
	RequestTimeout  int    `yaml:"request_timeout_seconds"`
}

// MetricsSection 指标配置
type MetricsSection struct {
	RiskFreeRate float64 `yaml:"risk_free_rate"` // 百分比, 默认3
}

// OutputSection 输出配置
type OutputSection struct {
	Dir            string `yaml:"dir"`
	GenerateCharts bool   `yaml:"generate_charts"`
}

// AISection AI助手配置
type AISection struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	KeyFile string `yaml:"key_file"`
}

// LoggingSection 日志配置
type LoggingSection struct {
	Level string `yaml:"level"`
}

// LoadConfig 从文件加载配置并应用环境变量覆盖
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)

	return config, nil
}

// Default 返回内置默认配置
func Default() *Config {
	cfg := &Config{
		Backtest: BacktestSection{
			InitialCapital: 10000,
		},
		Cache: CacheSection{
			Dir:            "data_cache",
			MaxRetries:     3,
			RetryDelaySecs: 1,
			ListTTLDays:    30,
			RequestTimeout: 30,
		},
		Metrics: MetricsSection{
			RiskFreeRate: 3,
		},
		Output: OutputSection{
			Dir:            "output",
			GenerateCharts: true,
		},
		AI: AISection{
			BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Model:   "qwen-plus",
			KeyFile: "user_openai_key.txt",
		},
		Logging: LoggingSection{
			Level: "info",
		},
	}
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides 应用环境变量覆盖
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ETF_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("ETF_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ToBacktestConfig 转换为回测配置
func (c *Config) ToBacktestConfig() (types.BacktestConfig, error) {
	startDate, err := time.Parse("2006-01-02", c.Backtest.StartDate)
	if err != nil {
		return types.BacktestConfig{}, fmt.Errorf("invalid start_date: %w", err)
	}

	endDate, err := time.Parse("2006-01-02", c.Backtest.EndDate)
	if err != nil {
		return types.BacktestConfig{}, fmt.Errorf("invalid end_date: %w", err)
	}

	symbols := make([]string, len(c.Assets))
	weights := make([]float64, len(c.Assets))
	for i, asset := range c.Assets {
		symbols[i] = asset.Symbol
		weights[i] = asset.Weight
	}

	return types.BacktestConfig{
		Symbols:           symbols,
		Weights:           weights,
		Start:             startDate,
		End:               endDate,
		InitialInvestment: c.Backtest.InitialCapital,
		RebalanceAnnually: c.Backtest.RebalanceAnnually,
	}, nil
}

// APIKey 解析AI密钥: 配置/环境变量优先, 其次密钥文件
func (c *Config) APIKey() string {
	if c.AI.APIKey != "" {
		return c.AI.APIKey
	}
	if c.AI.KeyFile != "" {
		if data, err := os.ReadFile(c.AI.KeyFile); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// RetryDelay 重试间隔
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Cache.RetryDelaySecs) * time.Second
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 主配置结构
type Config struct {
	// 存储配置
	Storage StorageConfig `mapstructure:"storage"`

	// 数据源配置
	Datasources DatasourcesConfig `mapstructure:"datasources"`

	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
}

// StorageConfig 存储层配置
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // 存储驱动 (memory, duckdb, influxdb)
	DSN    string `mapstructure:"dsn"`    // duckdb 数据库文件路径

	// influxdb 连接参数
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// DatasourcesConfig 各数据源的连接参数
type DatasourcesConfig struct {
	Vnpy     VnpyConfig     `mapstructure:"vnpy"`
	Yfinance HTTPFeedConfig `mapstructure:"yfinance"`
	Akshare  HTTPFeedConfig `mapstructure:"akshare"`
}

// VnpyConfig vnpy 数据服务凭证
type VnpyConfig struct {
	DatafeedName string `mapstructure:"datafeed_name"` // 数据服务名称，如 rqdata, xt, wind
	Username     string `mapstructure:"username"`      // 用户名
	Password     string `mapstructure:"password"`      // 密码
	BaseURL      string `mapstructure:"base_url"`      // 服务网关地址
}

// Options 转换为下载器 Init 所需的键值参数
func (c VnpyConfig) Options() map[string]string {
	return map[string]string{
		"datafeed_name": c.DatafeedName,
		"username":      c.Username,
		"password":      c.Password,
		"base_url":      c.BaseURL,
	}
}

// HTTPFeedConfig 免凭证 HTTP 数据源的调优参数
type HTTPFeedConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`    // 请求超时时间
	RateLimit time.Duration `mapstructure:"rate_limit"` // 请求间隔限制
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别 (debug, info, warn, error)
	Format string `mapstructure:"format"` // 日志格式 (text, json)
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: "duckdb",
			DSN:    "stockloader.db",
		},
		Datasources: DatasourcesConfig{
			Yfinance: HTTPFeedConfig{
				Timeout:   15 * time.Second,
				RateLimit: 200 * time.Millisecond,
			},
			Akshare: HTTPFeedConfig{
				Timeout:   15 * time.Second,
				RateLimit: 500 * time.Millisecond,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load 从配置文件加载配置，环境变量（STOCKLOADER_ 前缀）可覆盖任意项。
// path 为空时只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STOCKLOADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "duckdb":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for duckdb driver")
		}
	case "influxdb":
		if c.Storage.URL == "" || c.Storage.Org == "" || c.Storage.Bucket == "" {
			return errors.New("storage.url, storage.org and storage.bucket are required for influxdb driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}

	if c.Datasources.Yfinance.Timeout < 0 || c.Datasources.Akshare.Timeout < 0 {
		return errors.New("datasource timeout cannot be negative")
	}

	if c.Datasources.Yfinance.RateLimit < 0 || c.Datasources.Akshare.RateLimit < 0 {
		return errors.New("datasource rate_limit cannot be negative")
	}

	return nil
}

package core

import (
	"fmt"
	"time"
)

// Exchange 交易所代码
type Exchange string

const (
	// ExchangeNYSE 纽约证券交易所
	ExchangeNYSE Exchange = "NYSE"
	// ExchangeNASDAQ 纳斯达克
	ExchangeNASDAQ Exchange = "NASDAQ"
	// ExchangeAMEX 美国证券交易所
	ExchangeAMEX Exchange = "AMEX"
	// ExchangeSMART 智能路由（不指定具体交易所）
	ExchangeSMART Exchange = "SMART"
)

// Interval K线数据的时间周期
type Interval string

const (
	// IntervalDaily 日线
	IntervalDaily Interval = "d"
	// IntervalHour 小时线
	IntervalHour Interval = "1h"
	// IntervalMinute 分钟线
	IntervalMinute Interval = "1m"
)

// DataSource 数据源标识，作为管理器注册表的查找键
type DataSource string

const (
	// SourceVnpy vnpy 数据服务网关
	SourceVnpy DataSource = "vnpy"
	// SourceYfinance Yahoo Finance
	SourceYfinance DataSource = "yfinance"
	// SourceAkshare akshare（新浪美股日线通道）
	SourceAkshare DataSource = "akshare"
)

// BarData 一根K线（OHLCV）数据。
// 由下载器生成后不再修改，Datetime 统一为 UTC。
type BarData struct {
	Symbol   string   `json:"symbol" db:"symbol"`     // 股票代码
	Exchange Exchange `json:"exchange" db:"exchange"` // 交易所
	Interval Interval `json:"interval" db:"interval"` // 时间周期

	Datetime time.Time `json:"datetime" db:"datetime"` // K线时间戳(UTC)

	Open   float64 `json:"open" db:"open"`     // 开盘价
	High   float64 `json:"high" db:"high"`     // 最高价
	Low    float64 `json:"low" db:"low"`       // 最低价
	Close  float64 `json:"close" db:"close"`   // 收盘价
	Volume float64 `json:"volume" db:"volume"` // 成交量

	Turnover     float64 `json:"turnover" db:"turnover"`           // 成交额（数据源未提供时为0）
	OpenInterest float64 `json:"open_interest" db:"open_interest"` // 持仓量（股票恒为0）

	GatewayName string `json:"gateway_name" db:"gateway_name"` // 数据来源标识
}

// VtSymbol 返回 "代码.交易所" 形式的唯一标识
func (b *BarData) VtSymbol() string {
	return fmt.Sprintf("%s.%s", b.Symbol, b.Exchange)
}

// BarOverview 存储层中某一组K线数据的概览
type BarOverview struct {
	Symbol   string    `json:"symbol" db:"symbol"`     // 股票代码
	Exchange Exchange  `json:"exchange" db:"exchange"` // 交易所
	Interval Interval  `json:"interval" db:"interval"` // 时间周期
	Count    int       `json:"count" db:"count"`       // 数据条数
	Start    time.Time `json:"start" db:"start"`       // 最早一根K线时间
	End      time.Time `json:"end" db:"end"`           // 最晚一根K线时间
}

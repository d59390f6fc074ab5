package downloader

import (
	"context"
	"fmt"
	"time"

	"stockloader/pkg/core"
)

// Downloader 是所有历史数据下载器的基础接口。
// 每个下载器对接一个外部数据源，将其原生接口翻译为统一的请求/结果模型。
type Downloader interface {
	// Name 返回下载器名称，例如 "YfinanceDownloader"。
	Name() string

	// Source 返回下载器对应的数据源标识。
	Source() core.DataSource

	// Init 初始化与数据源的连接。opts 为自由格式的键值参数，
	// 例如 vnpy 数据服务的 {datafeed_name, username, password}。
	// 失败时返回错误，下载器保持未就绪状态；重新调用可再次尝试。
	Init(ctx context.Context, opts map[string]string) error

	// IsReady 返回下载器是否已完成初始化。
	IsReady() bool

	// DownloadBars 下载K线数据。数据源层面的任何失败（网络错误、
	// 响应格式异常、不支持的周期）都封装在结果的 Success/ErrorMsg 中，
	// 不以 error 形式向外传播。成功与否都不改变下载器状态。
	DownloadBars(ctx context.Context, request core.DownloadRequest) core.DownloadResult

	// SupportsInterval 检查是否支持指定的时间周期。
	SupportsInterval(interval core.Interval) bool

	// SupportedIntervals 返回支持的时间周期列表。
	SupportedIntervals() []core.Interval

	// SupportedExchanges 返回支持的交易所列表。
	SupportedExchanges() []core.Exchange
}

// Configurable 可配置接口
// 支持动态配置的下载器可以实现此接口
type Configurable interface {
	// SetRateLimit 设置请求频率限制
	SetRateLimit(limit time.Duration)

	// SetTimeout 设置请求超时时间
	SetTimeout(timeout time.Duration)
}

// Closable 可关闭接口
// 需要清理资源的下载器应实现此接口
type Closable interface {
	// Close 关闭下载器，清理资源
	Close() error
}

// ValidateRequest 在发起任何外部调用之前校验请求。
// 返回 (false, 原因) 时下载器必须直接返回失败结果。
func ValidateRequest(d Downloader, request core.DownloadRequest) (bool, string) {
	if request.Symbol == "" {
		return false, "股票代码不能为空"
	}

	if !request.Start.IsZero() && !request.End.IsZero() && request.Start.After(request.End) {
		return false, fmt.Sprintf("无效的时间范围: start=%s > end=%s",
			request.Start.Format(time.RFC3339), request.End.Format(time.RFC3339))
	}

	supported := false
	for _, exchange := range d.SupportedExchanges() {
		if exchange == request.Exchange {
			supported = true
			break
		}
	}
	if !supported {
		return false, fmt.Sprintf("不支持的交易所: %s", request.Exchange)
	}

	if !d.SupportsInterval(request.Interval) {
		return false, fmt.Sprintf("不支持的时间周期: %s", request.Interval)
	}

	return true, ""
}

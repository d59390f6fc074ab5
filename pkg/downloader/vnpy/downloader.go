package vnpy

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"stockloader/pkg/core"
	"stockloader/pkg/downloader"
	"stockloader/pkg/logger"
)

// Downloader vnpy 数据服务下载器。
// 通过 Datafeed 客户端对接 rqdata/xt/wind 等数据服务的统一网关，
// 需要 {datafeed_name, username, password} 凭证。
type Downloader struct {
	datafeed Datafeed
	ready    bool
	log      *logrus.Entry

	// newDatafeed 允许测试替换客户端构造逻辑
	newDatafeed func(DatafeedSettings) Datafeed
}

// NewDownloader 创建 vnpy 数据服务下载器
func NewDownloader() *Downloader {
	return &Downloader{
		log: logger.WithComponent("VnpyDownloader"),
		newDatafeed: func(settings DatafeedSettings) Datafeed {
			return newHTTPDatafeed(settings)
		},
	}
}

// NewDownloaderWithDatafeed 使用给定的数据服务客户端创建下载器（测试用）
func NewDownloaderWithDatafeed(feed Datafeed) *Downloader {
	d := NewDownloader()
	d.newDatafeed = func(DatafeedSettings) Datafeed { return feed }
	return d
}

// Name 返回下载器名称
func (d *Downloader) Name() string {
	return "VnpyDownloader"
}

// Source 返回数据源标识
func (d *Downloader) Source() core.DataSource {
	return core.SourceVnpy
}

// Init 初始化数据服务连接。
// opts: datafeed_name（必填）、username、password、base_url。
// 失败时下载器保持未就绪状态，可再次调用重试。
func (d *Downloader) Init(ctx context.Context, opts map[string]string) error {
	settings := DatafeedSettings{
		Name:     opts["datafeed_name"],
		Username: opts["username"],
		Password: opts["password"],
		BaseURL:  opts["base_url"],
	}

	if settings.Name == "" {
		return fmt.Errorf("datafeed_name is required")
	}

	feed := d.newDatafeed(settings)
	if err := feed.Init(ctx); err != nil {
		return fmt.Errorf("datafeed init failed: %w", err)
	}

	d.datafeed = feed
	d.ready = true
	return nil
}

// IsReady 返回是否已初始化
func (d *Downloader) IsReady() bool {
	return d.ready
}

// SupportedIntervals 支持的周期取决于配置的具体数据服务，这里取全集
func (d *Downloader) SupportedIntervals() []core.Interval {
	return []core.Interval{core.IntervalDaily, core.IntervalHour, core.IntervalMinute}
}

// SupportsInterval 检查是否支持指定的时间周期
func (d *Downloader) SupportsInterval(interval core.Interval) bool {
	for _, i := range d.SupportedIntervals() {
		if i == interval {
			return true
		}
	}
	return false
}

// SupportedExchanges 返回支持的交易所
func (d *Downloader) SupportedExchanges() []core.Exchange {
	return []core.Exchange{
		core.ExchangeNYSE,
		core.ExchangeNASDAQ,
		core.ExchangeAMEX,
		core.ExchangeSMART,
	}
}

// DownloadBars 下载K线数据
func (d *Downloader) DownloadBars(ctx context.Context, request core.DownloadRequest) core.DownloadResult {
	if ok, msg := downloader.ValidateRequest(d, request); !ok {
		return core.FailedResult(request, msg)
	}

	if !d.ready || d.datafeed == nil {
		return core.FailedResult(request, "数据服务未初始化，请先调用 Init")
	}

	bars, err := d.datafeed.QueryBarHistory(ctx, request)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("数据下载失败: %v", err))
	}

	// 补全缺失的数据来源标识
	for i := range bars {
		if bars[i].GatewayName == "" {
			bars[i].GatewayName = "vnpy_datafeed"
		}
	}

	d.log.Debugf("%s 查询完成, 有效K线: %d", request.VtSymbol(), len(bars))
	return core.NewResult(request, bars)
}

// 确保 Downloader 实现了所需的接口
var _ downloader.Downloader = (*Downloader)(nil)

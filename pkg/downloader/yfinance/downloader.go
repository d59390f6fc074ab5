package yfinance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"stockloader/pkg/core"
	"stockloader/pkg/downloader"
	"stockloader/pkg/logger"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// probeSymbol Init 时用于验证接口可达性的代码
const probeSymbol = "AAPL"

// Downloader Yahoo Finance 历史数据下载器，对接 v8 chart 接口
type Downloader struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string

	rateLimit   time.Duration
	lastRequest time.Time
	requestMu   sync.Mutex

	ready bool
	log   *logrus.Entry
}

// NewDownloader 创建 Yahoo Finance 下载器
func NewDownloader() *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: 15 * time.Second,
		},
		baseURL:   defaultBaseURL,
		userAgent: "StockLoader/1.0",
		rateLimit: 200 * time.Millisecond,
		log:       logger.WithComponent("YfinanceDownloader"),
	}
}

// Name 返回下载器名称
func (d *Downloader) Name() string {
	return "YfinanceDownloader"
}

// Source 返回数据源标识
func (d *Downloader) Source() core.DataSource {
	return core.SourceYfinance
}

// Init 初始化连接。Yahoo 接口无需凭证，这里只探测接口可达性。
// opts 支持 base_url 覆盖默认地址。
func (d *Downloader) Init(ctx context.Context, opts map[string]string) error {
	if baseURL, ok := opts["base_url"]; ok && baseURL != "" {
		d.baseURL = baseURL
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", d.baseURL, probeSymbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create probe request failed: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo finance unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo finance probe failed: HTTP %d", resp.StatusCode)
	}

	d.ready = true
	return nil
}

// IsReady 返回是否已初始化
func (d *Downloader) IsReady() bool {
	return d.ready
}

// SupportedIntervals 返回支持的时间周期
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

	if !d.ready {
		return core.FailedResult(request, "yfinance 未初始化，请先调用 Init")
	}

	d.enforceRateLimit()

	url := d.buildChartURL(request)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("yfinance 请求构造失败: %v", err))
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("yfinance 数据下载失败: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("yfinance 响应读取失败: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return core.FailedResult(request, fmt.Sprintf("yfinance HTTP 状态异常: %d", resp.StatusCode))
	}

	bars, err := parseChartResponse(body, request)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("yfinance 响应解析失败: %v", err))
	}

	d.log.Debugf("%s 原始数据解析完成, 有效K线: %d", request.VtSymbol(), len(bars))
	return core.NewResult(request, bars)
}

// SetRateLimit 设置请求频率限制
func (d *Downloader) SetRateLimit(limit time.Duration) {
	d.rateLimit = limit
}

// SetTimeout 设置请求超时时间
func (d *Downloader) SetTimeout(timeout time.Duration) {
	d.httpClient.Timeout = timeout
}

// Close 关闭下载器，清理资源
func (d *Downloader) Close() error {
	if d.httpClient != nil {
		d.httpClient.CloseIdleConnections()
	}
	return nil
}

// buildChartURL 构建 chart 接口 URL
func (d *Downloader) buildChartURL(request core.DownloadRequest) string {
	return fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=%s&events=history",
		d.baseURL,
		request.Symbol,
		request.Start.Unix(),
		request.End.Unix(),
		intervalToYf(request.Interval),
	)
}

// enforceRateLimit 保证两次请求之间的最小间隔
func (d *Downloader) enforceRateLimit() {
	d.requestMu.Lock()
	defer d.requestMu.Unlock()

	if elapsed := time.Since(d.lastRequest); elapsed < d.rateLimit {
		time.Sleep(d.rateLimit - elapsed)
	}
	d.lastRequest = time.Now()
}

// intervalToYf 将时间周期转换为 Yahoo chart 接口的 interval 参数
func intervalToYf(interval core.Interval) string {
	switch interval {
	case core.IntervalMinute:
		return "1m"
	case core.IntervalHour:
		return "1h"
	default:
		return "1d"
	}
}

// 确保 Downloader 实现了所需的接口
var _ downloader.Downloader = (*Downloader)(nil)
var _ downloader.Configurable = (*Downloader)(nil)
var _ downloader.Closable = (*Downloader)(nil)

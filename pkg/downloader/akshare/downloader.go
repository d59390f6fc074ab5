package akshare

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"stockloader/pkg/core"
	"stockloader/pkg/downloader"
	"stockloader/pkg/logger"
)

const defaultBaseURL = "https://stock.finance.sina.com.cn"

// Downloader akshare 风格的美股日线下载器。
// 直接对接 akshare stock_us_daily 背后的新浪美股日K接口，只支持日线。
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

// NewDownloader 创建 akshare 下载器
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
		rateLimit: 500 * time.Millisecond,
		log:       logger.WithComponent("AkshareDownloader"),
	}
}

// Name 返回下载器名称
func (d *Downloader) Name() string {
	return "AkshareDownloader"
}

// Source 返回数据源标识
func (d *Downloader) Source() core.DataSource {
	return core.SourceAkshare
}

// Init 初始化连接。新浪接口无需凭证，opts 支持 base_url 覆盖默认地址。
func (d *Downloader) Init(ctx context.Context, opts map[string]string) error {
	if baseURL, ok := opts["base_url"]; ok && baseURL != "" {
		d.baseURL = baseURL
	}

	d.ready = true
	return nil
}

// IsReady 返回是否已初始化
func (d *Downloader) IsReady() bool {
	return d.ready
}

// SupportedIntervals 新浪美股通道只提供日线
func (d *Downloader) SupportedIntervals() []core.Interval {
	return []core.Interval{core.IntervalDaily}
}

// SupportsInterval 检查是否支持指定的时间周期
func (d *Downloader) SupportsInterval(interval core.Interval) bool {
	return interval == core.IntervalDaily
}

// SupportedExchanges 返回支持的交易所
func (d *Downloader) SupportedExchanges() []core.Exchange {
	return []core.Exchange{
		core.ExchangeNYSE,
		core.ExchangeNASDAQ,
		core.ExchangeAMEX,
	}
}

// DownloadBars 下载K线数据
func (d *Downloader) DownloadBars(ctx context.Context, request core.DownloadRequest) core.DownloadResult {
	if ok, msg := downloader.ValidateRequest(d, request); !ok {
		return core.FailedResult(request, msg)
	}

	if !d.ready {
		return core.FailedResult(request, "akshare 未初始化，请先调用 Init")
	}

	d.enforceRateLimit()

	url := fmt.Sprintf("%s/usstock/api/json_v2.php/US_MinKService.getDailyK?symbol=%s",
		d.baseURL, strings.ToLower(request.Symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("akshare 请求构造失败: %v", err))
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Referer", "https://finance.sina.com.cn/")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("akshare 数据下载失败: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.FailedResult(request, fmt.Sprintf("akshare HTTP 状态异常: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("akshare 响应读取失败: %v", err))
	}

	bars, err := parseDailyK(body, request)
	if err != nil {
		return core.FailedResult(request, fmt.Sprintf("akshare 响应解析失败: %v", err))
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

// enforceRateLimit 保证两次请求之间的最小间隔
func (d *Downloader) enforceRateLimit() {
	d.requestMu.Lock()
	defer d.requestMu.Unlock()

	if elapsed := time.Since(d.lastRequest); elapsed < d.rateLimit {
		time.Sleep(d.rateLimit - elapsed)
	}
	d.lastRequest = time.Now()
}

// 确保 Downloader 实现了所需的接口
var _ downloader.Downloader = (*Downloader)(nil)
var _ downloader.Configurable = (*Downloader)(nil)
var _ downloader.Closable = (*Downloader)(nil)

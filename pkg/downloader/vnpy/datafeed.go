package vnpy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stockloader/pkg/core"
)

// Datafeed 数据服务客户端接口。
// 下载器只依赖此接口，测试可以注入桩实现，对应 vnpy get_datafeed 的间接层。
type Datafeed interface {
	// Init 登录/验证数据服务
	Init(ctx context.Context) error

	// QueryBarHistory 查询历史K线
	QueryBarHistory(ctx context.Context, request core.DownloadRequest) ([]core.BarData, error)
}

// DatafeedSettings 数据服务连接参数
type DatafeedSettings struct {
	Name     string // 数据服务名称，如 rqdata, xt, wind
	Username string // 用户名
	Password string // 密码
	BaseURL  string // 服务网关地址
}

// httpDatafeed 基于 HTTP 网关的数据服务客户端
type httpDatafeed struct {
	settings   DatafeedSettings
	httpClient *http.Client
}

// newHTTPDatafeed 创建 HTTP 数据服务客户端
func newHTTPDatafeed(settings DatafeedSettings) *httpDatafeed {
	return &httpDatafeed{
		settings: settings,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: 30 * time.Second,
		},
	}
}

// Init 验证凭证：调用网关的 login 接口
func (f *httpDatafeed) Init(ctx context.Context) error {
	loginURL := fmt.Sprintf("%s/api/login?datafeed=%s", f.settings.BaseURL, url.QueryEscape(f.settings.Name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return fmt.Errorf("create login request failed: %w", err)
	}
	req.SetBasicAuth(f.settings.Username, f.settings.Password)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("datafeed login failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("datafeed login rejected: HTTP %d", resp.StatusCode)
	}

	return nil
}

// barRecord 网关返回的单根K线
type barRecord struct {
	Datetime     time.Time `json:"datetime"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	Turnover     float64   `json:"turnover"`
	OpenInterest float64   `json:"open_interest"`
	GatewayName  string    `json:"gateway_name"`
}

// QueryBarHistory 查询历史K线
func (f *httpDatafeed) QueryBarHistory(ctx context.Context, request core.DownloadRequest) ([]core.BarData, error) {
	query := url.Values{}
	query.Set("symbol", request.Symbol)
	query.Set("exchange", string(request.Exchange))
	query.Set("interval", string(request.Interval))
	query.Set("start", request.Start.UTC().Format(time.RFC3339))
	query.Set("end", request.End.UTC().Format(time.RFC3339))

	barURL := fmt.Sprintf("%s/api/bar_history?%s", f.settings.BaseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, barURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.SetBasicAuth(f.settings.Username, f.settings.Password)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query bar history failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query bar history: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}

	var records []barRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	bars := make([]core.BarData, 0, len(records))
	for _, r := range records {
		if r.Close == 0 && r.Open == 0 && r.High == 0 && r.Low == 0 {
			continue
		}

		bars = append(bars, core.BarData{
			Symbol:       request.Symbol,
			Exchange:     request.Exchange,
			Interval:     request.Interval,
			Datetime:     r.Datetime.UTC(),
			Open:         r.Open,
			High:         r.High,
			Low:          r.Low,
			Close:        r.Close,
			Volume:       r.Volume,
			Turnover:     r.Turnover,
			OpenInterest: r.OpenInterest,
			GatewayName:  r.GatewayName,
		})
	}

	return bars, nil
}

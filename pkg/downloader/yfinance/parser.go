package yfinance

import (
	"encoding/json"
	"fmt"
	"time"

	"stockloader/pkg/core"
)

// chartResponse Yahoo v8 chart 接口的顶层结构
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

// chartQuote 各字段使用指针切片：Yahoo 会用 null 填充停牌等缺口
type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

// parseChartResponse 将 chart 响应转换为K线序列。
// 缺失 OHLC 任一必需字段的行直接跳过，不做补零。
func parseChartResponse(body []byte, request core.DownloadRequest) ([]core.BarData, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart result")
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []core.BarData{}, nil
	}

	quote := result.Indicators.Quote[0]
	bars := make([]core.BarData, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}

		var volume float64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}

		bars = append(bars, core.BarData{
			Symbol:      request.Symbol,
			Exchange:    request.Exchange,
			Interval:    request.Interval,
			Datetime:    time.Unix(ts, 0).UTC(),
			Open:        *quote.Open[i],
			High:        *quote.High[i],
			Low:         *quote.Low[i],
			Close:       *quote.Close[i],
			Volume:      volume,
			GatewayName: "yfinance",
		})
	}

	return bars, nil
}

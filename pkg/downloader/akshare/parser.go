package akshare

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"stockloader/pkg/core"
)

// 美股日K时间按纽约时区解释，再统一转换为 UTC
var newYork = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// dailyKRow 新浪美股日K接口的单行数据，数值均为字符串
type dailyKRow struct {
	Date   string `json:"d"`
	Open   string `json:"o"`
	High   string `json:"h"`
	Low    string `json:"l"`
	Close  string `json:"c"`
	Volume string `json:"v"`
}

// parseDailyK 将新浪日K响应转换为K线序列，并按请求的时间范围过滤。
// 接口可能返回 JSONP 包装，先剥掉再按 JSON 数组解析。
// 缺失收盘价或日期的行直接跳过，不做补零。
func parseDailyK(body []byte, request core.DownloadRequest) ([]core.BarData, error) {
	payload := stripJSONP(string(body))

	var rows []dailyKRow
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, err
	}

	bars := make([]core.BarData, 0, len(rows))
	for _, row := range rows {
		if row.Date == "" || row.Close == "" {
			continue
		}

		dt, err := time.ParseInLocation("2006-01-02", row.Date, newYork)
		if err != nil {
			continue
		}
		dt = dt.UTC()

		if !request.Start.IsZero() && dt.Before(request.Start) {
			continue
		}
		if !request.End.IsZero() && dt.After(request.End) {
			continue
		}

		closePrice, err := strconv.ParseFloat(row.Close, 64)
		if err != nil {
			continue
		}

		bars = append(bars, core.BarData{
			Symbol:      request.Symbol,
			Exchange:    request.Exchange,
			Interval:    request.Interval,
			Datetime:    dt,
			Open:        parseFloat(row.Open),
			High:        parseFloat(row.High),
			Low:         parseFloat(row.Low),
			Close:       closePrice,
			Volume:      parseFloat(row.Volume),
			GatewayName: "akshare",
		})
	}

	return bars, nil
}

// stripJSONP 剥掉 "callback(...)" 形式的 JSONP 包装
func stripJSONP(s string) string {
	s = strings.TrimSpace(s)
	open := strings.Index(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return s
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		return s
	}
	return s[open+1 : len(s)-1]
}

// parseFloat 安全解析浮点数
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}

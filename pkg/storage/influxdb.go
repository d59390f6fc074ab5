package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"stockloader/pkg/core"
)

// measurement K线数据在 InfluxDB 中的 measurement 名
const measurement = "bar_data"

// InfluxDBConfig InfluxDB 连接参数
type InfluxDBConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// InfluxDBStorage 基于 InfluxDB 的时序K线存储。
// 写入使用同步阻塞 API，保证 SaveBarData 返回时数据已提交。
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	cfg      InfluxDBConfig
}

// NewInfluxDBStorage 创建 InfluxDB 存储并验证连通性
func NewInfluxDBStorage(ctx context.Context, cfg InfluxDBConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ok, err := client.Ping(ctx)
	if err != nil || !ok {
		client.Close()
		return nil, fmt.Errorf("influxdb unreachable: %v", err)
	}

	return &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		cfg:      cfg,
	}, nil
}

// SaveBarData 保存一批K线数据
func (s *InfluxDBStorage) SaveBarData(ctx context.Context, bars []core.BarData) error {
	for _, bar := range bars {
		point := influxdb2.NewPoint(
			measurement,
			map[string]string{
				"symbol":   bar.Symbol,
				"exchange": string(bar.Exchange),
				"interval": string(bar.Interval),
				"gateway":  bar.GatewayName,
			},
			map[string]interface{}{
				"open":          bar.Open,
				"high":          bar.High,
				"low":           bar.Low,
				"close":         bar.Close,
				"volume":        bar.Volume,
				"turnover":      bar.Turnover,
				"open_interest": bar.OpenInterest,
			},
			bar.Datetime,
		)

		if err := s.writeAPI.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("influxdb write failed: %w", err)
		}
	}

	return nil
}

// LoadBarData 按时间范围加载K线数据
func (s *InfluxDBStorage) LoadBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval, start, end time.Time) ([]core.BarData, error) {
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	if end.IsZero() {
		end = time.Now()
	}

	flux := fmt.Sprintf(`from(bucket: %q)
		|> range(start: %s, stop: %s)
		|> filter(fn: (r) => r._measurement == %q and r.symbol == %q and r.exchange == %q and r.interval == %q)
		|> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
		|> sort(columns: ["_time"])`,
		s.cfg.Bucket,
		start.UTC().Format(time.RFC3339), end.UTC().Add(time.Second).Format(time.RFC3339),
		measurement, symbol, string(exchange), string(interval))

	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("influxdb query failed: %w", err)
	}
	defer result.Close()

	var bars []core.BarData
	for result.Next() {
		record := result.Record()
		bar := core.BarData{
			Symbol:       symbol,
			Exchange:     exchange,
			Interval:     interval,
			Datetime:     record.Time().UTC(),
			Open:         toFloat(record.ValueByKey("open")),
			High:         toFloat(record.ValueByKey("high")),
			Low:          toFloat(record.ValueByKey("low")),
			Close:        toFloat(record.ValueByKey("close")),
			Volume:       toFloat(record.ValueByKey("volume")),
			Turnover:     toFloat(record.ValueByKey("turnover")),
			OpenInterest: toFloat(record.ValueByKey("open_interest")),
		}
		if gateway, ok := record.ValueByKey("gateway").(string); ok {
			bar.GatewayName = gateway
		}
		bars = append(bars, bar)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("influxdb query failed: %w", result.Err())
	}

	return bars, nil
}

// DeleteBarData 删除指定的K线分组，返回删除前统计到的条数
func (s *InfluxDBStorage) DeleteBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval) (int, error) {
	bars, err := s.LoadBarData(ctx, symbol, exchange, interval, time.Time{}, time.Time{})
	if err != nil {
		return 0, err
	}

	predicate := fmt.Sprintf(`_measurement="%s" AND symbol="%s" AND exchange="%s" AND interval="%s"`,
		measurement, symbol, exchange, interval)

	err = s.client.DeleteAPI().DeleteWithName(ctx, s.cfg.Org, s.cfg.Bucket,
		time.Unix(0, 0), time.Now().Add(time.Hour), predicate)
	if err != nil {
		return 0, fmt.Errorf("influxdb delete failed: %w", err)
	}

	return len(bars), nil
}

// GetBarOverview 返回各分组的数据概览
func (s *InfluxDBStorage) GetBarOverview(ctx context.Context) ([]core.BarOverview, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
		|> range(start: 0)
		|> filter(fn: (r) => r._measurement == %q and r._field == "close")
		|> sort(columns: ["_time"])`,
		s.cfg.Bucket, measurement)

	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("influxdb query failed: %w", err)
	}
	defer result.Close()

	grouped := make(map[string]*core.BarOverview)
	var order []string

	for result.Next() {
		record := result.Record()
		symbol, _ := record.ValueByKey("symbol").(string)
		exchange, _ := record.ValueByKey("exchange").(string)
		interval, _ := record.ValueByKey("interval").(string)
		ts := record.Time().UTC()

		key := fmt.Sprintf("%s.%s|%s", symbol, exchange, interval)
		overview, exists := grouped[key]
		if !exists {
			overview = &core.BarOverview{
				Symbol:   symbol,
				Exchange: core.Exchange(exchange),
				Interval: core.Interval(interval),
				Start:    ts,
				End:      ts,
			}
			grouped[key] = overview
			order = append(order, key)
		}

		overview.Count++
		if ts.Before(overview.Start) {
			overview.Start = ts
		}
		if ts.After(overview.End) {
			overview.End = ts
		}
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("influxdb query failed: %w", result.Err())
	}

	overviews := make([]core.BarOverview, 0, len(order))
	for _, key := range order {
		overviews = append(overviews, *grouped[key])
	}

	return overviews, nil
}

// Close 关闭客户端
func (s *InfluxDBStorage) Close() error {
	s.client.Close()
	return nil
}

// toFloat 把 flux 记录值安全转换为 float64
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	default:
		return 0
	}
}

// 确保 InfluxDBStorage 实现了 BarStorage 接口
var _ BarStorage = (*InfluxDBStorage)(nil)

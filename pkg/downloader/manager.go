package downloader

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"stockloader/pkg/core"
	"stockloader/pkg/logger"
	"stockloader/pkg/storage"
)

// DownloaderInfo 已注册下载器的元信息
type DownloaderInfo struct {
	Source             core.DataSource `json:"source"`              // 数据源标识
	Name               string          `json:"name"`                // 下载器名称
	Ready              bool            `json:"ready"`               // 是否已初始化
	SupportedIntervals []core.Interval `json:"supported_intervals"` // 支持的时间周期
	SupportedExchanges []core.Exchange `json:"supported_exchanges"` // 支持的交易所
}

// Manager 股票数据管理器。
// 维护数据源标识到下载器的注册表，并把成功下载的数据转发给注入的存储层。
// 注册表显式构造、显式传入，便于测试替换桩下载器。
type Manager struct {
	downloaders map[core.DataSource]Downloader
	storage     storage.BarStorage

	mu  sync.RWMutex
	log *logrus.Entry
}

// NewManager 创建数据管理器。store 可以为 nil，此时 persist 请求会报错。
func NewManager(store storage.BarStorage) *Manager {
	return &Manager{
		downloaders: make(map[core.DataSource]Downloader),
		storage:     store,
		log:         logger.WithComponent("Manager"),
	}
}

// Register 注册下载器，以其 Source() 作为查找键
func (m *Manager) Register(d Downloader) error {
	if d == nil {
		return fmt.Errorf("downloader cannot be nil")
	}
	if d.Source() == "" {
		return fmt.Errorf("downloader source cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.downloaders[d.Source()] = d
	return nil
}

// Init 初始化指定数据源的连接。
// 未注册的数据源返回 core.ErrUnknownDataSource —— 这是调用方的编码错误，
// 也是唯一允许以硬错误形式越过结果模型的情况。
func (m *Manager) Init(ctx context.Context, source core.DataSource, opts map[string]string) error {
	m.mu.RLock()
	d, exists := m.downloaders[source]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", core.ErrUnknownDataSource, source)
	}

	if err := d.Init(ctx, opts); err != nil {
		m.log.WithError(err).Warnf("数据源初始化失败: %s", source)
		return err
	}

	m.log.Infof("数据源初始化成功: %s", source)
	return nil
}

// DownloadOne 通过指定数据源下载单个请求的数据。
// persist 为 true 且下载成功时，把K线转发给存储层；落库失败会把结果
// 翻转为失败（ErrorMsg 说明存储错误），但 Bars 和 TotalCount 保持原样，
// 调用方可以区分"下载成功但未入库"和"下载本身失败"。
func (m *Manager) DownloadOne(ctx context.Context, request core.DownloadRequest, source core.DataSource, persist bool) core.DownloadResult {
	m.mu.RLock()
	d, exists := m.downloaders[source]
	m.mu.RUnlock()

	if !exists {
		return core.FailedResult(request, fmt.Sprintf("不支持的数据源: %s", source))
	}

	result := d.DownloadBars(ctx, request)

	if persist && result.Success && len(result.Bars) > 0 {
		if m.storage == nil {
			result.Success = false
			result.ErrorMsg = "存储层未配置，数据未保存"
			return result
		}

		if err := m.storage.SaveBarData(ctx, result.Bars); err != nil {
			m.log.WithError(err).Errorf("数据保存失败: %s", request.VtSymbol())
			result.Success = false
			result.ErrorMsg = fmt.Sprintf("数据保存失败: %v", err)
			return result
		}

		m.log.Infof("数据已保存: %s, 数量: %d", request.VtSymbol(), len(result.Bars))
	}

	return result
}

// DownloadMany 按顺序逐个下载多个请求。
// 单个请求的失败不影响其余请求，输出顺序与输入一致，一一对应。
func (m *Manager) DownloadMany(ctx context.Context, requests []core.DownloadRequest, source core.DataSource, persist bool) []core.DownloadResult {
	results := make([]core.DownloadResult, 0, len(requests))

	for _, request := range requests {
		m.log.Debugf("正在下载 %s ...", request.VtSymbol())
		result := m.DownloadOne(ctx, request, source, persist)
		results = append(results, result)

		if result.Success {
			m.log.Infof("%s 下载成功, 数据量: %d", request.VtSymbol(), result.TotalCount)
		} else {
			m.log.Warnf("%s 下载失败: %s", request.VtSymbol(), result.ErrorMsg)
		}
	}

	return results
}

// GetDownloaderInfo 返回指定数据源的下载器元信息
func (m *Manager) GetDownloaderInfo(source core.DataSource) (DownloaderInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, exists := m.downloaders[source]
	if !exists {
		return DownloaderInfo{}, fmt.Errorf("%w: %s", core.ErrUnknownDataSource, source)
	}

	return DownloaderInfo{
		Source:             d.Source(),
		Name:               d.Name(),
		Ready:              d.IsReady(),
		SupportedIntervals: d.SupportedIntervals(),
		SupportedExchanges: d.SupportedExchanges(),
	}, nil
}

// ListDownloaders 列出所有已注册下载器的元信息，按数据源排序保证输出稳定
func (m *Manager) ListDownloaders() []DownloaderInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]DownloaderInfo, 0, len(m.downloaders))
	for _, d := range m.downloaders {
		infos = append(infos, DownloaderInfo{
			Source:             d.Source(),
			Name:               d.Name(),
			Ready:              d.IsReady(),
			SupportedIntervals: d.SupportedIntervals(),
			SupportedExchanges: d.SupportedExchanges(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Source < infos[j].Source
	})

	return infos
}

// DeleteBarData 删除存储中指定股票的K线数据
func (m *Manager) DeleteBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval) (int, error) {
	if m.storage == nil {
		return 0, fmt.Errorf("存储层未配置")
	}

	count, err := m.storage.DeleteBarData(ctx, symbol, exchange, interval)
	if err != nil {
		return 0, err
	}

	m.log.Infof("已删除 %s.%s %s 数据, 数量: %d", symbol, exchange, interval, count)
	return count, nil
}

// GetBarOverview 返回存储中的数据概览
func (m *Manager) GetBarOverview(ctx context.Context) ([]core.BarOverview, error) {
	if m.storage == nil {
		return nil, fmt.Errorf("存储层未配置")
	}
	return m.storage.GetBarOverview(ctx)
}

// Close 关闭管理器，清理所有支持关闭的下载器资源
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for source, d := range m.downloaders {
		if closable, ok := d.(Closable); ok {
			if err := closable.Close(); err != nil {
				errs = append(errs, fmt.Errorf("error closing downloader '%s': %w", source, err))
			}
		}
	}

	m.downloaders = make(map[core.DataSource]Downloader)

	if len(errs) > 0 {
		return fmt.Errorf("errors occurred while closing downloaders: %v", errs)
	}
	return nil
}

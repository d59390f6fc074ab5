package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"stockloader/pkg/config"
	"stockloader/pkg/core"
	"stockloader/pkg/downloader"
	"stockloader/pkg/downloader/akshare"
	"stockloader/pkg/downloader/vnpy"
	"stockloader/pkg/downloader/yfinance"
	"stockloader/pkg/logger"
	"stockloader/pkg/scheduler"
	"stockloader/pkg/storage"
)

var (
	configPath = flag.String("config", "", "配置文件路径（yaml）")
	jobsPath   = flag.String("jobs", "", "定时任务配置文件路径，指定后进入调度模式")
	source     = flag.String("source", "yfinance", "数据源 (vnpy, yfinance, akshare)")
	symbols    = flag.String("symbols", "", "股票代码，逗号分隔，如 AAPL,MSFT")
	exchange   = flag.String("exchange", "NASDAQ", "交易所 (NYSE, NASDAQ, AMEX, SMART)")
	interval   = flag.String("interval", "d", "时间周期 (d, 1h, 1m)")
	startStr   = flag.String("start", "", "开始日期 (2006-01-02)")
	endStr     = flag.String("end", "", "结束日期 (2006-01-02)，默认今天")
	persist    = flag.Bool("persist", true, "是否保存到存储层")
	list       = flag.Bool("list", false, "列出所有数据源后退出")
	overview   = flag.Bool("overview", false, "打印存储层数据概览后退出")
	logLevel   = flag.String("log-level", "info", "日志级别 (debug, info, warn, error)")
	logFormat  = flag.String("log-format", "text", "日志格式 (text 或 json)")
)

func main() {
	flag.Parse()

	// .env 中的 STOCKLOADER_* 变量可覆盖配置项
	_ = godotenv.Load()

	logger.Init(logger.Config{
		Level:  *logLevel,
		Format: *logFormat,
	})
	log := logger.WithComponent("stockloader")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}

	store, err := openStorage(cfg)
	if err != nil {
		log.Errorf("初始化存储失败: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	manager := downloader.NewManager(store)
	defer manager.Close()

	registerDownloaders(manager, cfg, log)

	ctx := context.Background()

	switch {
	case *list:
		printDownloaders(manager)
	case *overview:
		printOverview(ctx, manager, log)
	case *jobsPath != "":
		runScheduler(manager, *jobsPath, log)
	default:
		runDownload(ctx, manager, log)
	}
}

// openStorage 按配置的驱动打开存储后端
func openStorage(cfg *config.Config) (storage.BarStorage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "duckdb":
		return storage.NewDuckDBStorage(cfg.Storage.DSN)
	case "influxdb":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return storage.NewInfluxDBStorage(ctx, storage.InfluxDBConfig{
			URL:    cfg.Storage.URL,
			Token:  cfg.Storage.Token,
			Org:    cfg.Storage.Org,
			Bucket: cfg.Storage.Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// registerDownloaders 注册并初始化所有数据源。
// 免凭证数据源初始化失败只告警；vnpy 仅在配置了凭证时初始化。
func registerDownloaders(manager *downloader.Manager, cfg *config.Config, log *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	yf := yfinance.NewDownloader()
	applyFeedConfig(yf, cfg.Datasources.Yfinance)
	_ = manager.Register(yf)
	if err := manager.Init(ctx, core.SourceYfinance, nil); err != nil {
		log.Warnf("yfinance 初始化失败: %v", err)
	}

	ak := akshare.NewDownloader()
	applyFeedConfig(ak, cfg.Datasources.Akshare)
	_ = manager.Register(ak)
	if err := manager.Init(ctx, core.SourceAkshare, nil); err != nil {
		log.Warnf("akshare 初始化失败: %v", err)
	}

	vp := vnpy.NewDownloader()
	_ = manager.Register(vp)
	if cfg.Datasources.Vnpy.DatafeedName != "" {
		if err := manager.Init(ctx, core.SourceVnpy, cfg.Datasources.Vnpy.Options()); err != nil {
			log.Warnf("vnpy 数据服务初始化失败: %v", err)
		}
	}
}

// applyFeedConfig 应用 HTTP 数据源的调优参数
func applyFeedConfig(d downloader.Configurable, feedCfg config.HTTPFeedConfig) {
	if feedCfg.Timeout > 0 {
		d.SetTimeout(feedCfg.Timeout)
	}
	if feedCfg.RateLimit > 0 {
		d.SetRateLimit(feedCfg.RateLimit)
	}
}

// runDownload 一次性下载模式
func runDownload(ctx context.Context, manager *downloader.Manager, log *logrus.Entry) {
	if *symbols == "" {
		log.Errorf("请通过 -symbols 指定股票代码")
		os.Exit(1)
	}

	end := time.Now()
	if *endStr != "" {
		t, err := time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Errorf("无效的结束日期: %v", err)
			os.Exit(1)
		}
		end = t
	}

	start := end.AddDate(0, -1, 0)
	if *startStr != "" {
		t, err := time.Parse("2006-01-02", *startStr)
		if err != nil {
			log.Errorf("无效的开始日期: %v", err)
			os.Exit(1)
		}
		start = t
	}

	var requests []core.DownloadRequest
	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}

		request, err := core.NewDownloadRequest(symbol, core.Exchange(*exchange), start, end, core.Interval(*interval))
		if err != nil {
			log.Errorf("无效的下载请求 %s: %v", symbol, err)
			os.Exit(1)
		}
		requests = append(requests, request)
	}

	results := manager.DownloadMany(ctx, requests, core.DataSource(*source), *persist)

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
			fmt.Printf("✓ %s: %d 条\n", result.Request.VtSymbol(), result.TotalCount)
		} else {
			fmt.Printf("✗ %s: %s\n", result.Request.VtSymbol(), result.ErrorMsg)
		}
	}

	log.Infof("下载完成: %d/%d 成功", succeeded, len(results))
	if succeeded < len(results) {
		os.Exit(1)
	}
}

// runScheduler 调度模式：按任务配置周期性下载，直到收到退出信号
func runScheduler(manager *downloader.Manager, jobsPath string, log *logrus.Entry) {
	sched := scheduler.NewScheduler()
	sched.SetExecutor(scheduler.NewDownloadExecutor(manager))

	if err := sched.LoadConfig(jobsPath); err != nil {
		log.Errorf("加载任务配置失败: %v", err)
		os.Exit(1)
	}

	if err := sched.Start(); err != nil {
		log.Errorf("启动调度器失败: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infof("收到退出信号，正在停止调度器...")
	_ = sched.Stop()
}

// printDownloaders 打印所有已注册的数据源
func printDownloaders(manager *downloader.Manager) {
	for _, info := range manager.ListDownloaders() {
		state := "unconfigured"
		if info.Ready {
			state = "ready"
		}
		fmt.Printf("%-10s %-20s %-13s intervals=%v exchanges=%v\n",
			info.Source, info.Name, state, info.SupportedIntervals, info.SupportedExchanges)
	}
}

// printOverview 打印存储层数据概览
func printOverview(ctx context.Context, manager *downloader.Manager, log *logrus.Entry) {
	overviews, err := manager.GetBarOverview(ctx)
	if err != nil {
		log.Errorf("获取数据概览失败: %v", err)
		os.Exit(1)
	}

	for _, o := range overviews {
		fmt.Printf("%s.%s %-3s count=%-8d %s ~ %s\n",
			o.Symbol, o.Exchange, o.Interval, o.Count,
			o.Start.Format("2006-01-02 15:04"), o.End.Format("2006-01-02 15:04"))
	}
}

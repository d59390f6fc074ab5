package scheduler

import (
	"context"
	"fmt"
	"time"

	"stockloader/pkg/core"
	"stockloader/pkg/downloader"
)

// DownloadExecutor 把调度任务翻译为管理器的批量下载调用
type DownloadExecutor struct {
	manager *downloader.Manager
}

// NewDownloadExecutor 创建下载任务执行器
func NewDownloadExecutor(manager *downloader.Manager) *DownloadExecutor {
	return &DownloadExecutor{manager: manager}
}

// Execute 执行一次下载任务。
// 时间窗口为 [now-lookback, now]；任意一个代码下载失败时返回错误，
// 但不中断其余代码的下载（失败隔离由 DownloadMany 保证）。
func (e *DownloadExecutor) Execute(ctx context.Context, job *Job) error {
	end := time.Now()
	start := end.Add(-job.Config.Lookback)
	if job.Config.Lookback <= 0 {
		start = end.AddDate(0, 0, -1)
	}

	requests := make([]core.DownloadRequest, 0, len(job.Config.Symbols))
	for _, symbol := range job.Config.Symbols {
		request, err := core.NewDownloadRequest(symbol, job.Config.Exchange, start, end, job.Config.Interval)
		if err != nil {
			return fmt.Errorf("invalid request for %s: %w", symbol, err)
		}
		requests = append(requests, request)
	}

	results := e.manager.DownloadMany(ctx, requests, job.Config.Source, job.Config.Persist)

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d/%d symbols failed", failed, len(results))
	}

	return nil
}

// 确保 DownloadExecutor 实现了 JobExecutor 接口
var _ JobExecutor = (*DownloadExecutor)(nil)

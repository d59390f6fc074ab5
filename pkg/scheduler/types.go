package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"stockloader/pkg/core"
)

// JobConfig 定义单个下载任务的配置
type JobConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Schedule string `yaml:"schedule" mapstructure:"schedule"` // cron 表达式（支持秒级）

	Source   core.DataSource `yaml:"source" mapstructure:"source"`     // 数据源标识
	Symbols  []string        `yaml:"symbols" mapstructure:"symbols"`   // 股票代码列表
	Exchange core.Exchange   `yaml:"exchange" mapstructure:"exchange"` // 交易所
	Interval core.Interval   `yaml:"interval" mapstructure:"interval"` // 时间周期
	Lookback time.Duration   `yaml:"lookback" mapstructure:"lookback"` // 每次执行回溯的时间窗口
	Persist  bool            `yaml:"persist" mapstructure:"persist"`   // 是否落库
}

// JobsConfig 定义整个任务配置文件结构
type JobsConfig struct {
	Jobs []JobConfig `yaml:"jobs" mapstructure:"jobs"`
}

// Job 表示一个运行中的任务
type Job struct {
	ID         string
	Config     JobConfig
	EntryID    cron.EntryID
	Status     JobStatus
	LastRun    *time.Time
	NextRun    *time.Time
	RunCount   int64
	ErrorCount int64
	LastError  error
}

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusStopped  JobStatus = "stopped"
	JobStatusError    JobStatus = "error"
	JobStatusDisabled JobStatus = "disabled"
)

// JobExecutor 任务执行器接口
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

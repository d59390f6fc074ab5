package core

import "errors"

// 定义核心错误
var (
	// ErrUnknownDataSource 未注册的数据源，属于调用方编码错误
	ErrUnknownDataSource = errors.New("unknown data source")

	// ErrNotConnected 下载器尚未初始化连接
	ErrNotConnected = errors.New("downloader is not connected")

	// ErrUnsupportedInterval 下载器不支持请求的时间周期
	ErrUnsupportedInterval = errors.New("unsupported interval")

	// ErrUnsupportedExchange 下载器不支持请求的交易所
	ErrUnsupportedExchange = errors.New("unsupported exchange")

	// ErrEmptySymbol 股票代码为空
	ErrEmptySymbol = errors.New("symbol cannot be empty")

	// ErrInvalidTimeRange 开始时间晚于结束时间
	ErrInvalidTimeRange = errors.New("start time is after end time")
)

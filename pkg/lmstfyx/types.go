package lmstfyx

import (
	"context"

	"github.com/bitleak/lmstfy/client"
)

// Proc 任务处理函数（domains.GetProcess 返回值）
type Proc func(ctx context.Context, job *client.Job) *JobResp

// JobRespStatus 任务处理后对消息的动作
type JobRespStatus int

const (
	// JobRespStatusSuccess 处理完成，ACK
	JobRespStatusSuccess JobRespStatus = iota
	// JobRespStatusRelease 可重试失败，不 ACK，TTR 到期后重新投递
	JobRespStatusRelease
	// JobRespStatusBury 不可重试失败，ACK 并记录错误日志
	JobRespStatusBury
)

// String 日志输出用
func (s JobRespStatus) String() string {
	switch s {
	case JobRespStatusSuccess:
		return "success"
	case JobRespStatusRelease:
		return "release"
	case JobRespStatusBury:
		return "bury"
	}
	return "unknown"
}

// JobResp 任务处理结果
type JobResp struct {
	Action JobRespStatus
	Data   []byte // 序列化后的响应，写入日志
}

// Success 成功结果
func Success(data []byte) *JobResp {
	return &JobResp{Action: JobRespStatusSuccess, Data: data}
}

// Release 重试结果
func Release(data []byte) *JobResp {
	return &JobResp{Action: JobRespStatusRelease, Data: data}
}

// Bury 丢弃结果
func Bury(data []byte) *JobResp {
	return &JobResp{Action: JobRespStatusBury, Data: data}
}

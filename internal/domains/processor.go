package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"agrichain/advisor/internal/domains/common"
	"agrichain/advisor/internal/domains/common/job"
	"agrichain/advisor/internal/domains/common/response"
	"agrichain/advisor/pkg/lmstfyx"
	"agrichain/advisor/pkg/logger"
)

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(log logger.Logger, deps *common.Deps) lmstfyx.Proc {
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		meta, bizPayload, err := parseJob(ctx, lmstfyJob, log)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed: %v", err)
			return lmstfyx.Bury([]byte(err.Error()))
		}

		// 2. 注入 TraceID 到 Context
		ctx = logger.WithTraceID(ctx, meta.RequestID)
		ctx = logger.WithActionType(ctx, meta.ActionType)

		log.Infof(ctx, "[GetProcess] Processing job: action_type=%s, request_id=%s, id=%s",
			meta.ActionType, meta.RequestID, meta.ID)

		// 3. 从 HandlerMap 获取 Handler
		handlerFunc, ok := HandlerMap[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			return lmstfyx.Bury([]byte("unknown action_type " + meta.ActionType))
		}

		// 4. 调用 Handler（捕获 panic）
		resp := runHandler(ctx, handlerFunc, meta, bizPayload, deps, log)

		log.Infof(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", resp.Action, time.Since(startTime))
		return resp
	}
}

func runHandler(
	ctx context.Context,
	handlerFunc common.HandlerServProc,
	meta *job.Meta,
	bizPayload json.RawMessage,
	deps *common.Deps,
	log logger.Logger,
) (resp *lmstfyx.JobResp) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
			resp = lmstfyx.Bury([]byte(fmt.Sprintf("panic: %v", r)))
		}
	}()

	handler, err := handlerFunc(ctx, meta, bizPayload, deps)
	if err != nil {
		log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
		return lmstfyx.Bury([]byte(err.Error()))
	}

	return doJobReport(ctx, handler.GetProcess(), log)
}

// parseJob 解析 Job，request_id 为空时生成
func parseJob(ctx context.Context, lmstfyJob *client.Job, log logger.Logger) (*job.Meta, json.RawMessage, error) {
	if lmstfyJob == nil {
		return nil, nil, fmt.Errorf("nil job")
	}

	var standardJob job.Job
	if err := json.Unmarshal(lmstfyJob.Data, &standardJob); err != nil {
		return nil, nil, fmt.Errorf("json unmarshal failed: %w", err)
	}
	if standardJob.Payload == nil || standardJob.Payload.Data == nil {
		return nil, nil, fmt.Errorf("invalid job structure: payload.data is nil")
	}

	data := standardJob.Payload.Data
	meta := &job.Meta{
		RequestID:  data.RequestID,
		OrgID:      data.OrgID,
		ActionType: data.ActionType,
		ID:         data.ID,
	}
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}

	log.Debugf(ctx, "[parseJob] Parsed: action_type=%s, request_id=%s, id=%s",
		meta.ActionType, meta.RequestID, meta.ID)

	return meta, data.Data, nil
}

// doJobReport 根据 Response 决定 ACK / Release / Bury
func doJobReport(ctx context.Context, resp *response.Response, log logger.Logger) *lmstfyx.JobResp {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Errorf(ctx, "[doJobReport] marshal response failed: %v", err)
		return lmstfyx.Bury(nil)
	}

	switch {
	case resp.Error == nil:
		return lmstfyx.Success(data)
	case resp.Retryable():
		log.Warnf(ctx, "[doJobReport] retryable failure: %s", resp.Error.Error())
		return lmstfyx.Release(data)
	default:
		log.Errorf(ctx, "[doJobReport] non-retryable failure: %s", resp.Error.Error())
		return lmstfyx.Bury(data)
	}
}

package errorutil

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	// KindDataSourceUnavailable 数据源不可达（规则库/行情/天气/缓存），降级继续
	KindDataSourceUnavailable Kind = "DataSourceUnavailable"
	// KindValidation 入参非法，上游拒绝，不可恢复
	KindValidation Kind = "ValidationError"
	// KindComputation 计算异常（规则区间倒置、未知等级），按不匹配处理
	KindComputation Kind = "ComputationError"
)

// 哨兵错误，配合 errors.Is 使用
var (
	ErrDataSourceUnavailable = &Error{Kind: KindDataSourceUnavailable, Message: "data source unavailable"}
	ErrValidation            = &Error{Kind: KindValidation, Message: "validation error"}
	ErrComputation           = &Error{Kind: KindComputation, Message: "computation error"}
)

// Error 错误结构（包含可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Kind       Kind   `json:"kind,omitempty"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`

	cause error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap 暴露底层错误
func (e *Error) Unwrap() error {
	return e.cause
}

// Is 同类别即视为匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind != "" && t.Kind == e.Kind
}

// Retriable 创建可重试错误（网络错误、临时故障等）
func Retriable(message string) *Error {
	return &Error{
		Code:      500,
		Message:   message,
		Retryable: true,
	}
}

// RetriableWithDetails 创建可重试错误（带详细信息）
func RetriableWithDetails(message string, details string) *Error {
	return &Error{
		Code:       500,
		Message:    message,
		Retryable:  true,
		DevDetails: details,
	}
}

// NonRetriable 创建不可重试错误（参数错误、业务规则错误等）
func NonRetriable(message string) *Error {
	return &Error{
		Code:      400,
		Message:   message,
		Retryable: false,
	}
}

// Unavailable 数据源不可达
func Unavailable(source string, cause error) *Error {
	return &Error{
		Code:      503,
		Kind:      KindDataSourceUnavailable,
		Message:   fmt.Sprintf("%s unavailable", source),
		Retryable: true,
		cause:     cause,
	}
}

// Invalid 入参校验失败
func Invalid(field string, message string) *Error {
	return &Error{
		Code:      400,
		Kind:      KindValidation,
		Message:   fmt.Sprintf("invalid %s: %s", field, message),
		Retryable: false,
	}
}

// Computation 计算异常
func Computation(message string) *Error {
	return &Error{
		Code:      500,
		Kind:      KindComputation,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable 判断错误链上是否有可重试标记
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Wrap 包装错误（自动判断是否可重试）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	// 错误链上已有 Error 类型，直接返回
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认为不可重试错误
	return &Error{
		Code:       500,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
	}
}

// UnWrapResponse 解包错误（用于 Response）
func UnWrapResponse(err error) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err)
}

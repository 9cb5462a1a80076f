package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind,omitempty"`
	Cause   error  `json:"-"`
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Code: %d, Message: %s, Cause: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func (e *CodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	ServiceUnavailable  = 503
)

// 常用预定义错误
var (
	ErrSuccess     = New(OK, "Success")
	ErrServerError = New(InternalServerError, "系统错误，请联系工作人员")
	ErrParam       = New(BadRequest, "参数错误")
)

// Kind 同步器对外暴露的错误分类，调用方只需要关心这几类
type Kind string

const (
	KindNone             Kind = ""
	KindValidation       Kind = "validation_error"
	KindStoreUnavailable Kind = "store_unavailable"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindPartialFailure   Kind = "partial_failure"
)

// Code 映射为响应码
func (k Kind) Code() int {
	switch k {
	case KindNone:
		return OK
	case KindValidation:
		return BadRequest
	case KindNotFound:
		return NotFound
	case KindConflict:
		return Conflict
	case KindStoreUnavailable:
		return ServiceUnavailable
	default:
		return InternalServerError
	}
}

// Wrap 按分类包装底层错误
func Wrap(kind Kind, msg string, cause error) *CodeError {
	return &CodeError{Code: kind.Code(), Message: msg, Kind: kind, Cause: cause}
}

// KindOf 取出错误分类；非 CodeError 视为 store_unavailable
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ce *CodeError
	if errors.As(err, &ce) && ce.Kind != KindNone {
		return ce.Kind
	}
	return KindStoreUnavailable
}

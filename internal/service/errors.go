package service

import (
	"errors"
	"fmt"
)

// Kind 是业务错误的分类，由 handler 统一映射为 HTTP 状态码。
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindBadRequest
	KindNotFound
	KindForbidden
	KindRateLimited
	KindUpstream
	KindUnavailable
)

// Error 是服务层返回的带分类错误。Message 会原样返回给客户端。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// ErrUnauthorized 对应未登录或会话无效。
var ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}

// KindOf 返回 err 的分类，非 *Error 视为 KindInternal。
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// MessageOf 返回 err 中面向客户端的提示，非 *Error 时返回 fallback。
func MessageOf(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

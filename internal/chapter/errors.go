package chapter

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindInvalidRequest Kind = "INVALID_REQUEST"
	KindFetch          Kind = "FETCH_ERROR"
	KindExtraction     Kind = "EXTRACTION_ERROR"
	KindTranslation    Kind = "TRANSLATION_ERROR"
	KindPersistence    Kind = "PERSISTENCE_ERROR"
)

// 每个类别的哨兵错误，配合 errors.Is 使用
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrFetch          = errors.New("fetch failed")
	ErrExtraction     = errors.New("extraction failed")
	ErrTranslation    = errors.New("translation failed")
	ErrPersistence    = errors.New("persistence failed")
)

// MsgNoContent 找不到正文容器时返回给调用方的消息
const MsgNoContent = "No content found"

// Error 管道错误
type Error struct {
	Kind    Kind   // 错误类别
	Message string // 面向用户的消息
	Cause   error  // 原因
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap 返回原因错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按类别匹配哨兵错误
func (e *Error) Is(target error) bool {
	return sentinel(e.Kind) == target
}

func sentinel(kind Kind) error {
	switch kind {
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindFetch:
		return ErrFetch
	case KindExtraction:
		return ErrExtraction
	case KindTranslation:
		return ErrTranslation
	case KindPersistence:
		return ErrPersistence
	}
	return nil
}

// NewError 创建管道错误
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// InvalidRequest 请求参数不合法
func InvalidRequest(message string) *Error {
	return NewError(KindInvalidRequest, message, nil)
}

// FetchError 源站不可达或返回异常
func FetchError(cause error) *Error {
	return NewError(KindFetch, "Failed to fetch chapter: "+errMessage(cause), cause)
}

// ExtractionError 正文提取失败
func ExtractionError(message string) *Error {
	return NewError(KindExtraction, message, nil)
}

// TranslationError 翻译后端调用失败，消息沿用后端的错误信息
func TranslationError(cause error) *Error {
	return NewError(KindTranslation, errMessage(cause), cause)
}

// PersistenceError 存储或静态发布失败
func PersistenceError(target string, cause error) *Error {
	return NewError(KindPersistence, "failed to persist to "+target, cause)
}

// UserMessage 取出适合放进 error 事件的可读消息
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

func errMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

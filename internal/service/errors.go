package service

import (
	"WhatsInbox/internal/pkg/webhook"
	"WhatsInbox/internal/repository"
	"errors"
)

const (
	BadRequest          = 400
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

var (
	ErrParamInvalid     = errors.New("invalid parameters")
	ErrMessageNotFound  = errors.New("message not found")
	ErrStorage          = errors.New("storage unavailable")
	ErrTooManyRequests  = errors.New("too many requests, please try again later")
	ErrMalformedPayload = webhook.ErrMalformedPayload
	UnExpectedError     = errors.New("unexpected error, please try again later")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:               BadRequest,
	ErrMessageNotFound:            NotFound,
	ErrStorage:                    InternalServerError,
	ErrTooManyRequests:            TooManyRequests,
	ErrMalformedPayload:           BadRequest,
	repository.ErrStorage:         InternalServerError,
	repository.ErrMessageNotFound: NotFound,
	UnExpectedError:               InternalServerError,
}

// ResolveCode 沿错误链查找业务码
func ResolveCode(err error) (int, bool) {
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return code, true
		}
	}
	return 0, false
}

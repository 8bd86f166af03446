package response

import (
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/service"
	"errors"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

// Success 成功返回封装
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装，4xx/5xx 业务码同时作为 HTTP 状态码
func Fail(c *gin.Context, businessCode int, message string) {
	status := http.StatusOK
	if businessCode >= 400 && businessCode < 600 {
		status = businessCode
	}
	c.JSON(status, dto.Response{
		Code:    businessCode,
		Message: message,
		Data:    nil,
	})
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, BadRequest, service.ErrParamInvalid.Error())
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		Fail(c, BadRequest, "invalid json")
		return
	}

	code, ok := service.ResolveCode(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "Error", "err", err)
		Fail(c, InternalServerError, service.UnExpectedError.Error())
		return
	}
	if code >= InternalServerError {
		log.ErrorContext(c.Request.Context(), "Error", "err", err)
	}
	Fail(c, code, err.Error())
}

package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

// APIResponse is the envelope every endpoint answers with. Data is kept as an
// interface so an empty list still serializes as [] rather than being dropped.
type APIResponse struct {
	Status     int                   `json:"status"`
	Timestamp  time.Time             `json:"timestamp"`
	RequestID  string                `json:"request_id"`
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	Data       interface{}           `json:"data,omitempty"`
	Errors     []apperror.FieldError `json:"errors,omitempty"`
	Pagination interface{}           `json:"pagination,omitempty"`
}

func envelope(ctx *gin.Context, status int, success bool, message string) APIResponse {
	return APIResponse{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   success,
		Message:   message,
	}
}

// Success writes a successful envelope. A nil data is omitted.
func Success[T any](ctx *gin.Context, status int, data T, message string) APIResponse {
	if status == 0 {
		status = http.StatusOK
	}
	resp := envelope(ctx, status, true, message)
	if any(data) != nil {
		resp.Data = data
	}
	ctx.JSON(status, resp)
	return resp
}

// Paginated writes a successful list envelope with its pagination block.
func Paginated[T any](ctx *gin.Context, data T, message string, pagination interface{}) APIResponse {
	resp := envelope(ctx, http.StatusOK, true, message)
	resp.Data = data
	resp.Pagination = pagination
	ctx.JSON(http.StatusOK, resp)
	return resp
}

// Error writes a failed envelope and aborts the handler chain.
func Error(ctx *gin.Context, status int, message string, errs []apperror.FieldError) APIResponse {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := envelope(ctx, status, false, message)
	resp.Errors = errs
	ctx.AbortWithStatusJSON(status, resp)
	return resp
}

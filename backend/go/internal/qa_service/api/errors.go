package api

import (
	"AskBot/backend/go/internal/qa_service/service"
	"AskBot/backend/go/internal/qa_service/store"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// writeError 把领域错误映射为 HTTP 状态码和 {"error": ...} 响应体。
func (a *API) writeError(c *gin.Context, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		a.logger.WithTraceID(traceID(c)).WithErr(err).Error("请求处理失败")
	}
	c.JSON(status, gin.H{"error": msg})
}

func classify(err error) (int, string) {
	var genErr *service.GenerationError
	var parseErr *service.ParseError
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest, "Thiếu dữ liệu"
	case errors.Is(err, store.ErrInvalidIdentifier):
		return http.StatusBadRequest, "ID không hợp lệ"
	case errors.Is(err, store.ErrNothingToUpdate):
		return http.StatusBadRequest, "Không có gì để cập nhật"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Không tìm thấy ID"
	case errors.Is(err, service.ErrHandshakeRejected):
		return http.StatusForbidden, "Verification failed"
	case errors.Is(err, service.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable, service.NotConfiguredAnswer
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout, "Hết thời gian chờ phản hồi"
	case errors.As(err, &genErr):
		return http.StatusBadGateway, "Không thể tạo câu trả lời"
	case errors.As(err, &parseErr):
		if parseErr.Unreadable {
			return http.StatusInternalServerError, parseErr.Error()
		}
		return http.StatusBadRequest, parseErr.Error()
	default:
		return http.StatusInternalServerError, "Lỗi hệ thống"
	}
}

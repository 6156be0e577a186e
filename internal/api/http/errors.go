package http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/service"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusFor maps a filesystem or registry error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, pipefs.ErrNotFound),
		errors.Is(err, pipefs.ErrNoSuchPipe),
		errors.Is(err, vfs.ErrNoSuchFS),
		errors.Is(err, service.ErrServiceNotFound),
		errors.Is(err, service.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipefs.ErrExists), errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, pipefs.ErrNoSpace):
		return http.StatusInsufficientStorage
	case errors.Is(err, pipefs.ErrRemoved):
		return http.StatusGone
	case errors.Is(err, pipefs.ErrInvalid),
		errors.Is(err, pipefs.ErrBadHandle),
		errors.Is(err, vfs.ErrBadPath),
		errors.Is(err, vfs.ErrBadFD),
		errors.Is(err, service.ErrInvalidToolID):
		return http.StatusBadRequest
	case errors.Is(err, vfs.ErrLimit):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  vfs.ResultCode(err),
	})
}

// failTransfer reports an interrupted read or write along with the
// bytes that were moved before it stopped.
func (h *Handlers) failTransfer(c *gin.Context, err error, n int, data []byte) {
	body := gin.H{
		"error":       err.Error(),
		"code":        vfs.ResultCode(err),
		"transferred": n,
	}
	if len(data) > 0 {
		body["data"] = base64.StdEncoding.EncodeToString(data)
	}
	_ = c.Error(err)
	c.Header(BytesHeader, itoa(n))
	c.JSON(StatusFor(err), body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": message,
		"code":  vfs.Invalid,
	})
}

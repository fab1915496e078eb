package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage/archive"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/allocate"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/mount"
)

var errMissingPath = errors.New("path is required")

// statusFor maps a file system error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrInvalid), errors.Is(err, mount.ErrRootMount):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrExist),
		errors.Is(err, mount.ErrAlreadyMounted),
		errors.Is(err, allocate.ErrTooManyCollisions):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotDir),
		errors.Is(err, storage.ErrIsDir),
		errors.Is(err, storage.ErrCrossDevice),
		errors.Is(err, archive.ErrUnreadable),
		errors.Is(err, mount.ErrUnreadable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

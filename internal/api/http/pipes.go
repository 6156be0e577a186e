package http

import (
	"net/http"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
	"github.com/gin-gonic/gin"
)

func pipePath(name string) string {
	return vfs.JoinPath(pipefs.VolumeName, name)
}

// ListPipes lists pipes, optionally filtered by the glob in ?match.
func (h *Handlers) ListPipes(c *gin.Context) {
	var (
		pipes []pipefs.Info
		err   error
	)
	if match := c.Query("match"); match != "" {
		pipes, err = h.fs.Glob(match)
		if err != nil {
			h.fail(c, err)
			return
		}
	} else {
		pipes = h.fs.List()
	}

	c.JSON(http.StatusOK, gin.H{
		"pipes": pipes,
		"count": len(pipes),
	})
}

// CreatePipe creates a pipe
func (h *Handlers) CreatePipe(c *gin.Context) {
	var req types.CreatePipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.vfs.Create(pipePath(req.Name), req.Size); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"path":    pipePath(req.Name),
	})
}

// GetPipe describes one pipe
func (h *Handlers) GetPipe(c *gin.Context) {
	handle, err := h.fs.Open(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer h.fs.Close(handle)

	info, err := h.fs.Stat(handle)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// DeletePipe removes a pipe, failing any transfer blocked on it.
func (h *Handlers) DeletePipe(c *gin.Context) {
	if err := h.vfs.Remove(pipePath(c.Param("name"))); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

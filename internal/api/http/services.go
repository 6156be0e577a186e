package http

import (
	"net/http"
	"strconv"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// ListServices lists registered services, or ranks them against ?q.
func (h *Handlers) ListServices(c *gin.Context) {
	if query := c.Query("q"); query != "" {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		services := h.registry.Discover(query, limit)
		c.JSON(http.StatusOK, gin.H{
			"services": services,
			"count":    len(services),
		})
		return
	}

	var category *types.Category
	if raw := c.Query("category"); raw != "" {
		cat := types.Category(raw)
		category = &cat
	}

	services := h.registry.List(category)
	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"count":    len(services),
		"stats":    h.registry.Stats(),
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	requestID := tracing.TraceID(c.Request.Context())
	if requestID == "" {
		requestID = id.NewRequestID().String()
	}
	appCtx := &types.Context{
		RequestID: requestID,
		ClientID:  c.ClientIP(),
	}

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

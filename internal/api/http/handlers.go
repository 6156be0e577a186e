package http

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/service"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint.
const Version = "0.3.0"

// Options bounds what a single request may do.
type Options struct {
	// MaxTransfer caps the bytes moved by one read or write request.
	MaxTransfer int
	// Timeout is the default wait for a partner when the request gives none.
	// Zero waits as long as the client stays connected.
	Timeout time.Duration
}

// DefaultOptions returns the limits used by the server.
func DefaultOptions() Options {
	return Options{MaxTransfer: 1 << 20}
}

// Handlers contains all HTTP handlers
type Handlers struct {
	fs       *pipefs.FS
	vfs      *vfs.VFS
	registry *service.Registry
	metrics  *monitoring.Metrics
	log      *zap.Logger
	opts     Options
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(fs *pipefs.FS, v *vfs.VFS, registry *service.Registry, metrics *monitoring.Metrics, log *zap.Logger, opts Options) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxTransfer <= 0 {
		opts.MaxTransfer = DefaultOptions().MaxTransfer
	}
	return &Handlers{
		fs:       fs,
		vfs:      v,
		registry: registry,
		metrics:  metrics,
		log:      log,
		opts:     opts,
	}
}

// Routes registers every REST route on r.
func (h *Handlers) Routes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/fs", h.FSInfo)

	pipes := r.Group("/pipes")
	{
		pipes.GET("", h.ListPipes)
		pipes.POST("", h.CreatePipe)
		pipes.GET("/:name", h.GetPipe)
		pipes.DELETE("/:name", h.DeletePipe)
		pipes.GET("/:name/read", h.ReadPipe)
		pipes.POST("/:name/write", h.WritePipe)
	}

	services := r.Group("/services")
	{
		services.GET("", h.ListServices)
		services.POST("/execute", h.ExecuteService)
	}

	if h.metrics != nil {
		r.GET("/metrics/json", h.MetricsJSON)
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "pipefs",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	readers, writers := h.fs.Waiting()
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service_registry": h.registry.Stats(),
		"pipes": gin.H{
			"capacity":        h.fs.Capacity(),
			"free":            h.fs.GetFree(),
			"readers_waiting": readers,
			"writers_waiting": writers,
		},
		"open_files": h.vfs.OpenCount(),
	})
}

// FSInfo reports the capacity and usage of the pipe volume.
func (h *Handlers) FSInfo(c *gin.Context) {
	free, used := h.fs.Usage()

	c.JSON(http.StatusOK, types.FSInfo{
		Volume:     pipefs.VolumeName,
		Capacity:   h.fs.Capacity(),
		Free:       free,
		Used:       used,
		BufferSize: h.fs.BufferSize(),
		OpenFiles:  h.vfs.OpenCount(),
	})
}

// MetricsJSON returns the metrics snapshot.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

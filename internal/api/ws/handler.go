package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AgentOS/pipefs/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

// Options tunes a connection.
type Options struct {
	// MaxTransfer caps the size of one read or write frame.
	MaxTransfer int
	// PingInterval is how often the server pings. Zero disables keep-alive.
	PingInterval time.Duration
	// WriteTimeout bounds each frame sent to the client.
	WriteTimeout time.Duration
	// QueueSize is the number of transfers a connection may have pending.
	QueueSize int
}

// DefaultOptions returns the options used by the server.
func DefaultOptions() Options {
	return Options{
		MaxTransfer:  1 << 20,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		QueueSize:    16,
	}
}

// Handler manages WebSocket connections
type Handler struct {
	vfs      *vfs.VFS
	metrics  *monitoring.Metrics
	log      *zap.Logger
	opts     Options
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(v *vfs.VFS, metrics *monitoring.Metrics, log *zap.Logger, opts Options) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.MaxTransfer <= 0 {
		opts.MaxTransfer = def.MaxTransfer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	return &Handler{
		vfs:     v,
		metrics: metrics,
		log:     log,
		opts:    opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS is enforced by the HTTP middleware
			},
		},
	}
}

// HandleConnection upgrades the request and serves frames until the
// client goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	name := c.Param("name")
	fd, err := h.vfs.Open(vfs.JoinPath(pipefs.VolumeName, name))
	if err != nil {
		c.JSON(apihttp.StatusFor(err), gin.H{
			"error": err.Error(),
			"code":  vfs.ResultCode(err),
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.String("pipe", name), zap.Error(err))
		_ = h.vfs.Close(fd)
		return
	}
	defer conn.Close()

	s := &session{
		id:   uuid.NewString(),
		pipe: name,
		fd:   fd,
		conn: conn,
		h:    h,
	}
	s.log = h.log.With(zap.String("conn_id", s.id), zap.String("pipe", name))
	s.log.Info("WebSocket connected")
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	ops := make(chan Frame, h.opts.QueueSize)
	go s.work(ctx, ops)

	if h.opts.PingInterval > 0 {
		go s.keepAlive(ctx)
	}

	_ = s.send(Frame{Type: TypeSystem, ConnectionID: s.id, Pipe: name})
	s.serve(ops)

	cancel()
	close(ops)
	s.log.Info("WebSocket disconnected")
}

type session struct {
	id   string
	pipe string
	fd   int
	conn *websocket.Conn
	h    *Handler
	log  *zap.Logger

	sendMu sync.Mutex
}

// serve reads frames until the connection fails. Transfers are queued
// for the worker; everything else is answered inline.
func (s *session) serve(ops chan<- Frame) {
	// base64 grows the payload by a third; leave room for the envelope.
	s.conn.SetReadLimit(int64(s.h.opts.MaxTransfer)*4/3 + 1024)
	s.extendDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendDeadline()
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		s.extendDeadline()

		var f Frame
		if err := sonic.Unmarshal(raw, &f); err != nil {
			_ = s.sendError("malformed frame", vfs.Invalid, 0)
			continue
		}
		s.record("in", f.Type)

		switch f.Type {
		case TypePing:
			_ = s.send(Frame{Type: TypePong})
		case TypeRead, TypeWrite:
			select {
			case ops <- f:
			default:
				_ = s.sendError("too many pending transfers", vfs.Limit, 0)
			}
		default:
			_ = s.sendError("unknown message type", vfs.Invalid, 0)
		}
	}
}

func (s *session) extendDeadline() {
	if s.h.opts.PingInterval > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(2 * s.h.opts.PingInterval))
	}
}

func (s *session) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.h.opts.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// work runs transfers in arrival order and owns the descriptor.
func (s *session) work(ctx context.Context, ops <-chan Frame) {
	defer func() { _ = s.h.vfs.Close(s.fd) }()

	for f := range ops {
		if ctx.Err() != nil {
			continue
		}
		switch f.Type {
		case TypeRead:
			s.read(ctx, f)
		case TypeWrite:
			s.write(ctx, f)
		}
	}
}

func (s *session) read(ctx context.Context, f Frame) {
	if f.Size < 0 || f.Size > s.h.opts.MaxTransfer {
		_ = s.sendError("size out of range", vfs.Invalid, 0)
		return
	}

	buf := make([]byte, f.Size)
	n, err := s.h.vfs.Read(ctx, s.fd, buf)
	if n > 0 || err == nil {
		_ = s.send(dataFrame(buf[:n], f.Encoding))
	}
	if err != nil {
		s.log.Debug("Read failed", zap.Int("bytes", n), zap.Error(err))
		_ = s.sendError(err.Error(), vfs.ResultCode(err), n)
	}
}

func (s *session) write(ctx context.Context, f Frame) {
	data, err := f.Payload()
	if err != nil {
		_ = s.sendError(err.Error(), vfs.Invalid, 0)
		return
	}
	if len(data) > s.h.opts.MaxTransfer {
		_ = s.sendError("payload exceeds the transfer limit", vfs.Invalid, 0)
		return
	}

	n, err := s.h.vfs.Write(ctx, s.fd, data)
	if err != nil {
		s.log.Debug("Write failed", zap.Int("bytes", n), zap.Error(err))
		_ = s.sendError(err.Error(), vfs.ResultCode(err), n)
		return
	}
	_ = s.send(Frame{Type: TypeWritten, Bytes: n})
}

func (s *session) send(f Frame) error {
	f.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(f)
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.opts.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	s.record("out", f.Type)
	return nil
}

func (s *session) sendError(message string, code, transferred int) error {
	return s.send(Frame{Type: TypeError, Message: message, Code: code, Bytes: transferred})
}

func (s *session) record(direction, msgType string) {
	if s.h.metrics != nil {
		s.h.metrics.RecordWSMessage(direction, msgType)
	}
}

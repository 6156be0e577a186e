package pipe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

// Provider exposes the pipe volume as service tools. Descriptors come
// from the VFS open-file table; listing and statistics read the pipe
// filesystem directly.
type Provider struct {
	vfs *vfs.VFS
	fs  *pipefs.FS
	log *zap.Logger
}

// NewProvider creates a pipe provider. fs must be mounted in v under
// pipefs.VolumeName.
func NewProvider(v *vfs.VFS, fs *pipefs.FS, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{vfs: v, fs: fs, log: log}
}

// Definition returns the service definition.
func (p *Provider) Definition() types.Service {
	return definition()
}

// Execute handles pipe tool execution.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	switch toolID {
	case "pipe.create":
		return p.create(params)
	case "pipe.open":
		return p.open(params)
	case "pipe.close":
		return p.close(params)
	case "pipe.remove":
		return p.remove(params)
	case "pipe.read":
		return p.read(ctx, params)
	case "pipe.write":
		return p.write(ctx, params)
	case "pipe.list":
		return p.list(params)
	case "pipe.stats":
		return p.stats(params)
	default:
		msg := fmt.Sprintf("unknown tool: %s", toolID)
		return &types.Result{Success: false, Code: vfs.Error, Error: &msg}, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func path(name string) string {
	return vfs.JoinPath(pipefs.VolumeName, name)
}

func (p *Provider) create(params map[string]interface{}) (*types.Result, error) {
	name, ok := getString(params, "name")
	if !ok {
		return invalid("name is required")
	}
	size, _, err := getInt(params, "size")
	if err != nil {
		return invalid(err.Error())
	}

	if err := p.vfs.Create(path(name), size); err != nil {
		return failed(err)
	}
	return success(map[string]interface{}{"path": path(name)})
}

func (p *Provider) open(params map[string]interface{}) (*types.Result, error) {
	name, ok := getString(params, "name")
	if !ok {
		return invalid("name is required")
	}
	fd, err := p.vfs.Open(path(name))
	if err != nil {
		return failed(err)
	}
	return success(map[string]interface{}{"fd": fd})
}

func (p *Provider) close(params map[string]interface{}) (*types.Result, error) {
	fd, ok, err := getInt(params, "fd")
	if err != nil || !ok {
		return invalid("fd is required")
	}
	if err := p.vfs.Close(fd); err != nil {
		return failed(err)
	}
	return success(nil)
}

func (p *Provider) remove(params map[string]interface{}) (*types.Result, error) {
	name, ok := getString(params, "name")
	if !ok {
		return invalid("name is required")
	}
	if err := p.vfs.Remove(path(name)); err != nil {
		return failed(err)
	}
	return success(nil)
}

// descriptor resolves the fd parameter, or opens name for the duration
// of one call. release must be called when the transfer is done.
func (p *Provider) descriptor(params map[string]interface{}) (fd int, release func(), err error) {
	fd, ok, err := getInt(params, "fd")
	if err != nil {
		return -1, nil, err
	}
	if ok {
		return fd, func() {}, nil
	}

	name, ok := getString(params, "name")
	if !ok {
		return -1, nil, fmt.Errorf("fd or name is required")
	}
	fd, err = p.vfs.Open(path(name))
	if err != nil {
		return -1, nil, err
	}
	return fd, func() { _ = p.vfs.Close(fd) }, nil
}

// withTimeout bounds the wait for a partner when timeout_ms is given.
func withTimeout(ctx context.Context, params map[string]interface{}) (context.Context, context.CancelFunc, error) {
	ms, ok, err := getInt(params, "timeout_ms")
	if err != nil {
		return nil, nil, err
	}
	if !ok || ms <= 0 {
		return ctx, func() {}, nil
	}
	c, cancel := context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
	return c, cancel, nil
}

func (p *Provider) read(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	size, ok, err := getInt(params, "size")
	if err != nil || !ok || size < 0 {
		return invalid("size must be a non-negative integer")
	}
	encoding, _ := getString(params, "encoding")
	if encoding != "" && encoding != "text" && encoding != "base64" {
		return invalid(fmt.Sprintf("unknown encoding %q", encoding))
	}

	ctx, cancel, err := withTimeout(ctx, params)
	if err != nil {
		return invalid(err.Error())
	}
	defer cancel()

	fd, release, err := p.descriptor(params)
	if err != nil {
		return failed(err)
	}
	defer release()

	buf := make([]byte, size)
	n, err := p.vfs.Read(ctx, fd, buf)
	data := map[string]interface{}{
		"data":  encode(buf[:n], encoding),
		"bytes": n,
	}
	if err != nil {
		res, _ := failed(err)
		res.Data = data
		return res, nil
	}
	return success(data)
}

func (p *Provider) write(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	raw, ok := getString(params, "data")
	if !ok {
		return invalid("data is required")
	}
	encoding, _ := getString(params, "encoding")
	payload, err := decode(raw, encoding)
	if err != nil {
		return invalid(err.Error())
	}

	ctx, cancel, err := withTimeout(ctx, params)
	if err != nil {
		return invalid(err.Error())
	}
	defer cancel()

	fd, release, err := p.descriptor(params)
	if err != nil {
		return failed(err)
	}
	defer release()

	n, err := p.vfs.Write(ctx, fd, payload)
	data := map[string]interface{}{"bytes_written": n}
	if err != nil {
		res, _ := failed(err)
		res.Data = data
		return res, nil
	}
	return success(data)
}

func (p *Provider) list(params map[string]interface{}) (*types.Result, error) {
	pattern, _ := getString(params, "match")
	infos, err := p.fs.Glob(pattern)
	if err != nil {
		return failed(err)
	}
	return success(map[string]interface{}{
		"pipes": infos,
		"count": len(infos),
	})
}

func (p *Provider) stats(params map[string]interface{}) (*types.Result, error) {
	name, ok := getString(params, "name")
	if !ok {
		free, used := p.fs.Usage()
		readers, writers := p.fs.Waiting()
		return success(map[string]interface{}{
			"capacity":        p.fs.Capacity(),
			"free":            free,
			"used":            used,
			"buffer_size":     p.fs.BufferSize(),
			"readers_waiting": readers,
			"writers_waiting": writers,
		})
	}

	h, err := p.fs.Open(name)
	if err != nil {
		return failed(err)
	}
	info, err := p.fs.Stat(h)
	if err != nil {
		return failed(err)
	}
	return success(map[string]interface{}{"pipe": info})
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Code: vfs.OK, Data: data}, nil
}

func failed(err error) (*types.Result, error) {
	msg := err.Error()
	return &types.Result{Success: false, Code: vfs.ResultCode(err), Error: &msg}, nil
}

func invalid(message string) (*types.Result, error) {
	return &types.Result{Success: false, Code: vfs.Invalid, Error: &message}, nil
}

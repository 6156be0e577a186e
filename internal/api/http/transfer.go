package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// BytesHeader carries the number of bytes a transfer moved.
const BytesHeader = "X-Pipe-Bytes"

// Bodies shorter than this are sent uncompressed.
const minCompressSize = 64

const (
	encodingZstd = "zstd"
	encodingGzip = "gzip"
)

var zstdEncoder, _ = zstd.NewWriter(nil)

func itoa(n int) string { return strconv.Itoa(n) }

// transferContext bounds the partner wait by ?timeout or the default.
func (h *Handlers) transferContext(c *gin.Context) (context.Context, context.CancelFunc, error) {
	timeout := h.opts.Timeout
	if raw := c.Query("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return nil, nil, fmt.Errorf("invalid timeout %q", raw)
		}
		timeout = d
	}
	if timeout == 0 {
		ctx, cancel := context.WithCancel(c.Request.Context())
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	return ctx, cancel, nil
}

// ReadPipe blocks until ?n bytes have been read from the pipe and
// returns them raw. n defaults to the pipe buffer size.
func (h *Handlers) ReadPipe(c *gin.Context) {
	n := h.fs.BufferSize()
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			badRequest(c, "n must be a non-negative integer")
			return
		}
		n = v
	}
	if n > h.opts.MaxTransfer {
		badRequest(c, fmt.Sprintf("n exceeds the transfer limit of %d bytes", h.opts.MaxTransfer))
		return
	}

	ctx, cancel, err := h.transferContext(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer cancel()

	fd, err := h.vfs.Open(pipePath(c.Param("name")))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer h.vfs.Close(fd)

	buf := make([]byte, n)
	got, err := h.vfs.Read(ctx, fd, buf)
	if err != nil {
		h.failTransfer(c, err, got, buf[:got])
		return
	}
	h.sendBytes(c, buf[:got])
}

// WritePipe writes the raw request body to the pipe. It returns once the
// last chunk is in the pipe buffer; a reader may still be consuming it.
func (h *Handlers) WritePipe(c *gin.Context) {
	data, err := h.readBody(c.Request)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, errBodyTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, errUnsupportedEncoding):
			status = http.StatusUnsupportedMediaType
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel, err := h.transferContext(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer cancel()

	fd, err := h.vfs.Open(pipePath(c.Param("name")))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer h.vfs.Close(fd)

	written, err := h.vfs.Write(ctx, fd, data)
	if err != nil {
		h.failTransfer(c, err, written, nil)
		return
	}

	c.Header(BytesHeader, itoa(written))
	c.JSON(http.StatusOK, gin.H{"written": written})
}

var (
	errBodyTooLarge        = errors.New("request body exceeds the transfer limit")
	errUnsupportedEncoding = errors.New("unsupported content encoding")
)

func (h *Handlers) readBody(r *http.Request) ([]byte, error) {
	var body io.Reader = r.Body

	switch strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case encodingGzip:
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer gz.Close()
		body = gz
	case encodingZstd:
		zr, err := zstd.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid zstd body: %w", err)
		}
		defer zr.Close()
		body = zr
	default:
		return nil, errUnsupportedEncoding
	}

	data, err := io.ReadAll(io.LimitReader(body, int64(h.opts.MaxTransfer)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) > h.opts.MaxTransfer {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// negotiate picks the response encoding from Accept-Encoding,
// preferring zstd.
func negotiate(accept string) string {
	var gz bool
	for _, part := range strings.Split(accept, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		switch strings.ToLower(strings.TrimSpace(coding)) {
		case encodingZstd:
			return encodingZstd
		case encodingGzip:
			gz = true
		}
	}
	if gz {
		return encodingGzip
	}
	return ""
}

func compress(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case encodingZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case encodingGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}

func (h *Handlers) sendBytes(c *gin.Context, data []byte) {
	contentType := mimetype.Detect(data).String()
	c.Header(BytesHeader, itoa(len(data)))
	c.Header("Vary", "Accept-Encoding")

	encoding := negotiate(c.GetHeader("Accept-Encoding"))
	if encoding == "" || len(data) < minCompressSize {
		c.Data(http.StatusOK, contentType, data)
		return
	}

	body, err := compress(data, encoding)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Encoding", encoding)
	c.Data(http.StatusOK, contentType, body)
}

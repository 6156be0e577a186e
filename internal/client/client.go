package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds each HTTP request. Blocking reads and writes need
	// room for the partner to show up; zero means no limit.
	Timeout time.Duration
	// Retries is the number of retries on 429 and 503 responses.
	Retries int
	// RateLimit caps requests per second; zero disables the limiter.
	RateLimit float64
	// Compress sends write bodies zstd-compressed.
	Compress bool
	Breaker  resilience.Settings
}

// DefaultConfig returns a client for a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8000",
		Retries: 3,
	}
}

// PipeInfo describes one pipe as reported by the server.
type PipeInfo struct {
	Handle         int    `json:"handle"`
	Name           string `json:"name"`
	State          string `json:"state"`
	Size           int    `json:"size"`
	Pending        int    `json:"pending"`
	Buffered       int    `json:"buffered"`
	ReadersWaiting int    `json:"readers_waiting"`
	WritersWaiting int    `json:"writers_waiting"`
}

// Client talks to a pipefs server.
type Client struct {
	resty    *resty.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	compress bool
	zstd     *zstd.Decoder
}

// New creates a client.
func New(cfg Config) *Client {
	// Pooled transport with sane dial and idle timeouts.
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	r := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTransport(retryClient.HTTPClient.Transport).
		SetHeader("User-Agent", "pipefs-client/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil || resp == nil {
				return false
			}
			return resp.StatusCode() == http.StatusTooManyRequests ||
				resp.StatusCode() == http.StatusServiceUnavailable
		})
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}

	settings := cfg.Breaker
	if settings.IsFailure == nil {
		settings.IsFailure = isTransportFailure
	}

	dec, _ := zstd.NewReader(nil)
	return &Client{
		resty:    r,
		limiter:  limiter,
		breaker:  resilience.New("pipefs-http", settings),
		compress: cfg.Compress,
		zstd:     dec,
	}
}

// Close releases the decoder resources.
func (c *Client) Close() {
	c.zstd.Close()
}

// Breaker exposes the client's circuit breaker.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return serverFault(apiErr.Status)
	}
	return !errors.Is(err, context.Canceled)
}

// do sends req and decodes an error body into *APIError.
func (c *Client) do(ctx context.Context, build func(*resty.Request) *resty.Request, method, url string) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	return resilience.Call(c.breaker, func() (*resty.Response, error) {
		resp, err := build(c.resty.R().SetContext(ctx)).Execute(method, url)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}
		if resp.IsError() {
			return resp, decodeError(resp)
		}
		return resp, nil
	})
}

func decodeError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode()}
	if err := sonic.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(resp.Body()))
	}
	return apiErr
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	_, err := c.do(ctx, func(r *resty.Request) *resty.Request { return r.SetResult(&out) }, http.MethodGet, "/health")
	return out, err
}

// Info returns the pipe volume summary.
func (c *Client) Info(ctx context.Context) (*types.FSInfo, error) {
	var out types.FSInfo
	_, err := c.do(ctx, func(r *resty.Request) *resty.Request { return r.SetResult(&out) }, http.MethodGet, "/fs")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create makes a pipe.
func (c *Client) Create(ctx context.Context, name string, size int) error {
	body := types.CreatePipeRequest{Name: name, Size: size}
	_, err := c.do(ctx, func(r *resty.Request) *resty.Request { return r.SetBody(body) }, http.MethodPost, "/pipes")
	return err
}

// Remove deletes a pipe, failing transfers blocked on it.
func (c *Client) Remove(ctx context.Context, name string) error {
	_, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		return r.SetPathParam("name", name)
	}, http.MethodDelete, "/pipes/{name}")
	return err
}

// List returns the pipes whose names match the glob; empty lists all.
func (c *Client) List(ctx context.Context, match string) ([]PipeInfo, error) {
	var out struct {
		Pipes []PipeInfo `json:"pipes"`
	}
	_, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		if match != "" {
			r.SetQueryParam("match", match)
		}
		return r.SetResult(&out)
	}, http.MethodGet, "/pipes")
	return out.Pipes, err
}

// Stat describes one pipe.
func (c *Client) Stat(ctx context.Context, name string) (*PipeInfo, error) {
	var out PipeInfo
	_, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		return r.SetPathParam("name", name).SetResult(&out)
	}, http.MethodGet, "/pipes/{name}")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Read blocks until n bytes were read from the pipe. timeout bounds the
// wait for a writer; zero waits indefinitely. On failure the returned
// *APIError carries any bytes that were moved.
func (c *Client) Read(ctx context.Context, name string, n int, timeout time.Duration) ([]byte, error) {
	resp, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.SetPathParam("name", name).
			SetQueryParam("n", strconv.Itoa(n)).
			SetHeader("Accept-Encoding", "zstd")
		if timeout > 0 {
			r.SetQueryParam("timeout", timeout.String())
		}
		return r
	}, http.MethodGet, "/pipes/{name}/read")
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	if resp.Header().Get("Content-Encoding") == "zstd" {
		body, err = c.zstd.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return body, nil
}

// Write writes data to the pipe and blocks until readers took all of it.
func (c *Client) Write(ctx context.Context, name string, data []byte, timeout time.Duration) (int, error) {
	body := data
	var encoding string
	if c.compress && len(data) > 0 {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return 0, err
		}
		body = enc.EncodeAll(data, nil)
		_ = enc.Close()
		encoding = "zstd"
	}

	var out struct {
		Written int `json:"written"`
	}
	_, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.SetPathParam("name", name).
			SetHeader("Content-Type", "application/octet-stream").
			SetBody(body).
			SetResult(&out)
		if encoding != "" {
			r.SetHeader("Content-Encoding", encoding)
		}
		if timeout > 0 {
			r.SetQueryParam("timeout", timeout.String())
		}
		return r
	}, http.MethodPost, "/pipes/{name}/write")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.Transferred, err
		}
		return 0, err
	}
	return out.Written, nil
}

// Execute runs a registry tool.
func (c *Client) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	var out types.Result
	req := types.ExecuteRequest{ToolID: toolID, Params: params}
	_, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		return r.SetBody(req).SetResult(&out)
	}, http.MethodPost, "/services/execute")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

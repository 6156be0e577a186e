package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/client"
	pipegrpc "github.com/GriffinCanCode/AgentOS/pipefs/internal/grpc"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
)

type running struct {
	srv      *Server
	httpAddr string
	grpcAddr string
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

func start(t *testing.T, mutate func(*config.Config)) *running {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Level = "warn"
	cfg.PipeFS.MaxPipes = 4
	cfg.PipeFS.BufferSize = 8
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		srv:      srv,
		httpAddr: "http://" + httpLis.Addr().String(),
		grpcAddr: grpcLis.Addr().String(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go func() {
		r.err = srv.Serve(ctx, httpLis, grpcLis)
		close(r.done)
	}()
	t.Cleanup(r.stop)
	return r
}

func (r *running) stop() {
	r.cancel()
	select {
	case <-r.done:
	case <-time.After(ShutdownTimeout + time.Second):
	}
}

func TestServesHTTPAndGRPC(t *testing.T) {
	r := start(t, nil)
	ctx := context.Background()

	c := client.New(client.Config{BaseURL: r.httpAddr})
	defer c.Close()
	require.NoError(t, c.Create(ctx, "jobs", 0))

	gc, err := pipegrpc.NewClient(r.grpcAddr, pipegrpc.ClientOptions{})
	require.NoError(t, err)
	defer gc.Close()

	res, err := gc.Execute(ctx, "pipe.list", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, float64(1), res.Data["count"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := start(t, nil)

	resp, err := http.Get(r.httpAddr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pipes_free")
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestShutdownFailsBlockedTransfers(t *testing.T) {
	r := start(t, func(cfg *config.Config) { cfg.Server.GRPCEnabled = false })
	ctx := context.Background()

	c := client.New(client.Config{BaseURL: r.httpAddr})
	defer c.Close()
	require.NoError(t, c.Create(ctx, "pending", 0))

	readErr := make(chan error, 1)
	go func() {
		_, err := c.Read(ctx, "pending", 4, 0)
		readErr <- err
	}()
	require.Eventually(t, func() bool {
		readers, _ := r.srv.FS().Waiting()
		return readers == 1
	}, 2*time.Second, time.Millisecond)

	r.cancel()
	select {
	case <-r.done:
		require.NoError(t, r.err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("server did not shut down")
	}

	err := <-readErr
	require.Error(t, err)
	assert.ErrorIs(t, err, pipefs.ErrRemoved)
}

func TestNewServerRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.PipeFS.MaxPipes = 0
	_, err := NewServer(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

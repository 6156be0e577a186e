package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// Tracer propagates trace headers when set.
	Tracer *tracing.Tracer
	// Breaker settings; the zero value uses the resilience defaults.
	Breaker resilience.Settings
	// DialOptions are appended to the defaults, e.g. a bufconn dialer.
	DialOptions []grpc.DialOption
}

// Client calls the Execute service through a circuit breaker.
type Client struct {
	conn    *grpc.ClientConn
	addr    string
	breaker *resilience.Breaker
}

// NewClient creates a client for addr. The connection is made lazily.
func NewClient(addr string, opts ClientOptions) (*Client, error) {
	dial := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    60 * time.Second,
			Timeout: 20 * time.Second,
		}),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(16*1024*1024),
			grpc.MaxCallSendMsgSize(16*1024*1024),
		),
	}
	if opts.Tracer != nil {
		dial = append(dial, grpc.WithChainUnaryInterceptor(tracing.GRPCClientInterceptor(opts.Tracer)))
	}
	dial = append(dial, opts.DialOptions...)

	conn, err := grpc.NewClient(addr, dial...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}

	settings := opts.Breaker
	if settings.IsFailure == nil {
		settings.IsFailure = IsTransportError
	}
	return &Client{
		conn:    conn,
		addr:    addr,
		breaker: resilience.New("pipefs-grpc", settings),
	}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Breaker exposes the client's circuit breaker.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// Execute runs toolID on the server. A nil error with Success false is
// a tool failure; Code then carries the filesystem result code.
func (c *Client) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	in, err := toStruct(request{ToolID: toolID, Params: params})
	if err != nil {
		return nil, err
	}

	out, err := resilience.Call(c.breaker, func() (*structpb.Struct, error) {
		out := new(structpb.Struct)
		if err := c.conn.Invoke(ctx, ExecuteMethod, in, out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return decodeResult(out)
}

// IsTransportError reports whether err means the server could not be
// reached or failed internally, as opposed to rejecting the call.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.Internal, codes.Unknown, codes.DataLoss:
		return true
	default:
		return false
	}
}

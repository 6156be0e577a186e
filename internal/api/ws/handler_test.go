package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

type fixture struct {
	fs      *pipefs.FS
	server  *httptest.Server
	metrics *monitoring.Metrics
}

func setup(t *testing.T, opts Options) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	fs, err := pipefs.New(pipefs.Config{MaxPipes: 4, MaxNameLength: 16, BufferSize: 8}, pipefs.WithLogger(log))
	require.NoError(t, err)
	v := vfs.New(vfs.DefaultConfig(), log)
	require.NoError(t, v.Mount(pipefs.VolumeName, vfs.PipeVolume(fs)))

	metrics := monitoring.NewMetrics()
	router := gin.New()
	router.GET("/pipes/:name/stream", NewHandler(v, metrics, log, opts).HandleConnection)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &fixture{fs: fs, server: server, metrics: metrics}
}

func (f *fixture) dial(t *testing.T, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/pipes/" + name + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	hello := next(t, conn)
	require.Equal(t, TypeSystem, hello.Type)
	require.NotEmpty(t, hello.ConnectionID)
	require.Equal(t, name, hello.Pipe)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, f Frame) {
	t.Helper()
	data, err := sonic.Marshal(f)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func next(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, sonic.Unmarshal(raw, &f))
	return f
}

func TestStreamTransfer(t *testing.T) {
	f := setup(t, DefaultOptions())
	require.NoError(t, f.fs.Create("chat", 0))

	reader := f.dial(t, "chat")
	writer := f.dial(t, "chat")

	send(t, reader, Frame{Type: TypeRead, Size: 11})
	send(t, writer, Frame{Type: TypeWrite, Data: "hello world"})

	got := next(t, reader)
	assert.Equal(t, TypeData, got.Type)
	assert.Equal(t, "hello world", got.Data)
	assert.Equal(t, EncodingText, got.Encoding)
	assert.Equal(t, 11, got.Bytes)

	done := next(t, writer)
	assert.Equal(t, TypeWritten, done.Type)
	assert.Equal(t, 11, done.Bytes)
}

func TestStreamBinaryPayload(t *testing.T) {
	f := setup(t, DefaultOptions())
	require.NoError(t, f.fs.Create("bin", 0))

	reader := f.dial(t, "bin")
	writer := f.dial(t, "bin")

	send(t, reader, Frame{Type: TypeRead, Size: 4})
	send(t, writer, Frame{Type: TypeWrite, Data: "AP8A/w==", Encoding: EncodingBase64})

	got := next(t, reader)
	require.Equal(t, TypeData, got.Type)
	assert.Equal(t, EncodingBase64, got.Encoding)
	payload, err := got.Payload()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0x00, 0xff}, payload)
	assert.Equal(t, TypeWritten, next(t, writer).Type)
}

func TestPingAndUnknownFrames(t *testing.T) {
	f := setup(t, DefaultOptions())
	require.NoError(t, f.fs.Create("p", 0))
	conn := f.dial(t, "p")

	send(t, conn, Frame{Type: TypePing})
	assert.Equal(t, TypePong, next(t, conn).Type)

	send(t, conn, Frame{Type: "shout"})
	got := next(t, conn)
	assert.Equal(t, TypeError, got.Type)
	assert.Equal(t, vfs.Invalid, got.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, TypeError, next(t, conn).Type)

	send(t, conn, Frame{Type: TypeWrite, Data: "!!", Encoding: EncodingBase64})
	assert.Equal(t, TypeError, next(t, conn).Type)
}

func TestReadSizeLimit(t *testing.T) {
	f := setup(t, Options{MaxTransfer: 4})
	require.NoError(t, f.fs.Create("small", 0))
	conn := f.dial(t, "small")

	send(t, conn, Frame{Type: TypeRead, Size: 5})
	got := next(t, conn)
	assert.Equal(t, TypeError, got.Type)
	assert.Equal(t, vfs.Invalid, got.Code)
}

func TestRemoveFailsPendingRead(t *testing.T) {
	f := setup(t, DefaultOptions())
	require.NoError(t, f.fs.Create("gone", 0))
	conn := f.dial(t, "gone")

	send(t, conn, Frame{Type: TypeRead, Size: 4})
	require.Eventually(t, func() bool {
		readers, _ := f.fs.Waiting()
		return readers == 1
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, f.fs.Remove("gone"))

	got := next(t, conn)
	assert.Equal(t, TypeError, got.Type)
	assert.Equal(t, vfs.Error, got.Code)
	assert.Contains(t, got.Message, "removed")
}

func TestMissingPipe(t *testing.T) {
	f := setup(t, DefaultOptions())
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/pipes/none/stream"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDisconnectReleasesDescriptor(t *testing.T) {
	f := setup(t, DefaultOptions())
	require.NoError(t, f.fs.Create("d", 0))
	conn := f.dial(t, "d")

	send(t, conn, Frame{Type: TypeRead, Size: 4})
	require.Eventually(t, func() bool {
		readers, _ := f.fs.Waiting()
		return readers == 1
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		readers, _ := f.fs.Waiting()
		return readers == 0
	}, 2*time.Second, time.Millisecond, "closing the socket should cancel the pending read")
}

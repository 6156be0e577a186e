package pipe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	log := zaptest.NewLogger(t)
	fs, err := pipefs.New(pipefs.Config{MaxPipes: 4, MaxNameLength: 16, BufferSize: 4}, pipefs.WithLogger(log))
	require.NoError(t, err)
	v := vfs.New(vfs.Config{MaxOpenFiles: 8}, log)
	require.NoError(t, v.Mount(pipefs.VolumeName, vfs.PipeVolume(fs)))
	return NewProvider(v, fs, log)
}

func exec(t *testing.T, p *Provider, tool string, params map[string]interface{}) *types.Result {
	t.Helper()
	res, err := p.Execute(context.Background(), tool, params, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestDefinitionToolsAreHandled(t *testing.T) {
	p := newTestProvider(t)
	def := p.Definition()
	assert.Equal(t, ServiceID, def.ID)
	require.Len(t, def.Tools, 8)

	for _, tool := range def.Tools {
		_, err := p.Execute(context.Background(), tool.ID, map[string]interface{}{}, nil)
		assert.NoError(t, err, tool.ID)
	}

	res, err := p.Execute(context.Background(), "pipe.unknown", nil, nil)
	assert.Error(t, err)
	assert.False(t, res.Success)
}

func TestLifecycle(t *testing.T) {
	p := newTestProvider(t)

	res := exec(t, p, "pipe.create", map[string]interface{}{"name": "jobs", "size": float64(20)})
	require.True(t, res.Success)
	assert.Equal(t, "[pipe]jobs", res.Data["path"])

	res = exec(t, p, "pipe.create", map[string]interface{}{"name": "jobs"})
	assert.False(t, res.Success)
	assert.Equal(t, vfs.AlreadyExists, res.Code)

	res = exec(t, p, "pipe.open", map[string]interface{}{"name": "jobs"})
	require.True(t, res.Success)
	fd := res.Data["fd"].(int)

	res = exec(t, p, "pipe.stats", map[string]interface{}{"name": "jobs"})
	require.True(t, res.Success)
	info := res.Data["pipe"].(pipefs.Info)
	assert.Equal(t, 20, info.Size)
	assert.Equal(t, pipefs.StateOccupied, info.State)

	res = exec(t, p, "pipe.close", map[string]interface{}{"fd": float64(fd)})
	assert.True(t, res.Success)
	res = exec(t, p, "pipe.close", map[string]interface{}{"fd": float64(fd)})
	assert.Equal(t, vfs.Invalid, res.Code)

	res = exec(t, p, "pipe.remove", map[string]interface{}{"name": "jobs"})
	assert.True(t, res.Success)
	res = exec(t, p, "pipe.remove", map[string]interface{}{"name": "jobs"})
	assert.False(t, res.Success)
	assert.Equal(t, vfs.Error, res.Code)
}

func TestInvalidParams(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		tool   string
		params map[string]interface{}
	}{
		{"pipe.create", map[string]interface{}{}},
		{"pipe.create", map[string]interface{}{"name": "x", "size": 1.5}},
		{"pipe.read", map[string]interface{}{"name": "x"}},
		{"pipe.read", map[string]interface{}{"name": "x", "size": float64(-1)}},
		{"pipe.read", map[string]interface{}{"name": "x", "size": float64(1), "encoding": "hex"}},
		{"pipe.write", map[string]interface{}{"name": "x"}},
		{"pipe.write", map[string]interface{}{"name": "x", "data": "!!", "encoding": "base64"}},
		{"pipe.close", map[string]interface{}{"fd": "one"}},
	}

	for _, tt := range tests {
		res := exec(t, p, tt.tool, tt.params)
		assert.False(t, res.Success, "%s %v", tt.tool, tt.params)
		assert.Equal(t, vfs.Invalid, res.Code, "%s %v", tt.tool, tt.params)
	}
}

func TestReadWriteByName(t *testing.T) {
	p := newTestProvider(t)
	require.True(t, exec(t, p, "pipe.create", map[string]interface{}{"name": "chan"}).Success)

	done := make(chan *types.Result, 1)
	go func() {
		res, _ := p.Execute(context.Background(), "pipe.write", map[string]interface{}{
			"name":     "chan",
			"data":     "aGVsbG8gcGlwZQ==",
			"encoding": "base64",
		}, nil)
		done <- res
	}()

	res := exec(t, p, "pipe.read", map[string]interface{}{"name": "chan", "size": float64(10)})
	require.True(t, res.Success, "%v", res.Error)
	assert.Equal(t, "hello pipe", res.Data["data"])
	assert.Equal(t, 10, res.Data["bytes"])

	w := <-done
	require.True(t, w.Success)
	assert.Equal(t, 10, w.Data["bytes_written"])
	assert.Zero(t, p.vfs.OpenCount())
}

func TestReadTimeout(t *testing.T) {
	p := newTestProvider(t)
	require.True(t, exec(t, p, "pipe.create", map[string]interface{}{"name": "idle"}).Success)

	start := time.Now()
	res := exec(t, p, "pipe.read", map[string]interface{}{"name": "idle", "size": float64(4), "timeout_ms": float64(20)})
	assert.False(t, res.Success)
	assert.Equal(t, vfs.Error, res.Code)
	assert.Equal(t, 0, res.Data["bytes"])
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestListAndVolumeStats(t *testing.T) {
	p := newTestProvider(t)
	for _, name := range []string{"a.in", "a.out", "b"} {
		require.True(t, exec(t, p, "pipe.create", map[string]interface{}{"name": name}).Success)
	}

	res := exec(t, p, "pipe.list", map[string]interface{}{"match": "a.*"})
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Data["count"])

	res = exec(t, p, "pipe.list", map[string]interface{}{"match": "["})
	assert.Equal(t, vfs.Invalid, res.Code)

	res = exec(t, p, "pipe.stats", nil)
	require.True(t, res.Success)
	assert.Equal(t, 4, res.Data["capacity"])
	assert.Equal(t, 1, res.Data["free"])
	assert.Equal(t, 3, res.Data["used"])
}

func TestStatsAddUpWhilePipesChurn(t *testing.T) {
	p := newTestProvider(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_, _ = p.Execute(context.Background(), "pipe.create", map[string]interface{}{"name": "churn"}, nil)
			_, _ = p.Execute(context.Background(), "pipe.remove", map[string]interface{}{"name": "churn"}, nil)
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		res := exec(t, p, "pipe.stats", nil)
		require.True(t, res.Success)
		assert.Equal(t, res.Data["capacity"], res.Data["free"].(int)+res.Data["used"].(int))
	}
}

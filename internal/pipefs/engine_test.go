package pipefs

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type transfer struct {
	data []byte
	n    int
	err  error
}

func setupPipe(t *testing.T, bufSize int) (*FS, Handle) {
	t.Helper()
	fs, err := New(Config{MaxPipes: 4, MaxNameLength: 16, BufferSize: bufSize},
		WithLogger(zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))))
	require.NoError(t, err)
	require.NoError(t, fs.Create("test", 0))
	h, err := fs.Open("test")
	require.NoError(t, err)
	return fs, h
}

func goRead(fs *FS, ctx context.Context, h Handle, size int) <-chan transfer {
	out := make(chan transfer, 1)
	go func() {
		buf := make([]byte, size)
		n, err := fs.Read(ctx, h, buf)
		out <- transfer{data: buf[:n], n: n, err: err}
	}()
	return out
}

func goWrite(fs *FS, ctx context.Context, h Handle, msgs ...string) <-chan transfer {
	out := make(chan transfer, len(msgs))
	go func() {
		for _, msg := range msgs {
			n, err := fs.Write(ctx, h, []byte(msg))
			out <- transfer{n: n, err: err}
		}
	}()
	return out
}

func waitFor(t *testing.T, fs *FS, h Handle, cond func(Info) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		info, err := fs.Stat(h)
		return err == nil && cond(info)
	}, 2*time.Second, time.Millisecond)
}

func recv(t *testing.T, ch <-chan transfer) transfer {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("transfer did not complete")
		return transfer{}
	}
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	const bufSize = 8
	ctx := context.Background()

	for _, size := range []int{1, bufSize - 1, bufSize, bufSize + 1, 3*bufSize + 2} {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			fs, h := setupPipe(t, bufSize)
			data := pattern(size)

			w := goWrite(fs, ctx, h, string(data))
			buf := make([]byte, size)
			n, err := fs.Read(ctx, h, buf)
			require.NoError(t, err)
			assert.Equal(t, size, n)
			assert.Equal(t, data, buf)

			wr := recv(t, w)
			require.NoError(t, wr.err)
			assert.Equal(t, size, wr.n)

			info, err := fs.Stat(h)
			require.NoError(t, err)
			assert.Equal(t, StateOccupied, info.State)
			assert.Zero(t, info.Pending)
		})
	}
}

func TestChunkedRoundTrip(t *testing.T) {
	fs, h := setupPipe(t, 8)
	ctx := context.Background()
	data := pattern(20)

	w := goWrite(fs, ctx, h, string(data))

	var got []byte
	for _, size := range []int{3, 7, 5, 5} {
		buf := make([]byte, size)
		n, err := fs.Read(ctx, h, buf)
		require.NoError(t, err)
		require.Equal(t, size, n)
		got = append(got, buf...)
	}
	assert.Equal(t, data, got)

	wr := recv(t, w)
	require.NoError(t, wr.err)
	assert.Equal(t, 20, wr.n)
}

func TestReadSpansWrites(t *testing.T) {
	fs, h := setupPipe(t, 8)
	ctx := context.Background()

	r := goRead(fs, ctx, h, 10)
	waitFor(t, fs, h, func(i Info) bool { return i.State == StateListening })

	w := goWrite(fs, ctx, h, "abcd", "efghij")

	res := recv(t, r)
	require.NoError(t, res.err)
	assert.Equal(t, "abcdefghij", string(res.data))

	for i := 0; i < 2; i++ {
		require.NoError(t, recv(t, w).err)
	}
	info, err := fs.Stat(h)
	require.NoError(t, err)
	assert.Equal(t, StateOccupied, info.State)
}

func TestReadersServedOneAtATime(t *testing.T) {
	fs, h := setupPipe(t, 4)
	ctx := context.Background()

	var readers []<-chan transfer
	for i := 0; i < 3; i++ {
		readers = append(readers, goRead(fs, ctx, h, 4))
	}
	waitFor(t, fs, h, func(i Info) bool { return i.ReadersWaiting == 3 })

	w := goWrite(fs, ctx, h, "aaaabbbbcccc")

	var chunks []string
	for _, r := range readers {
		res := recv(t, r)
		require.NoError(t, res.err)
		chunks = append(chunks, string(res.data))
	}
	sort.Strings(chunks)
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, chunks)
	require.NoError(t, recv(t, w).err)
}

// servedInOrder reports whether some ordering of parts concatenates to stream.
func servedInOrder(parts [][]byte, stream []byte) bool {
	if len(parts) == 0 {
		return len(stream) == 0
	}
	for i, p := range parts {
		if !bytes.HasPrefix(stream, p) {
			continue
		}
		rest := make([][]byte, 0, len(parts)-1)
		rest = append(rest, parts[:i]...)
		rest = append(rest, parts[i+1:]...)
		if servedInOrder(rest, stream[len(p):]) {
			return true
		}
	}
	return false
}

func TestFourReadersScenario(t *testing.T) {
	fs, h := setupPipe(t, 8)
	ctx := context.Background()

	sizes := []int{4, 5, 6, 5}
	var readers []<-chan transfer
	for _, size := range sizes {
		readers = append(readers, goRead(fs, ctx, h, size))
	}
	waitFor(t, fs, h, func(i Info) bool { return i.ReadersWaiting == len(sizes) })

	w := goWrite(fs, ctx, h, "1111222233334444", "ABCD")

	var parts [][]byte
	var counts []int
	for _, r := range readers {
		res := recv(t, r)
		require.NoError(t, res.err)
		parts = append(parts, res.data)
		counts = append(counts, res.n)
	}
	assert.ElementsMatch(t, sizes, counts)
	assert.True(t, servedInOrder(parts, []byte("1111222233334444ABCD")), "parts %q", parts)

	first, second := recv(t, w), recv(t, w)
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Equal(t, 16, first.n)
	assert.Equal(t, 4, second.n)
}

func TestRandomizedStream(t *testing.T) {
	fs, h := setupPipe(t, 7)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	var msgs []string
	var stream []byte
	for i := 0; i < 40; i++ {
		msg := pattern(1 + rng.Intn(30))
		rng.Shuffle(len(msg), func(a, b int) { msg[a], msg[b] = msg[b], msg[a] })
		msgs = append(msgs, string(msg))
		stream = append(stream, msg...)
	}

	w := goWrite(fs, ctx, h, msgs...)

	var got []byte
	for len(got) < len(stream) {
		size := min(1+rng.Intn(25), len(stream)-len(got))
		buf := make([]byte, size)
		n, err := fs.Read(ctx, h, buf)
		require.NoError(t, err)
		require.Equal(t, size, n)
		got = append(got, buf...)
	}
	assert.Equal(t, stream, got)

	for range msgs {
		require.NoError(t, recv(t, w).err)
	}
}

func TestRemoveWakesBlockedReader(t *testing.T) {
	fs, h := setupPipe(t, 8)
	ctx := context.Background()

	r := goRead(fs, ctx, h, 4)
	waitFor(t, fs, h, func(i Info) bool { return i.ReadersWaiting == 1 })

	require.NoError(t, fs.Remove("test"))
	res := recv(t, r)
	assert.ErrorIs(t, res.err, ErrRemoved)
	assert.ErrorIs(t, res.err, ErrPipe)
	assert.Zero(t, res.n)
}

func TestRemoveWakesReaderMidTransfer(t *testing.T) {
	fs, h := setupPipe(t, 8)
	ctx := context.Background()

	r := goRead(fs, ctx, h, 10)
	waitFor(t, fs, h, func(i Info) bool { return i.State == StateListening })
	require.NoError(t, recv(t, goWrite(fs, ctx, h, "abcd")).err)
	waitFor(t, fs, h, func(i Info) bool { return i.State == StateWriteOpen })

	require.NoError(t, fs.Remove("test"))
	res := recv(t, r)
	assert.ErrorIs(t, res.err, ErrRemoved)
	assert.Equal(t, "abcd", string(res.data))
}

func TestRemoveWakesBlockedWriter(t *testing.T) {
	t.Run("before any reader", func(t *testing.T) {
		fs, h := setupPipe(t, 8)
		w := goWrite(fs, context.Background(), h, "hello")
		waitFor(t, fs, h, func(i Info) bool { return i.WritersWaiting == 1 })

		require.NoError(t, fs.Remove("test"))
		res := recv(t, w)
		assert.ErrorIs(t, res.err, ErrRemoved)
		assert.Zero(t, res.n)
	})

	t.Run("mid transaction", func(t *testing.T) {
		fs, h := setupPipe(t, 8)
		ctx := context.Background()
		w := goWrite(fs, ctx, h, string(pattern(20)))

		buf := make([]byte, 4)
		n, err := fs.Read(ctx, h, buf)
		require.NoError(t, err)
		require.Equal(t, 4, n)
		waitFor(t, fs, h, func(i Info) bool { return i.WritersWaiting == 1 && i.State == StateStreaming })

		require.NoError(t, fs.Remove("test"))
		res := recv(t, w)
		assert.ErrorIs(t, res.err, ErrRemoved)
		assert.Equal(t, 8, res.n)
	})
}

func TestStaleWaiterAfterRecreate(t *testing.T) {
	fs, h := setupPipe(t, 8)
	ctx := context.Background()

	r := goRead(fs, ctx, h, 4)
	waitFor(t, fs, h, func(i Info) bool { return i.ReadersWaiting == 1 })

	require.NoError(t, fs.Remove("test"))
	require.NoError(t, fs.Create("test", 0))
	assert.ErrorIs(t, recv(t, r).err, ErrRemoved)

	h2, err := fs.Open("test")
	require.NoError(t, err)
	assert.Equal(t, h, h2)

	w := goWrite(fs, ctx, h2, "ping")
	buf := make([]byte, 4)
	n, err := fs.Read(ctx, h2, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
	require.NoError(t, recv(t, w).err)
}

func TestTransferOnFreeSlot(t *testing.T) {
	fs, h := setupPipe(t, 8)
	ctx := context.Background()
	require.NoError(t, fs.Remove("test"))

	_, err := fs.Read(ctx, h, make([]byte, 1))
	assert.ErrorIs(t, err, ErrRemoved)
	_, err = fs.Write(ctx, h, []byte("x"))
	assert.ErrorIs(t, err, ErrRemoved)

	_, err = fs.Read(ctx, Handle(-1), make([]byte, 1))
	assert.ErrorIs(t, err, ErrBadHandle)
	_, err = fs.Write(ctx, Handle(4), []byte("x"))
	assert.ErrorIs(t, err, ErrBadHandle)
	_, err = fs.Stat(h)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyTransfers(t *testing.T) {
	fs, h := setupPipe(t, 8)
	ctx := context.Background()

	n, err := fs.Read(ctx, h, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
	n, err = fs.Write(ctx, h, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	info, err := fs.Stat(h)
	require.NoError(t, err)
	assert.Equal(t, StateOccupied, info.State)
}

func TestCancelBeforeJoin(t *testing.T) {
	t.Run("reader", func(t *testing.T) {
		fs, h := setupPipe(t, 8)
		ctx, cancel := context.WithCancel(context.Background())

		r := goRead(fs, ctx, h, 4)
		waitFor(t, fs, h, func(i Info) bool { return i.ReadersWaiting == 1 })
		cancel()
		res := recv(t, r)
		assert.ErrorIs(t, res.err, context.Canceled)

		// The pipe still works for the next pair.
		w := goWrite(fs, context.Background(), h, "next")
		buf := make([]byte, 4)
		_, err := fs.Read(context.Background(), h, buf)
		require.NoError(t, err)
		assert.Equal(t, "next", string(buf))
		require.NoError(t, recv(t, w).err)
	})

	t.Run("reader timeout releases listening", func(t *testing.T) {
		fs, h := setupPipe(t, 4)

		rctx, rcancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer rcancel()
		_, err := fs.Read(rctx, h, make([]byte, 4))
		require.ErrorIs(t, err, context.DeadlineExceeded)

		info, err := fs.Stat(h)
		require.NoError(t, err)
		assert.Equal(t, StateOccupied, info.State)
		assert.Zero(t, info.ReadersWaiting)

		// With no reader left, a multi-chunk write must still honour its
		// own deadline instead of joining a transfer nobody will finish.
		wctx, wcancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer wcancel()
		res := recv(t, goWrite(fs, wctx, h, string(pattern(16))))
		assert.ErrorIs(t, res.err, context.DeadlineExceeded)
		assert.Zero(t, res.n)
	})

	t.Run("reader timeout keeps other readers listening", func(t *testing.T) {
		fs, h := setupPipe(t, 8)
		ctx := context.Background()

		stay := goRead(fs, ctx, h, 4)
		waitFor(t, fs, h, func(i Info) bool { return i.ReadersWaiting == 1 })

		rctx, rcancel := context.WithCancel(ctx)
		leave := goRead(fs, rctx, h, 4)
		waitFor(t, fs, h, func(i Info) bool { return i.ReadersWaiting == 2 })
		rcancel()
		assert.ErrorIs(t, recv(t, leave).err, context.Canceled)

		info, err := fs.Stat(h)
		require.NoError(t, err)
		assert.Equal(t, StateListening, info.State)

		require.NoError(t, recv(t, goWrite(fs, ctx, h, "left")).err)
		res := recv(t, stay)
		require.NoError(t, res.err)
		assert.Equal(t, "left", string(res.data))
	})

	t.Run("writer", func(t *testing.T) {
		fs, h := setupPipe(t, 8)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		n, err := fs.Write(ctx, h, []byte("late"))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Zero(t, n)

		info, err := fs.Stat(h)
		require.NoError(t, err)
		assert.Equal(t, StateOccupied, info.State)
		assert.Zero(t, info.WritersWaiting)
	})
}

// Command pipedemo runs the classic pipe exercise in-process: four
// readers share one pipe, a writer feeds it in uneven pieces and then
// removes it; afterwards a reader removes a second pipe under a writer
// that is still sending.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

// Outcome is what one reader or writer saw.
type Outcome struct {
	Who   string
	Data  string
	Bytes int
	Err   error
}

// Report collects every outcome of a run.
type Report struct {
	Readers       []Outcome
	Writes        []Outcome
	RemoveReader  Outcome
	RemovedWriter Outcome
}

func main() {
	bufSize := flag.Int("buffer", 8, "pipe buffer size")
	readSize := flag.Int("read", 4, "bytes each shared reader asks for")
	dev := flag.Bool("dev", true, "human-readable logs")
	flag.Parse()

	logger := logging.NewDefault()
	if *dev {
		logger = logging.NewDevelopment()
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := run(ctx, logger.Named("demo").Logger, *bufSize, *readSize)
	if err != nil {
		logger.Error("Demo failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(summary(report))
}

func run(ctx context.Context, log *zap.Logger, bufSize, readSize int) (*Report, error) {
	fs, err := pipefs.New(pipefs.Config{MaxPipes: 4, MaxNameLength: 16, BufferSize: bufSize}, pipefs.WithLogger(log.Named("pipefs")))
	if err != nil {
		return nil, err
	}
	v := vfs.New(vfs.DefaultConfig(), log.Named("vfs"))
	if err := v.Mount(pipefs.VolumeName, vfs.PipeVolume(fs)); err != nil {
		return nil, err
	}

	report := &Report{}
	if err := shared(ctx, log, fs, v, readSize, report); err != nil {
		return nil, err
	}
	if err := removeUnderWriter(ctx, log, fs, v, report); err != nil {
		return nil, err
	}
	return report, nil
}

// shared runs four readers against "[pipe]test", writes the stream in
// four pieces and removes the pipe, failing whoever still waits.
func shared(ctx context.Context, log *zap.Logger, fs *pipefs.FS, v *vfs.VFS, readSize int, report *Report) error {
	const path = "[pipe]test"
	if err := v.Create(path, 20); err != nil {
		return err
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := 0; i < 4; i++ {
		who := fmt.Sprintf("reader-%d", i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := readOnce(ctx, v, path, readSize)
			out.Who = who
			log.Info("Reader finished", zap.String("reader", who), zap.String("data", out.Data), zap.Error(out.Err))
			mu.Lock()
			report.Readers = append(report.Readers, out)
			mu.Unlock()
		}()
	}
	if err := waitReaders(ctx, fs, 4); err != nil {
		return err
	}

	fd, err := v.Open(path)
	if err != nil {
		return err
	}
	for _, piece := range []string{"0", "12345", "678", "9ABCDE"} {
		n, err := v.Write(ctx, fd, []byte(piece))
		log.Info("Wrote", zap.String("data", piece), zap.Int("bytes", n), zap.Error(err))
		report.Writes = append(report.Writes, Outcome{Who: "writer", Data: piece, Bytes: n, Err: err})
	}
	_ = v.Close(fd)

	// The last write returns once its chunk is buffered; let the readers
	// take it before pulling the pipe away.
	if err := waitDrained(ctx, fs, "test"); err != nil {
		return err
	}
	if err := v.Remove(path); err != nil {
		return err
	}
	log.Info("Removed pipe", zap.String("path", path))
	wg.Wait()

	sort.Slice(report.Readers, func(i, j int) bool { return report.Readers[i].Who < report.Readers[j].Who })
	return nil
}

// removeUnderWriter has a reader take four bytes of "[pipe]new" and
// remove it while the writer still has data to send.
func removeUnderWriter(ctx context.Context, log *zap.Logger, fs *pipefs.FS, v *vfs.VFS, report *Report) error {
	const path = "[pipe]new"
	if err := v.Create(path, 20); err != nil {
		return err
	}

	done := make(chan Outcome, 1)
	go func() {
		out := readOnce(ctx, v, path, 4)
		out.Who = "reader-delete"
		if out.Err == nil {
			out.Err = v.Remove(path)
		}
		log.Info("Reader removed pipe", zap.String("data", out.Data), zap.Error(out.Err))
		done <- out
	}()
	if err := waitReaders(ctx, fs, 1); err != nil {
		return err
	}

	fd, err := v.Open(path)
	if err != nil {
		return err
	}
	n, err := v.Write(ctx, fd, []byte("LONGERTHAN4"))
	_ = v.Close(fd)
	log.Info("Writer finished", zap.Int("bytes", n), zap.Error(err))

	report.RemovedWriter = Outcome{Who: "writer", Data: "LONGERTHAN4", Bytes: n, Err: err}
	report.RemoveReader = <-done
	return nil
}

func readOnce(ctx context.Context, v *vfs.VFS, path string, size int) Outcome {
	fd, err := v.Open(path)
	if err != nil {
		return Outcome{Err: err}
	}
	defer v.Close(fd)

	buf := make([]byte, size)
	n, err := v.Read(ctx, fd, buf)
	return Outcome{Data: string(buf[:n]), Bytes: n, Err: err}
}

func waitReaders(ctx context.Context, fs *pipefs.FS, n int) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if readers, _ := fs.Waiting(); readers >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d readers: %w", n, ctx.Err())
		case <-ticker.C:
		}
	}
}

func waitDrained(ctx context.Context, fs *pipefs.FS, name string) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		infos, err := fs.Glob(name)
		if err != nil {
			return err
		}
		if len(infos) == 0 || infos[0].Pending == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to drain: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func summary(r *Report) string {
	var b strings.Builder
	for _, o := range r.Readers {
		fmt.Fprintf(&b, "%-14s %-6q %s\n", o.Who, o.Data, status(o.Err))
	}
	fmt.Fprintf(&b, "%-14s %-6q %s\n", r.RemoveReader.Who, r.RemoveReader.Data, status(r.RemoveReader.Err))
	fmt.Fprintf(&b, "%-14s %d/%d bytes %s", "writer", r.RemovedWriter.Bytes, len(r.RemovedWriter.Data), status(r.RemovedWriter.Err))
	return b.String()
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pipefs.ErrRemoved):
		return "removed"
	default:
		return err.Error()
	}
}

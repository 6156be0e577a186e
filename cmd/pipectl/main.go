// Command pipectl drives a pipefs server from the shell.
//
//	pipectl [-addr URL] [-timeout D] <command> [args]
//
// Commands:
//
//	create NAME [SIZE]   create a pipe
//	rm NAME              remove a pipe
//	ls [GLOB]            list pipes
//	stat NAME            describe a pipe
//	read NAME N          read N bytes to stdout
//	write NAME [DATA]    write DATA, or stdin when omitted
//	df                   show volume usage
//	exec TOOL [JSON]     run a registry tool
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/client"
)

var errUsage = errors.New("usage: pipectl [-addr URL] [-timeout D] create|rm|ls|stat|read|write|df|exec ...")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "pipectl:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("pipectl", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	addr := flags.String("addr", envOr("PIPEFS_ADDR", "http://localhost:8000"), "server URL")
	timeout := flags.Duration("timeout", 0, "how long read and write wait for a partner")
	compress := flags.Bool("compress", false, "send write bodies zstd-compressed")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	args = flags.Args()
	if len(args) == 0 {
		return errUsage
	}

	cfg := client.DefaultConfig()
	cfg.BaseURL = *addr
	cfg.Compress = *compress
	c := client.New(cfg)
	defer c.Close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create":
		if len(rest) < 1 || len(rest) > 2 {
			return errUsage
		}
		size := 0
		if len(rest) == 2 {
			n, err := strconv.Atoi(rest[1])
			if err != nil {
				return fmt.Errorf("%w: bad size %q", errUsage, rest[1])
			}
			size = n
		}
		return c.Create(ctx, rest[0], size)

	case "rm":
		if len(rest) != 1 {
			return errUsage
		}
		return c.Remove(ctx, rest[0])

	case "ls":
		match := ""
		if len(rest) > 0 {
			match = rest[0]
		}
		pipes, err := c.List(ctx, match)
		if err != nil {
			return err
		}
		return printPipes(stdout, pipes)

	case "stat":
		if len(rest) != 1 {
			return errUsage
		}
		info, err := c.Stat(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(stdout, info)

	case "read":
		if len(rest) != 2 {
			return errUsage
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil || n < 0 {
			return fmt.Errorf("%w: bad count %q", errUsage, rest[1])
		}
		data, err := c.Read(ctx, rest[0], n, *timeout)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && len(apiErr.Data) > 0 {
				_, _ = stdout.Write(apiErr.Data)
			}
			return err
		}
		_, err = stdout.Write(data)
		return err

	case "write":
		if len(rest) < 1 || len(rest) > 2 {
			return errUsage
		}
		var data []byte
		if len(rest) == 2 {
			data = []byte(rest[1])
		} else {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return err
			}
			data = b
		}
		n, err := c.Write(ctx, rest[0], data, *timeout)
		fmt.Fprintf(stdout, "%d bytes written\n", n)
		return err

	case "df":
		info, err := c.Info(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VOLUME\tCAPACITY\tUSED\tFREE\tBUFFER\tOPEN")
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", info.Volume, info.Capacity, info.Used, info.Free, info.BufferSize, info.OpenFiles)
		return tw.Flush()

	case "exec":
		if len(rest) < 1 || len(rest) > 2 {
			return errUsage
		}
		var params map[string]interface{}
		if len(rest) == 2 {
			if err := sonic.UnmarshalString(rest[1], &params); err != nil {
				return fmt.Errorf("%w: bad params: %v", errUsage, err)
			}
		}
		res, err := c.Execute(ctx, rest[0], params)
		if err != nil {
			return err
		}
		return printJSON(stdout, res)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func printPipes(w io.Writer, pipes []client.PipeInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tSIZE\tPENDING\tREADERS\tWRITERS")
	for _, p := range pipes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", p.Name, p.State, p.Size, p.Pending, p.ReadersWaiting, p.WritersWaiting)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package harness verifies a running fshello server end to end: it seeds a
// static root, launches the server process, waits for it and checks the
// served content.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/buildkite/shellwords"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/wtnb75/fshello/internal/logger"
)

var (
	ErrEmptyCommand     = errors.New("server command is empty")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrBodyMismatch     = errors.New("body mismatch")
)

const (
	IndexContent = "Hello!\n"
	SampleName   = "sample.txt"
)

// Fixture is the content written by Seed.
type Fixture struct {
	Dir    string
	Sample string
}

// Seed writes index.html and a sample.txt carrying a random UUID into dir.
func Seed(dir string) (Fixture, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Fixture{}, err
	}
	fx := Fixture{
		Dir:    dir,
		Sample: "text content, with a random UUID: " + id.String(),
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(IndexContent), 0o644); err != nil {
		return Fixture{}, fmt.Errorf("write index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SampleName), []byte(fx.Sample), 0o644); err != nil {
		return Fixture{}, fmt.Errorf("write sample: %w", err)
	}
	return fx, nil
}

// FreePort asks the kernel for an unused TCP port on 127.0.0.1.
// The port may be taken by someone else before it is used.
func FreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Command builds the server process from a shell-style command line.
// env entries ("KEY=value") are appended to the current environment.
func Command(ctx context.Context, cmdline string, env ...string) (*exec.Cmd, error) {
	args, err := shellwords.Split(cmdline)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", cmdline, err)
	}
	return CommandArgs(ctx, args, env...)
}

// CommandArgs is Command for an already split argument list.
func CommandArgs(ctx context.Context, args []string, env ...string) (*exec.Cmd, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, ErrEmptyCommand
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second
	return cmd, nil
}

// WaitReady polls url until it answers with any HTTP status, or timeout.
func WaitReady(ctx context.Context, client *http.Client, url string, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = timeout

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}, backoff.WithContext(bo, ctx))
}

func get(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return string(body), fmt.Errorf("%w: GET %s: %d", ErrUnexpectedStatus, url, resp.StatusCode)
	}
	return string(body), nil
}

// Verify checks GET / and GET /sample.txt against fx.
func Verify(ctx context.Context, client *http.Client, baseURL string, fx Fixture) error {
	checks := []struct {
		path string
		want string
	}{
		{"/", IndexContent},
		{"/" + SampleName, fx.Sample},
	}
	for _, c := range checks {
		body, err := get(ctx, client, baseURL+c.path)
		if err != nil {
			return err
		}
		if body != c.want {
			return fmt.Errorf("%w: GET %s: got %q, want %q", ErrBodyMismatch, c.path, body, c.want)
		}
		slog.InfoContext(ctx, "verified", logger.Path(c.path), "bytes", len(body))
	}
	return nil
}

// Options configure Run.
type Options struct {
	// Command is the server command line. It receives FSHELLO_ROOT_DIR and
	// FSHELLO_LISTEN in its environment.
	Command string
	// Args is used as the server command when Command is empty.
	Args []string
	// Timeout bounds startup and each request.
	Timeout time.Duration
}

// Run performs the full check against a freshly launched server process.
func Run(ctx context.Context, opts Options) error {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	dir, err := os.MkdirTemp("", "fshello-check-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	fx, err := Seed(dir)
	if err != nil {
		return err
	}
	port, err := FreePort()
	if err != nil {
		return fmt.Errorf("find free port: %w", err)
	}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	env := []string{
		"FSHELLO_ROOT_DIR=" + dir,
		"FSHELLO_LISTEN=" + addr,
	}
	var cmd *exec.Cmd
	if opts.Command != "" {
		cmd, err = Command(ctx, opts.Command, env...)
	} else {
		cmd, err = CommandArgs(ctx, opts.Args, env...)
	}
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.InfoContext(ctx, "server launched", "pid", cmd.Process.Pid, "addr", addr, "root", dir)
	defer func() {
		cancel()
		if err := cmd.Wait(); err != nil {
			slog.Debug("server exited", logger.Error(err))
		}
	}()

	client := &http.Client{Timeout: opts.Timeout}
	baseURL := "http://" + addr
	if err := WaitReady(ctx, client, baseURL+"/", opts.Timeout); err != nil {
		return fmt.Errorf("server not ready: %w", err)
	}
	return Verify(ctx, client, baseURL, fx)
}

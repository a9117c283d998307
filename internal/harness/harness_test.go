package harness_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtnb75/fshello"
	"github.com/wtnb75/fshello/internal/config"
	"github.com/wtnb75/fshello/internal/harness"
	"github.com/wtnb75/fshello/internal/server"
)

// TestHelperServer is the server process launched by TestRun.
func TestHelperServer(t *testing.T) {
	if os.Getenv("FSHELLO_HELPER") != "1" {
		t.Skip("helper process")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	h, err := fshello.NewDir(cfg.RootDir)
	require.NoError(t, err)
	srv, err := server.NewFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Run(ctx, h)())
}

func TestSeed(t *testing.T) {
	dir := t.TempDir()
	fx, err := harness.Seed(dir)
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "Hello!\n", string(index))

	sample, err := os.ReadFile(filepath.Join(dir, "sample.txt"))
	require.NoError(t, err)
	assert.Equal(t, fx.Sample, string(sample))
	assert.True(t, strings.HasPrefix(fx.Sample, "text content, with a random UUID: "))

	other, err := harness.Seed(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, fx.Sample, other.Sample)
}

func TestFreePort(t *testing.T) {
	port, err := harness.FreePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}

func TestCommand(t *testing.T) {
	cmd, err := harness.Command(context.Background(), `./fshello serve --dir "/srv/my site"`, "A=1")
	require.NoError(t, err)
	assert.Equal(t, []string{"./fshello", "serve", "--dir", "/srv/my site"}, cmd.Args)
	assert.Contains(t, cmd.Env, "A=1")

	_, err = harness.Command(context.Background(), "   ")
	assert.ErrorIs(t, err, harness.ErrEmptyCommand)
}

func TestCommandArgs(t *testing.T) {
	// Paths are passed through untouched, whatever characters they hold.
	exe := `/opt/my "odd" dir\fshello`
	cmd, err := harness.CommandArgs(context.Background(), []string{exe, "serve"}, "A=1")
	require.NoError(t, err)
	assert.Equal(t, []string{exe, "serve"}, cmd.Args)
	assert.Equal(t, exe, cmd.Path)
	assert.Contains(t, cmd.Env, "A=1")

	_, err = harness.CommandArgs(context.Background(), nil)
	assert.ErrorIs(t, err, harness.ErrEmptyCommand)
	_, err = harness.CommandArgs(context.Background(), []string{""})
	assert.ErrorIs(t, err, harness.ErrEmptyCommand)
}

func TestVerifyAgainstHandler(t *testing.T) {
	dir := t.TempDir()
	fx, err := harness.Seed(dir)
	require.NoError(t, err)

	h, err := fshello.NewDir(dir)
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx := context.Background()
	require.NoError(t, harness.WaitReady(ctx, ts.Client(), ts.URL+"/", time.Second))
	assert.NoError(t, harness.Verify(ctx, ts.Client(), ts.URL, fx))
}

func TestVerifyMismatch(t *testing.T) {
	dir := t.TempDir()
	fx, err := harness.Seed(dir)
	require.NoError(t, err)

	h, err := fshello.NewDir(dir)
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	defer ts.Close()

	fx.Sample = "something else"
	err = harness.Verify(context.Background(), ts.Client(), ts.URL, fx)
	assert.ErrorIs(t, err, harness.ErrBodyMismatch)

	require.NoError(t, os.Remove(filepath.Join(dir, "sample.txt")))
	err = harness.Verify(context.Background(), ts.Client(), ts.URL, fx)
	assert.ErrorIs(t, err, harness.ErrUnexpectedStatus)
}

func TestWaitReadyTimeout(t *testing.T) {
	port, err := harness.FreePort()
	require.NoError(t, err)

	start := time.Now()
	err = harness.WaitReady(context.Background(), http.DefaultClient,
		fmt.Sprintf("http://127.0.0.1:%d/", port), 300*time.Millisecond)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("launches a server process")
	}
	t.Setenv("FSHELLO_HELPER", "1")

	t.Run("args", func(t *testing.T) {
		err := harness.Run(context.Background(), harness.Options{
			Args:    []string{os.Args[0], "-test.run=^TestHelperServer$"},
			Timeout: 10 * time.Second,
		})
		assert.NoError(t, err)
	})

	t.Run("command line", func(t *testing.T) {
		cmdline := shellQuote(os.Args[0]) + " -test.run=^TestHelperServer$"
		err := harness.Run(context.Background(), harness.Options{
			Command: cmdline,
			Timeout: 10 * time.Second,
		})
		assert.NoError(t, err)
	})
}

func TestRunEmptyCommand(t *testing.T) {
	err := harness.Run(context.Background(), harness.Options{Timeout: time.Second})
	assert.ErrorIs(t, err, harness.ErrEmptyCommand)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wtnb75/fshello"
	"github.com/wtnb75/fshello/internal/config"
	"github.com/wtnb75/fshello/internal/harness"
	"github.com/wtnb75/fshello/internal/logger"
	"github.com/wtnb75/fshello/internal/server"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve static files from a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				cfg.LogLevel = "debug"
			}
			log, err := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
			if err != nil {
				return err
			}
			hdl, err := fshello.NewDir(cfg.RootDir, fshello.WithIndex(cfg.Index), fshello.WithLogger(log))
			if err != nil {
				return err
			}
			srv, err := server.NewFromConfig(*cfg, server.WithLogger(log.With(logger.Component("server"))))
			if err != nil {
				return err
			}
			log.Info("starting fshello", "root", cfg.RootDir, "listen", cfg.Listen)

			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.Go(srv.Run(ctx, hdl))
			return eg.Wait()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.Listen, "listen", cfg.Listen, "listen address (unix:/path, tcp4:host:port, ...)")
	flags.StringVar(&cfg.RootDir, "dir", cfg.RootDir, "static root directory")
	flags.StringVar(&cfg.Index, "index", cfg.Index, "document served for paths ending in /")
	flags.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	return cmd
}

func newCheckCommand(cfg *config.Config) *cobra.Command {
	opts := harness.Options{Timeout: 10 * time.Second}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Launch a server command and verify it end to end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
				return err
			}
			if opts.Command == "" {
				opts.Args = []string{selfPath(), "serve"}
			}
			if err := harness.Run(cmd.Context(), opts); err != nil {
				return err
			}
			slog.Info("check passed", "command", opts.Command, "args", opts.Args)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Command, "cmd", "", "server command line (default: this binary with \"serve\")")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", opts.Timeout, "startup and request timeout")
	return cmd
}

// selfPath locates this binary for launching it as the server under check.
func selfPath() string {
	exe, err := os.Executable()
	if err != nil || exe == "" {
		slog.Warn("cannot locate executable, using argv[0]", logger.Error(err))
		return os.Args[0]
	}
	return exe
}

func realMain() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root := &cobra.Command{
		Use:           "fshello",
		Short:         "Minimal static file server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := newServeCommand(&cfg)
	root.AddCommand(serve, newCheckCommand(&cfg))
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

func main() {
	if err := realMain(); err != nil {
		slog.Error("fshello error", logger.Error(err))
		os.Exit(1)
	}
}

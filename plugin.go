package fshello

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Config is the plugin configuration supplied by a middleware host.
type Config struct {
	RootDir string `json:"rootdir,omitempty"`
	Index   string `json:"index,omitempty"`
}

func CreateConfig() *Config {
	return &Config{
		RootDir: DefaultRoot,
		Index:   DefaultIndex,
	}
}

// FsHello is the middleware form of Handler. It answers every request
// itself; next is kept for the host's chaining contract.
type FsHello struct {
	next http.Handler
	hdl  http.Handler
	name string
}

func New(ctx context.Context, next http.Handler, config *Config, name string) (http.Handler, error) {
	if config == nil || config.RootDir == "" {
		return nil, fmt.Errorf("rootdir cannot be empty")
	}
	log := slog.Default().With("plugin", name)
	hdl, err := NewDir(config.RootDir, WithIndex(config.Index), WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	log.InfoContext(ctx, "fshello plugin initialized", "rootdir", config.RootDir)
	return &FsHello{
		next: next,
		hdl:  hdl,
		name: name,
	}, nil
}

func (a *FsHello) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	a.hdl.ServeHTTP(res, req)
}

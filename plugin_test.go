package fshello

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConfig(t *testing.T) {
	cfg := CreateConfig()
	assert.Equal(t, "/assets", cfg.RootDir)
	assert.Equal(t, "index.html", cfg.Index)
}

func TestNewPlugin_EmptyRoot(t *testing.T) {
	_, err := New(context.Background(), nil, &Config{}, "fshello")
	assert.Error(t, err)

	_, err = New(context.Background(), nil, nil, "fshello")
	assert.Error(t, err)
}

func TestNewPlugin_MissingRoot(t *testing.T) {
	cfg := &Config{RootDir: filepath.Join(t.TempDir(), "missing")}
	_, err := New(context.Background(), nil, cfg, "fshello")
	assert.Error(t, err)
}

func TestNewPlugin_Serves(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.html"), []byte("<p>main</p>"), 0o644))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not be called")
	})
	hdl, err := New(context.Background(), next, &Config{RootDir: root, Index: "main.html"}, "fshello")
	require.NoError(t, err)

	w := serve(hdl, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html;charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "<p>main</p>", w.Body.String())

	w = serve(hdl, http.MethodPost, "/")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

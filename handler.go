package fshello

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/wtnb75/fshello/internal/logger"
)

const (
	// DefaultRoot is the static root used when none is configured.
	DefaultRoot = "/assets"
	// DefaultIndex is the implicit document served for paths ending in "/".
	DefaultIndex = "index.html"
)

var errIsDir = errors.New("is a directory")

type Handler struct {
	fs     afero.Fs
	index  string
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithIndex overrides the implicit document name.
func WithIndex(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.index = name
		}
	}
}

// WithLogger sets the logger used for diagnostics and the access log.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler serves files from fsys. Names passed to fsys are relative to
// the static root and never contain "..".
func NewHandler(fsys afero.Fs, opts ...Option) *Handler {
	h := &Handler{
		fs:     fsys,
		index:  DefaultIndex,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger.Debug("handler created", "fs", fsys.Name(), "index", h.index)
	return h
}

// NewDir serves files from the directory root on the local filesystem.
func NewDir(root string, opts ...Option) (*Handler, error) {
	fsys, err := NewRootFs(root)
	if err != nil {
		return nil, err
	}
	return NewHandler(fsys, opts...), nil
}

// ResolvePath maps a request path to a name relative to the static root.
// A trailing slash selects index; one leading slash is stripped. ok is false
// when the path has a ".." segment and would leave the root.
func ResolvePath(urlPath, index string) (name string, ok bool) {
	if strings.HasSuffix(urlPath, "/") {
		urlPath += index
	}
	name = strings.TrimPrefix(urlPath, "/")
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return name, false
		}
	}
	return name, true
}

func allowedMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// handle validates the request and hands the resolved name to respond.
func (h *Handler) handle(res http.ResponseWriter, req *http.Request) int {
	if !allowedMethod(req.Method) {
		res.Header().Set("Allow", "GET, HEAD")
		res.WriteHeader(http.StatusMethodNotAllowed)
		return http.StatusMethodNotAllowed
	}
	name, ok := ResolvePath(req.URL.Path, h.index)
	h.logger.Info("serving", logger.Path(name))
	if !ok {
		h.logger.Warn("path escapes static root", logger.Path(req.URL.Path))
		res.WriteHeader(http.StatusNotFound)
		return http.StatusNotFound
	}
	return h.respond(res, name, req.Method)
}

// respond reads name from the static root and writes the file, or the
// status matching the read error.
func (h *Handler) respond(res http.ResponseWriter, name string, method string) int {
	fail := func(err error) int {
		h.logger.Error("read failed", logger.Path(name), logger.Error(err))
		code := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			code = http.StatusNotFound
		}
		res.WriteHeader(code)
		return code
	}
	// Not every afero backend fails to read a directory, so check first.
	info, err := h.fs.Stat(name)
	if err != nil {
		return fail(err)
	}
	if info.IsDir() {
		return fail(&fs.PathError{Op: "read", Path: name, Err: errIsDir})
	}
	data, err := afero.ReadFile(h.fs, name)
	if err != nil {
		return fail(err)
	}
	res.Header().Set("Content-Type", ContentType(name))
	res.Header().Set("Content-Length", strconv.Itoa(len(data)))
	res.WriteHeader(http.StatusOK)
	if method == http.MethodHead {
		return http.StatusOK
	}
	if _, err := res.Write(data); err != nil {
		h.logger.Error("write failed", logger.Path(name), logger.Error(err))
	}
	return http.StatusOK
}

func (h *Handler) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	st := time.Now()
	code := h.handle(res, req)
	h.logger.Info("accesslog",
		logger.Method(req.Method),
		logger.Path(req.URL.Path),
		slog.String("remote", req.RemoteAddr),
		logger.StatusCode(code),
		logger.Elapsed(st),
	)
}

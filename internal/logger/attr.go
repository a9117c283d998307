package logger

import (
	"log/slog"
	"time"
)

// Helpers return an empty Attr for nil or empty values; slog drops those.

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func StatusCode(code int) slog.Attr {
	return slog.Int("status", code)
}

func Component(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("component", name)
}

// Elapsed reports the time since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

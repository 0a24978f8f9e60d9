package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Области логирования
const (
	AreaHTTP     = "http"
	AreaGRPC     = "grpc"
	AreaDatabase = "database"
	AreaSession  = "session"
	AreaCache    = "cache"
	AreaConfig   = "config"
)

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New создает текстовый логгер и делает его логгером по умолчанию
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level string) *slog.Logger {
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	slog.SetDefault(l)
	return l
}

// For возвращает дочерний логгер для области
func For(l *slog.Logger, area string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("area", area)
}

// Discard нужен в тестах
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the diagnostic log file.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// ParseLevel maps a config level name onto a slog level. Unknown names fall
// back to info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// DiagPath returns the diagnostic log file for a data directory.
func DiagPath(dataDir string) string {
	return filepath.Join(dataDir, "log", "pim.log")
}

// Diagnostics builds the diagnostic logger: a text handler writing to a
// rotating file at the configured level, plus stderr for warnings and errors.
// The returned closer releases the file.
func Diagnostics(dataDir, level string, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	p := DiagPath(dataDir)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, nil, err
	}
	rot := &lumberjack.Logger{
		Filename:   p,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	file := slog.NewTextHandler(rot, &slog.HandlerOptions{Level: ParseLevel(level)})
	term := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	return slog.New(fanout{file, term}), rot, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// Package xlog is an adapted version of the teacher's log package
// (log/log_by_filter.go, log/async_file_writer.go): a thin structured
// logger over golang.org/x/exp/slog, with caller-frame capture on
// error-level records and an async, rotating file sink.
package xlog

import (
	"context"
	"os"

	"github.com/go-stack/stack"
	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var root = newHandle(slog.New(slog.NewTextHandler(os.Stderr, nil)))

// Configure points the root logger at a rotating file, grounded on the
// teacher's async_file_writer.go (channel-buffered writes, periodic
// rotation) with lumberjack handling the rotation bookkeeping the
// teacher hand-rolled.
func Configure(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	w := newAsyncWriter(lj)
	root = newHandle(slog.New(slog.NewJSONHandler(w, nil)))
}

type handle struct {
	s *slog.Logger
}

func newHandle(s *slog.Logger) *handle { return &handle{s: s} }

// Logger is a contextual log handle, obtained via New or With, per
// log_by_filter.go's Root()/With(...) idiom.
type Logger struct {
	h *handle
	kv []interface{}
}

// New builds a Logger carrying kv as permanent fields on every record,
// matching the teacher's `log.New("module", name)` construction style.
func New(kv ...interface{}) Logger {
	return Logger{h: root, kv: append([]interface{}(nil), kv...)}
}

// With returns a derived Logger with additional permanent fields.
func (l Logger) With(kv ...interface{}) Logger {
	return Logger{h: l.h, kv: append(append([]interface{}(nil), l.kv...), kv...)}
}

func (l Logger) Trace(msg string, kv ...interface{}) { l.log(slog.LevelDebug-4, msg, kv) }
func (l Logger) Debug(msg string, kv ...interface{}) { l.log(slog.LevelDebug, msg, kv) }
func (l Logger) Info(msg string, kv ...interface{})  { l.log(slog.LevelInfo, msg, kv) }
func (l Logger) Warn(msg string, kv ...interface{})  { l.log(slog.LevelWarn, msg, kv) }

// Error logs at error level, attaching a "caller" field captured via
// go-stack/stack, mirroring the teacher's log15-style caller-frame
// capture on error records.
func (l Logger) Error(msg string, kv ...interface{}) {
	call := stack.Caller(1)
	kv = append(append([]interface{}(nil), kv...), "caller", call.String())
	l.log(slog.LevelError, msg, kv)
}

func (l Logger) log(level slog.Level, msg string, kv []interface{}) {
	args := make([]interface{}, 0, len(l.kv)+len(kv))
	args = append(args, l.kv...)
	args = append(args, kv...)
	l.h.s.Log(context.Background(), level, msg, args...)
}

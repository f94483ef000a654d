// Package log wraps gopkg.in/op/go-logging.v1 in a small injectable
// backend, the same shape used throughout the reference server and
// client code (core/log.Backend, handed to every long-lived
// component's constructor instead of reached for as a global).
package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	logging "gopkg.in/op/go-logging.v1"
)

// Backend owns the go-logging backend and hands out per-component
// loggers. Nothing in this tree reads a package-level logger.
type Backend struct {
	mu    sync.Mutex
	level logging.Level
}

var levelFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.4s} %{module}: %{message}`,
)

// New builds a Backend writing to w at the given level ("debug",
// "info", "warning", "error", "critical"; unknown values fall back to
// "warning"). Only one Backend should be constructed per process: the
// underlying library's backend chain is process-global.
func New(w io.Writer, level string) (*Backend, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := logging.LogLevel(level)
	if err != nil {
		lvl = logging.WARNING
	}
	raw := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(raw, levelFormat)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return &Backend{level: lvl}, nil
}

// GetLogger returns a logger scoped to module, sharing this Backend's
// sink and level.
func (b *Backend) GetLogger(module string) *logging.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return logging.MustGetLogger(module)
}

// NopBackend returns a Backend that discards everything, for tests
// that don't want log noise but still need a non-nil logger.
func NopBackend() *Backend {
	b, err := New(io.Discard, "critical")
	if err != nil {
		panic(fmt.Sprintf("log: NopBackend: %v", err))
	}
	return b
}

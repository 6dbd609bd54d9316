// Package xlog provides the shared, silent-by-default logger used by every
// decoder package. It mirrors the teacher's PrintDebugInfo toggle, but backs
// it with logrus so callers get structured fields instead of plain text.
package xlog

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu   sync.Mutex
	base = newBase()
)

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetDebug toggles whether decoder internals log to stderr. Off by default,
// matching the teacher's PrintDebugInfo = false.
func SetDebug(on bool) {
	mu.Lock()
	defer mu.Unlock()
	if on {
		base.SetOutput(logrus.StandardLogger().Out)
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetOutput(io.Discard)
	}
}

// For returns a logger entry scoped to the named component (e.g. "wasm",
// "validate", "async", "reset").
func For(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()
	return base.WithField("component", component)
}

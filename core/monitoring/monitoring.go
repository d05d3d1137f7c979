// Package monitoring forwards unexpected errors to an error tracker.
//
// The process installs one Monitor with Init; packages report through the
// package-level helpers so they never depend on a concrete tracker.
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. nil is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	get().CaptureException(err, tags)
}

// Recover captures panics in goroutines. It must be deferred directly.
func Recover() {
	if r := recover(); r != nil {
		m := get()
		m.CaptureException(fmt.Errorf("panic: %v", r), map[string]string{"kind": "panic"})
		m.Flush(2 * time.Second)
		panic(r)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}

// Invariant reports err as a broken internal invariant, flushes, and panics.
func Invariant(err error, tags map[string]string) {
	if tags == nil {
		tags = map[string]string{}
	}
	tags["kind"] = "invariant"
	m := get()
	m.CaptureException(err, tags)
	m.Flush(2 * time.Second)
	panic(err)
}

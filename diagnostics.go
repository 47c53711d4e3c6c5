// diagnostics.go - Warning and trace output for the interrupt fabric

package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Diagnostic output goes to a swappable sink so tests can capture it.
// Warnings are always emitted; traces only when enabled (raw dispatch
// tracing is far too chatty for normal operation).
var (
	diagMu       sync.Mutex
	diagSink     io.Writer = os.Stderr
	traceEnabled atomic.Bool
)

// SetDiagnosticSink redirects warning/trace output and returns the
// previous sink. Pass io.Discard to silence diagnostics entirely.
func SetDiagnosticSink(w io.Writer) io.Writer {
	diagMu.Lock()
	defer diagMu.Unlock()
	prev := diagSink
	diagSink = w
	return prev
}

// SetTraceEnabled toggles per-interrupt trace output.
func SetTraceEnabled(enabled bool) {
	traceEnabled.Store(enabled)
}

func warnf(format string, args ...any) {
	diagMu.Lock()
	defer diagMu.Unlock()
	fmt.Fprintf(diagSink, "Warning: "+format+"\n", args...)
}

func tracef(format string, args ...any) {
	if !traceEnabled.Load() {
		return
	}
	diagMu.Lock()
	defer diagMu.Unlock()
	fmt.Fprintf(diagSink, "Trace: "+format+"\n", args...)
}

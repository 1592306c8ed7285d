// Package recovery turns panics and fatal errors into a stderr report and
// exit status 1, restoring the terminal first when a cleanup is given.
package recovery

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"
)

var (
	mu       sync.Mutex
	cleanups []func()
	stderr   io.Writer = os.Stderr
	exit               = os.Exit
)

// OnFatal registers a cleanup run before any fatal exit, most recent first.
// The TUI uses it to leave the alternate screen.
func OnFatal(fn func()) {
	if fn == nil {
		return
	}
	mu.Lock()
	cleanups = append(cleanups, fn)
	mu.Unlock()
}

// HandlePanic should be deferred at the top of main() or goroutines.
// It reports the panic with a stack trace and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		die(fmt.Sprintf("%v\n\nStack trace:\n%s", r, debug.Stack()), nil)
	}
}

// HandlePanicFunc reports a panic and calls cleanup before exiting.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		die(fmt.Sprintf("%v\n\nStack trace:\n%s", r, debug.Stack()), cleanup)
	}
}

// Fatal reports err and exits with code 1. Audio device failures during a
// session end up here.
func Fatal(err error) {
	if err == nil {
		return
	}
	die(err.Error(), nil)
}

// Go runs fn in a goroutine guarded by HandlePanicFunc.
func Go(fn func(), cleanup func()) {
	go func() {
		defer HandlePanicFunc(cleanup)
		fn()
	}()
}

func die(msg string, cleanup func()) {
	if cleanup != nil {
		cleanup()
	}
	mu.Lock()
	fns := cleanups
	cleanups = nil
	mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
	_, _ = fmt.Fprintf(stderr, "FATAL: %s\n", msg)
	exit(1)
}

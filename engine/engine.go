// Package engine owns the single transcoding engine instance a cut job
// runs against.
//
// The engine itself is a black box reached through the Engine interface:
// it stages files in a private namespace, runs one command at a time and
// publishes progress and log events while it runs. Session wraps one
// Engine with an explicit Boot/Dispose lifecycle, routes its events to a
// per-call Observer and classifies every failure with the sentinels below.
package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEngineLoad means the engine runtime could not be instantiated.
	// It disables the session until a fresh one is booted.
	ErrEngineLoad = errors.New("engine load failed")

	// ErrNotBooted is returned for any operation on a session that was
	// never booted or has been disposed.
	ErrNotBooted = errors.New("engine not booted")

	// ErrIO covers write and delete failures in the engine namespace.
	ErrIO = errors.New("engine i/o error")

	// ErrExec means the engine reported a failed command run.
	ErrExec = errors.New("engine exec failed")

	// ErrNotFound is returned when reading a file the engine did not produce.
	ErrNotFound = errors.New("file not found in engine")
)

// ExecError carries the engine's diagnostic text for a failed run.
// errors.Is(err, ErrExec) holds for every ExecError.
type ExecError struct {
	ExitCode int
	Message  string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s (exit %d)", ErrExec, e.ExitCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ExecError) Is(target error) bool {
	return target == ErrExec
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// EventKind distinguishes the two event streams an engine publishes.
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
)

// Event is one engine notification. Ratio is set for EventProgress and is
// in [0,1]; Message is the line for EventLog and a summary for EventProgress.
type Event struct {
	Kind    EventKind
	Message string
	Ratio   float64
}

// LoadConfig locates the engine runtime.
type LoadConfig struct {
	// BinaryPath is the engine executable. Empty means look it up by name.
	BinaryPath string
	// WorkDir is where the engine creates its private namespace.
	// Empty means the system temp directory.
	WorkDir string
}

// Engine is the minimal surface a Session needs from a transcoding engine.
//
// File names are bare names inside the engine's own namespace.
// Implementations should wrap failures with the package sentinels so a
// Session can classify them; unclassified errors are wrapped by the
// Session itself.
type Engine interface {
	Load(ctx context.Context, cfg LoadConfig) error
	WriteFile(name string, data []byte) error
	Exec(ctx context.Context, args []string) error
	ReadFile(name string) ([]byte, error)
	// DeleteFile returns an ErrNotFound error when name does not exist.
	DeleteFile(name string) error
	// Subscribe registers handler for every event until the returned
	// function is called.
	Subscribe(handler func(Event)) (unsubscribe func())
	Close() error
}

// Observer receives the events of one Execute call.
type Observer interface {
	// OnProgress is called with a whole percentage in [0,100] that never
	// decreases within one call.
	OnProgress(percent int)
	// OnLog is called for every engine log line. Diagnostic only.
	OnLog(message string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Progress func(percent int)
	Log      func(message string)
}

func (o ObserverFuncs) OnProgress(percent int) {
	if o.Progress != nil {
		o.Progress(percent)
	}
}

func (o ObserverFuncs) OnLog(message string) {
	if o.Log != nil {
		o.Log(message)
	}
}

// classify wraps err with sentinel unless it already carries it.
func classify(err, sentinel error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel, err)
}

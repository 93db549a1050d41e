package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"cortado/command"
	"cortado/internal/logging"
)

type sessionState int

const (
	stateNew sessionState = iota
	stateReady
	stateFailed
	stateDisposed
)

// Session owns one Engine for its lifetime.
//
// Boot must succeed before any other operation. A failed boot is final:
// every later call reports the load error and a new Session has to be
// created. Execute calls are serialised; the engine has a single
// execution slot and a single namespace.
type Session struct {
	engine Engine
	log    logrus.FieldLogger

	mu          sync.Mutex
	state       sessionState
	bootErr     error
	unsubscribe func()
	observer    Observer
	lastPercent int

	execMu sync.Mutex
}

// NewSession wraps eng. log may be nil.
func NewSession(eng Engine, log logrus.FieldLogger) *Session {
	return &Session{
		engine: eng,
		log:    logging.WithComponent(log, "engine"),
	}
}

// Boot loads the engine and subscribes to its events for the rest of the
// session. Calling Boot on a ready session is a no-op.
func (s *Session) Boot(ctx context.Context, cfg LoadConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateReady:
		return nil
	case stateFailed:
		return s.bootErr
	case stateDisposed:
		return fmt.Errorf("boot: %w: session disposed", ErrNotBooted)
	}

	if err := s.engine.Load(ctx, cfg); err != nil {
		s.state = stateFailed
		s.bootErr = classify(err, ErrEngineLoad, "boot")
		s.log.WithError(err).Error("Engine failed to load")
		return s.bootErr
	}

	s.unsubscribe = s.engine.Subscribe(s.dispatch)
	s.state = stateReady
	s.log.Info("Engine ready")
	return nil
}

// Ready reports whether the session can accept work.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateReady
}

// Err returns why the session cannot accept work, or nil when it can.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errLocked()
}

func (s *Session) errLocked() error {
	switch s.state {
	case stateReady:
		return nil
	case stateFailed:
		return s.bootErr
	case stateDisposed:
		return fmt.Errorf("%w: session disposed", ErrNotBooted)
	default:
		return ErrNotBooted
	}
}

// WriteInput copies data into the engine namespace under name.
func (s *Session) WriteInput(name string, data []byte) error {
	if err := s.Err(); err != nil {
		return err
	}
	return classify(s.engine.WriteFile(name, data), ErrIO, "write "+name)
}

// Execute runs cmd to completion, forwarding its events to obs.
//
// Progress is reported as a whole percentage and only when it grows.
// All events of the run are delivered before Execute returns.
func (s *Session) Execute(ctx context.Context, cmd command.Command, obs Observer) error {
	if err := s.Err(); err != nil {
		return err
	}

	s.execMu.Lock()
	defer s.execMu.Unlock()

	s.mu.Lock()
	s.observer = obs
	s.lastPercent = -1
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.observer = nil
		s.mu.Unlock()
	}()

	s.log.Debugf("Executing: %s", cmd.DryRun())

	err := s.engine.Exec(ctx, cmd.BuildArgs())
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrExec) {
		return err
	}
	return classify(err, ErrExec, "exec")
}

// ReadOutput reads a file the last command produced. A file the engine
// did not write yields an error matching ErrNotFound.
func (s *Session) ReadOutput(name string) ([]byte, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}

	data, err := s.engine.ReadFile(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return nil, classify(err, ErrIO, "read "+name)
	}
	return data, nil
}

// DeleteInput removes name from the engine namespace. Failures are logged
// and never returned.
func (s *Session) DeleteInput(name string) {
	if err := s.Err(); err != nil {
		s.log.WithError(err).Warnf("Skipping cleanup of %s", name)
		return
	}

	if err := s.engine.DeleteFile(name); err != nil {
		s.log.WithError(classify(err, ErrIO, "delete "+name)).Warn("Failed to delete engine input")
	}
}

// DeleteOutput removes a produced file from the engine namespace. An
// absent file is not an error; other failures are logged.
func (s *Session) DeleteOutput(name string) {
	if s.Err() != nil {
		return
	}

	err := s.engine.DeleteFile(name)
	if err == nil || errors.Is(err, ErrNotFound) {
		return
	}
	s.log.WithError(classify(err, ErrIO, "delete "+name)).Warn("Failed to delete engine output")
}

// Dispose unsubscribes from the engine and closes it. Safe to call more
// than once.
func (s *Session) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateDisposed {
		return nil
	}
	wasReady := s.state == stateReady
	s.state = stateDisposed

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if !wasReady {
		return nil
	}
	if err := s.engine.Close(); err != nil {
		return fmt.Errorf("dispose engine: %w", err)
	}
	s.log.Info("Engine disposed")
	return nil
}

// dispatch routes one engine event to the active observer.
func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	obs := s.observer
	percent := -1
	if ev.Kind == EventProgress {
		p := toPercent(ev.Ratio)
		if p > s.lastPercent {
			s.lastPercent = p
			percent = p
		}
	}
	s.mu.Unlock()

	switch ev.Kind {
	case EventLog:
		s.log.Debug(ev.Message)
		if obs != nil {
			obs.OnLog(ev.Message)
		}
	case EventProgress:
		if percent < 0 {
			return
		}
		if ev.Message != "" {
			s.log.Debug(ev.Message)
		}
		if obs != nil {
			obs.OnProgress(percent)
		}
	}
}

// toPercent floors ratio to a whole percentage clamped to [0,100].
func toPercent(ratio float64) int {
	if ratio != ratio || ratio <= 0 {
		return 0
	}
	if ratio >= 1 {
		return 100
	}
	return int(ratio * 100)
}

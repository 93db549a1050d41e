// Package ffmpeg runs the ffmpeg executable as the cutter's transcoding
// engine, staging files in a private workspace directory.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"cortado/engine"
	"cortado/models"
)

// DefaultBinary is the ffmpeg executable looked up on PATH.
const DefaultBinary = "ffmpeg"

// stderrTailSize bounds the diagnostic text kept for a failed run.
const stderrTailSize = 8 * 1024

// baseArgs are prepended to every run.
var baseArgs = []string{"-hide_banner", "-nostdin", "-y"}

// Engine implements engine.Engine on top of an ffmpeg subprocess.
//
// The workspace directory plays the role of the engine's private
// filesystem: every name passed to the file operations is a bare file
// name inside it. Exec runs with the workspace as working directory.
type Engine struct {
	mu       sync.Mutex
	binary   string
	dir      string
	handlers map[int]func(engine.Event)
	nextID   int
}

var _ engine.Engine = (*Engine)(nil)

// New creates an unloaded engine.
func New() *Engine {
	return &Engine{handlers: make(map[int]func(engine.Event))}
}

// Load resolves the ffmpeg binary, checks that it runs and creates the
// workspace directory.
func (e *Engine) Load(ctx context.Context, cfg engine.LoadConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dir != "" {
		return nil
	}

	name := cfg.BinaryPath
	if name == "" {
		name = DefaultBinary
	}
	binary, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%w: %s not found: %w", engine.ErrEngineLoad, name, err)
	}

	if out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-version").CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s -version: %w (output: %s)", engine.ErrEngineLoad, binary, err, tail(out, 512))
	}

	if cfg.WorkDir != "" {
		if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
			return fmt.Errorf("%w: create work dir: %w", engine.ErrEngineLoad, err)
		}
	}
	dir, err := os.MkdirTemp(cfg.WorkDir, "cortado-engine-")
	if err != nil {
		return fmt.Errorf("%w: create workspace: %w", engine.ErrEngineLoad, err)
	}

	e.binary = binary
	e.dir = dir
	return nil
}

// Dir returns the workspace directory, empty before Load.
func (e *Engine) Dir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir
}

// resolve maps a bare name into the workspace.
func (e *Engine) resolve(name string) (string, error) {
	e.mu.Lock()
	dir := e.dir
	e.mu.Unlock()

	if dir == "" {
		return "", engine.ErrNotBooted
	}
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid file name %q", engine.ErrIO, name)
	}
	return filepath.Join(dir, name), nil
}

func (e *Engine) WriteFile(name string, data []byte) error {
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", engine.ErrIO, err)
	}
	return nil
}

func (e *Engine) ReadFile(name string) ([]byte, error) {
	path, err := e.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrIO, err)
	}
	return data, nil
}

func (e *Engine) DeleteFile(name string) error {
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", engine.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrIO, err)
	}
	return nil
}

// Exec runs ffmpeg with args inside the workspace and blocks until it
// exits. Every stderr line is published as a log event; progress events
// are derived from the input Duration header and the stats time= field.
// A successful run always ends with a progress event of 1.
func (e *Engine) Exec(ctx context.Context, args []string) error {
	e.mu.Lock()
	binary, dir := e.binary, e.dir
	e.mu.Unlock()
	if dir == "" {
		return engine.ErrNotBooted
	}

	cmd := exec.CommandContext(ctx, binary, append(append([]string{}, baseArgs...), args...)...)
	cmd.Dir = dir

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: stderr pipe: %w", engine.ErrExec, err)
	}
	if err := cmd.Start(); err != nil {
		return &engine.ExecError{ExitCode: -1, Message: err.Error(), Err: err}
	}

	var (
		progress = models.NewEngineProgress(0)
		parser   = NewProgressParser()
		last     = newTailBuffer(stderrTailSize)
		lastSent float64
	)
	progress.State = models.ProgressStateRunning

	parseErr := parser.StreamProgress(stderr, progress, func(line string, updated bool) {
		last.Add(line)
		e.publish(engine.Event{Kind: engine.EventLog, Message: line})
		if updated && progress.Ratio > lastSent {
			lastSent = progress.Ratio
			e.publish(engine.Event{Kind: engine.EventProgress, Ratio: progress.Ratio, Message: progress.FormatSummary()})
		}
	})
	if parseErr != nil {
		// keep ffmpeg from blocking on a full stderr pipe
		io.Copy(io.Discard, stderr)
	}

	if err := cmd.Wait(); err != nil {
		progress.State = models.ProgressStateFailed
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		msg := last.String()
		if ctxErr := ctx.Err(); ctxErr != nil {
			msg = ctxErr.Error()
			err = errors.Join(err, ctxErr)
		}
		return &engine.ExecError{ExitCode: exitCode, Message: msg, Err: err}
	}
	if parseErr != nil {
		return fmt.Errorf("%w: %w", engine.ErrExec, parseErr)
	}

	progress.Complete()
	e.publish(engine.Event{Kind: engine.EventProgress, Ratio: progress.Ratio, Message: progress.FormatSummary()})
	return nil
}

func (e *Engine) Subscribe(handler func(engine.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.handlers, id)
		})
	}
}

func (e *Engine) publish(ev engine.Event) {
	e.mu.Lock()
	handlers := make([]func(engine.Event), 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Close removes the workspace and drops all subscribers.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	dir := e.dir
	e.dir = ""
	e.handlers = make(map[int]func(engine.Event))
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// tailBuffer keeps the most recent lines up to a byte budget.
type tailBuffer struct {
	limit int
	size  int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Add(line string) {
	if len(line) > t.limit {
		line = line[len(line)-t.limit:]
	}
	t.lines = append(t.lines, line)
	t.size += len(line) + 1
	for t.size > t.limit && len(t.lines) > 1 {
		t.size -= len(t.lines[0]) + 1
		t.lines = t.lines[1:]
	}
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, "\n")
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

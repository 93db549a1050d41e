package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

// fakeEngine is an in-memory Engine. Exec replays the scripted events to
// subscribers and then returns execErr.
type fakeEngine struct {
	mu       sync.Mutex
	files    map[string][]byte
	handlers map[int]func(Event)
	nextID   int

	loadErr   error
	writeErr  error
	deleteErr error
	execErr   error
	events    []Event
	produce   map[string][]byte

	loads   int
	deletes int
	closes  int
	gotArgs []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{files: map[string][]byte{}, handlers: map[int]func(Event){}}
}

func (f *fakeEngine) Load(ctx context.Context, cfg LoadConfig) error {
	f.loads++
	return f.loadErr
}

func (f *fakeEngine) WriteFile(name string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = data
	return nil
}

func (f *fakeEngine) Exec(ctx context.Context, args []string) error {
	f.gotArgs = args
	for _, ev := range f.events {
		f.publish(ev)
	}
	if f.execErr != nil {
		return f.execErr
	}
	f.mu.Lock()
	for name, data := range f.produce {
		f.files[name] = data
	}
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) ReadFile(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return data, nil
}

func (f *fakeEngine) DeleteFile(name string) error {
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[name]; !ok {
		return fmt.Errorf("delete %s: %w", name, ErrNotFound)
	}
	delete(f.files, name)
	return nil
}

func (f *fakeEngine) Subscribe(handler func(Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fakeEngine) Close() error {
	f.closes++
	return nil
}

func (f *fakeEngine) publish(ev Event) {
	f.mu.Lock()
	hs := make([]func(Event), 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

type fakeCommand struct{ args []string }

func (c fakeCommand) BuildArgs() []string   { return c.args }
func (c fakeCommand) DryRun() string        { return "ffmpeg" }
func (c fakeCommand) GetInputPath() string  { return "input.mp4" }
func (c fakeCommand) GetOutputPath() string { return "clip_%03d.mp4" }

type recordingObserver struct {
	percents []int
	logs     []string
}

func (r *recordingObserver) OnProgress(p int)  { r.percents = append(r.percents, p) }
func (r *recordingObserver) OnLog(msg string) { r.logs = append(r.logs, msg) }

func bootedSession(t *testing.T, eng *fakeEngine) *Session {
	t.Helper()
	s := NewSession(eng, nil)
	if err := s.Boot(context.Background(), LoadConfig{}); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	return s
}

func TestSession_OperationsBeforeBoot(t *testing.T) {
	s := NewSession(newFakeEngine(), nil)

	if s.Ready() {
		t.Error("Session should not be ready before Boot")
	}
	if err := s.WriteInput("input.mp4", []byte("x")); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Expected ErrNotBooted from WriteInput, got %v", err)
	}
	if err := s.Execute(context.Background(), fakeCommand{}, nil); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Expected ErrNotBooted from Execute, got %v", err)
	}
	if _, err := s.ReadOutput("clip_001.mp4"); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Expected ErrNotBooted from ReadOutput, got %v", err)
	}
}

func TestSession_BootIsIdempotent(t *testing.T) {
	eng := newFakeEngine()
	s := bootedSession(t, eng)

	if err := s.Boot(context.Background(), LoadConfig{}); err != nil {
		t.Fatalf("second Boot failed: %v", err)
	}
	if eng.loads != 1 {
		t.Errorf("Expected engine loaded once, got %d", eng.loads)
	}
	if !s.Ready() {
		t.Error("Session should be ready")
	}
}

func TestSession_BootFailureIsFinal(t *testing.T) {
	eng := newFakeEngine()
	eng.loadErr = errors.New("wasm asset unreachable")
	s := NewSession(eng, nil)

	err := s.Boot(context.Background(), LoadConfig{})
	if !errors.Is(err, ErrEngineLoad) {
		t.Fatalf("Expected ErrEngineLoad, got %v", err)
	}

	eng.loadErr = nil
	if err := s.Boot(context.Background(), LoadConfig{}); !errors.Is(err, ErrEngineLoad) {
		t.Errorf("Expected boot failure to stick, got %v", err)
	}
	if eng.loads != 1 {
		t.Errorf("Expected no reload after failure, got %d loads", eng.loads)
	}
	if err := s.WriteInput("input.mp4", []byte("x")); !errors.Is(err, ErrEngineLoad) {
		t.Errorf("Expected ErrEngineLoad from WriteInput, got %v", err)
	}
}

func TestSession_WriteAndReadClassification(t *testing.T) {
	eng := newFakeEngine()
	s := bootedSession(t, eng)

	eng.writeErr = errors.New("disk full")
	if err := s.WriteInput("input.mp4", []byte("x")); !errors.Is(err, ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}

	if _, err := s.ReadOutput("clip_009.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSession_ExecuteForwardsMonotonicProgress(t *testing.T) {
	eng := newFakeEngine()
	eng.events = []Event{
		{Kind: EventLog, Message: "Input #0, mov,mp4"},
		{Kind: EventProgress, Ratio: 0.104},
		{Kind: EventProgress, Ratio: 0.109},
		{Kind: EventProgress, Ratio: 0.05},
		{Kind: EventProgress, Ratio: 0.5},
		{Kind: EventProgress, Ratio: 1.2},
	}
	s := bootedSession(t, eng)
	obs := &recordingObserver{}

	if err := s.Execute(context.Background(), fakeCommand{args: []string{"-i", "input.mp4"}}, obs); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := []int{10, 50, 100}
	if fmt.Sprint(obs.percents) != fmt.Sprint(want) {
		t.Errorf("Expected progress %v, got %v", want, obs.percents)
	}
	if len(obs.logs) != 1 || obs.logs[0] != "Input #0, mov,mp4" {
		t.Errorf("Expected one log line, got %v", obs.logs)
	}
	if fmt.Sprint(eng.gotArgs) != "[-i input.mp4]" {
		t.Errorf("Expected command args passed through, got %v", eng.gotArgs)
	}
}

func TestSession_ExecuteFailure(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantMsg string
	}{
		{
			name:    "typed exec error",
			execErr: &ExecError{ExitCode: 1, Message: "Invalid data found when processing input"},
			wantMsg: "Invalid data found",
		},
		{
			name:    "plain error",
			execErr: errors.New("worker crashed"),
			wantMsg: "worker crashed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newFakeEngine()
			eng.execErr = tt.execErr
			s := bootedSession(t, eng)

			err := s.Execute(context.Background(), fakeCommand{}, nil)
			if !errors.Is(err, ErrExec) {
				t.Fatalf("Expected ErrExec, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected %q in error, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestSession_ObserverDetachedAfterExecute(t *testing.T) {
	eng := newFakeEngine()
	s := bootedSession(t, eng)
	obs := &recordingObserver{}

	if err := s.Execute(context.Background(), fakeCommand{}, obs); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	eng.publish(Event{Kind: EventLog, Message: "late"})
	if len(obs.logs) != 0 {
		t.Errorf("Observer should not receive events after Execute, got %v", obs.logs)
	}
}

func TestSession_DeleteOutput(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	eng := newFakeEngine()
	eng.files["clip_001.mp4"] = []byte("clip")
	s := NewSession(eng, log)
	if err := s.Boot(context.Background(), LoadConfig{}); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}

	s.DeleteOutput("clip_001.mp4")
	if _, err := eng.ReadFile("clip_001.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected clip removed, got %v", err)
	}

	// a clip that was never produced is not worth a warning
	s.DeleteOutput("clip_002.mp4")
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, "Failed to delete") {
			t.Errorf("Unexpected warning for a missing output: %s", entry.Message)
		}
	}

	eng.deleteErr = errors.New("permission denied")
	s.DeleteOutput("clip_003.mp4")
	if entry := hook.LastEntry(); entry == nil || entry.Message != "Failed to delete engine output" {
		t.Errorf("Expected a warning for a failed delete, got %v", entry)
	}
	if eng.deletes != 3 {
		t.Errorf("Expected 3 delete attempts, got %d", eng.deletes)
	}
}

func TestSession_DeleteOutputBeforeBoot(t *testing.T) {
	eng := newFakeEngine()
	s := NewSession(eng, nil)

	s.DeleteOutput("clip_001.mp4")
	if eng.deletes != 0 {
		t.Errorf("Expected no delete before boot, got %d", eng.deletes)
	}
}

func TestSession_DeleteInputSwallowsErrors(t *testing.T) {
	eng := newFakeEngine()
	eng.deleteErr = errors.New("permission denied")
	s := bootedSession(t, eng)

	s.DeleteInput("input.mp4")

	if eng.deletes != 1 {
		t.Errorf("Expected one delete attempt, got %d", eng.deletes)
	}
}

func TestSession_Dispose(t *testing.T) {
	eng := newFakeEngine()
	s := bootedSession(t, eng)

	if err := s.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := s.Dispose(); err != nil {
		t.Fatalf("second Dispose failed: %v", err)
	}
	if eng.closes != 1 {
		t.Errorf("Expected engine closed once, got %d", eng.closes)
	}
	if len(eng.handlers) != 0 {
		t.Errorf("Expected subscription released, got %d handlers", len(eng.handlers))
	}
	if err := s.WriteInput("input.mp4", nil); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Expected ErrNotBooted after Dispose, got %v", err)
	}
	if err := s.Boot(context.Background(), LoadConfig{}); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Expected disposed session to refuse Boot, got %v", err)
	}
}

func TestExecError(t *testing.T) {
	err := fmt.Errorf("job: %w", &ExecError{ExitCode: 69, Message: "boom"})

	if !errors.Is(err, ErrExec) {
		t.Error("ExecError should match ErrExec")
	}
	var execErr *ExecError
	if !errors.As(err, &execErr) || execErr.ExitCode != 69 {
		t.Errorf("Expected ExecError with exit 69, got %v", err)
	}
}

func TestToPercent(t *testing.T) {
	tests := []struct {
		ratio float64
		want  int
	}{
		{-0.5, 0}, {0, 0}, {0.019, 1}, {0.999, 99}, {1, 100}, {3, 100},
	}
	for _, tt := range tests {
		if got := toPercent(tt.ratio); got != tt.want {
			t.Errorf("toPercent(%v) = %d, want %d", tt.ratio, got, tt.want)
		}
	}
}

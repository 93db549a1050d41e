// Package orchestrator runs cut jobs: it probes the source duration, plans
// the cuts, drives the engine session through write, execute, read and
// cleanup, and reports every step as a JobState snapshot.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cortado/command"
	"cortado/command/segment"
	"cortado/engine"
	"cortado/internal/logging"
	"cortado/models"
	"cortado/planner"
)

var (
	// ErrBusy is returned by StartJob while another job is active.
	ErrBusy = errors.New("a cut job is already running")

	// ErrDurationProbe marks a job that failed because the source duration
	// could not be read.
	ErrDurationProbe = errors.New("duration probe failed")
)

// DefaultInputName is the engine file name of the source, before the
// source's extension is appended.
const DefaultInputName = "input"

// DurationProbe measures a source's duration in seconds.
type DurationProbe interface {
	Probe(ctx context.Context, source *models.VideoSource) (float64, error)
}

// EngineSession is the part of engine.Session a job needs.
type EngineSession interface {
	Err() error
	WriteInput(name string, data []byte) error
	Execute(ctx context.Context, cmd command.Command, obs engine.Observer) error
	ReadOutput(name string) ([]byte, error)
	DeleteInput(name string)
	DeleteOutput(name string)
}

// Recorder persists finished jobs.
type Recorder interface {
	Record(ctx context.Context, state models.JobState) error
}

// Options configures an Orchestrator. The zero value is usable.
type Options struct {
	// InputName is the engine file name of the source without extension.
	InputName string
	// ClipPrefix names the clips <prefix>_001<ext>, ...
	ClipPrefix string
	// Context bounds every job. Cancelling it aborts the running job.
	// Jobs are not tied to the context passed to StartJob.
	Context context.Context
	// Recorder, when set, receives the first and the terminal snapshot
	// of every job.
	Recorder Recorder
}

// Orchestrator runs at most one cut job at a time against one engine session.
type Orchestrator struct {
	session EngineSession
	probe   DurationProbe
	log     logrus.FieldLogger
	opts    Options

	mu      sync.Mutex
	current models.JobState
	last    models.JobState
	active  bool
}

// New creates an idle Orchestrator. log may be nil.
func New(session EngineSession, probe DurationProbe, log logrus.FieldLogger, opts Options) *Orchestrator {
	if opts.InputName == "" {
		opts.InputName = DefaultInputName
	}
	if opts.ClipPrefix == "" {
		opts.ClipPrefix = planner.DefaultPrefix
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	return &Orchestrator{
		session: session,
		probe:   probe,
		log:     logging.WithComponent(log, "orchestrator"),
		opts:    opts,
		current: models.JobState{Phase: models.PhaseIdle, UpdatedAt: time.Now()},
	}
}

// transitions is the allowed edge table of the job state machine.
var transitions = map[models.Phase][]models.Phase{
	models.PhaseIdle:              {models.PhaseProbingDuration},
	models.PhaseProbingDuration:   {models.PhaseLoadingInput, models.PhaseFailed},
	models.PhaseLoadingInput:      {models.PhaseExecuting, models.PhaseFailed},
	models.PhaseExecuting:         {models.PhaseCollectingOutputs, models.PhaseFailed},
	models.PhaseCollectingOutputs: {models.PhaseDone, models.PhaseFailed},
}

func isValidTransition(from, to models.Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// StartJob starts cutting source into segmentLength-second clips and
// returns the job's snapshot stream.
//
// Every phase change is delivered. Progress-only snapshots are dropped
// when the reader lags, since each carries the absolute percentage. The
// stream ends with exactly one done or failed snapshot and is then closed.
// Only that terminal snapshot carries clip payloads.
// By then the input has been removed from the engine and the
// orchestrator accepts a new job.
func (o *Orchestrator) StartJob(ctx context.Context, source *models.VideoSource, segmentLength int) (<-chan models.JobState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if segmentLength <= 0 {
		return nil, fmt.Errorf("%w: segment length must be positive, got %d", planner.ErrInvalidInput, segmentLength)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: source cannot be nil", planner.ErrInvalidInput)
	}
	if err := source.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", planner.ErrInvalidInput, err)
	}
	if err := o.session.Err(); err != nil {
		if errors.Is(err, engine.ErrEngineLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", engine.ErrEngineLoad, err)
	}

	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.active = true
	now := time.Now()
	o.current = models.JobState{
		JobID:         uuid.NewString(),
		SourceName:    source.Name,
		SegmentLength: segmentLength,
		Phase:         models.PhaseIdle,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	jobID := o.current.JobID
	o.mu.Unlock()

	j := &job{
		o:       o,
		id:      jobID,
		source:  source,
		segment: segmentLength,
		naming:  planner.NamingForSource(o.opts.ClipPrefix, source.Name),
		out:     make(chan models.JobState, streamBuffer),
		log: o.log.WithFields(logrus.Fields{
			"job_id": jobID,
			"source": source.Name,
		}),
	}
	j.inputName = o.opts.InputName + j.naming.Extension

	go j.run(o.opts.Context)
	return j.out, nil
}

// Current returns the snapshot of the running job, or an idle snapshot.
func (o *Orchestrator) Current() models.JobState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current.Clone()
}

// Last returns the terminal snapshot of the most recent finished job.
// Its phase is idle when no job has finished yet.
func (o *Orchestrator) Last() models.JobState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last.Phase == "" {
		return models.JobState{Phase: models.PhaseIdle}
	}
	return o.last.Clone()
}

// Busy reports whether a job is active.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Wait drains a job stream and returns its terminal snapshot.
func Wait(stream <-chan models.JobState) models.JobState {
	var last models.JobState
	for s := range stream {
		last = s
	}
	return last
}

// streamBuffer holds every phase snapshot of a job plus some progress.
// Progress is only queued while phaseReserve slots stay free, so phase
// sends never block.
const (
	streamBuffer = 16
	phaseReserve = 6
)

// job is one run of the state machine.
type job struct {
	o         *Orchestrator
	id        string
	source    *models.VideoSource
	segment   int
	naming    planner.Naming
	inputName string
	plan      *planner.CutPlan
	out       chan models.JobState
	log       logrus.FieldLogger
}

func (j *job) run(ctx context.Context) {
	var final models.JobState
	defer func() {
		if r := recover(); r != nil {
			j.log.Errorf("Job panicked: %v", r)
			final = j.forceFail(fmt.Errorf("internal error: %v", r))
		}
		j.finish(ctx, final)
	}()

	final = j.execute(ctx)
}

// execute walks the phases and returns the terminal snapshot.
func (j *job) execute(ctx context.Context) models.JobState {
	// probingDuration
	if err := j.transition(models.PhaseProbingDuration, "Reading video duration"); err != nil {
		return j.forceFail(err)
	}
	j.record(ctx, j.snapshot())
	duration, err := j.duration(ctx)
	if err != nil {
		return j.fail(fmt.Errorf("%w: %w", ErrDurationProbe, err))
	}
	j.update(func(s *models.JobState) { s.DurationSeconds = duration })

	// loadingInput
	if err := j.transition(models.PhaseLoadingInput, "Loading video into the engine"); err != nil {
		return j.forceFail(err)
	}
	data, err := j.source.Bytes()
	if err != nil {
		return j.fail(fmt.Errorf("%w: %w", engine.ErrIO, err))
	}
	if err := j.o.session.WriteInput(j.inputName, data); err != nil {
		return j.fail(err)
	}

	// executing
	plan, err := planner.PlanWithNaming(duration, j.segment, j.naming)
	if err != nil {
		return j.fail(err)
	}
	j.update(func(s *models.JobState) { s.ClipCount = plan.ClipCount })
	msg := fmt.Sprintf("Cutting into %d clip(s) of %ds", plan.ClipCount, plan.SegmentLength)
	if err := j.transition(models.PhaseExecuting, msg); err != nil {
		return j.forceFail(err)
	}

	// clips left by an earlier job must never be collected as this job's
	j.plan = plan
	j.removeOutputs()

	cmd := segment.NewCommand(j.inputName, plan)
	j.log.WithField("clips", plan.ClipCount).Infof("Running %s", cmd.DryRun())
	if err := j.o.session.Execute(ctx, cmd, j); err != nil {
		return j.fail(err)
	}

	// collectingOutputs
	if err := j.transition(models.PhaseCollectingOutputs, "Collecting clips"); err != nil {
		return j.forceFail(err)
	}
	artifacts, missing := models.SplitOutputs(j.collect(plan))

	j.update(func(s *models.JobState) {
		s.Artifacts = artifacts
		s.Missing = missing
		s.ProgressPercent = 100
	})
	msg = fmt.Sprintf("Done: %d of %d clip(s) produced", len(artifacts), plan.ClipCount)
	if err := j.transition(models.PhaseDone, msg); err != nil {
		return j.forceFail(err)
	}
	return j.snapshot()
}

// duration returns the source's known duration or probes it.
func (j *job) duration(ctx context.Context) (float64, error) {
	if d, ok := j.source.Duration(); ok {
		return d, nil
	}
	if j.o.probe == nil {
		return 0, errors.New("no duration probe configured")
	}
	return j.o.probe.Probe(ctx, j.source)
}

// collect reads every expected clip in plan order. A clip the engine did
// not write is recorded as missing and does not stop the collection.
func (j *job) collect(plan *planner.CutPlan) []models.OutputResult {
	results := make([]models.OutputResult, 0, plan.ClipCount)
	for i, name := range plan.ExpectedFilenames {
		index := i + 1

		data, err := j.o.session.ReadOutput(name)
		if err == nil {
			var artifact *models.Artifact
			artifact, err = models.NewArtifact(index, name, plan.SegmentLength, data)
			if err == nil {
				var r models.OutputResult
				if r, err = models.NewOutputFound(artifact); err == nil {
					results = append(results, r)
					continue
				}
			}
		}

		if errors.Is(err, engine.ErrNotFound) {
			j.log.WithField("clip", name).Warn("Clip was not produced, skipping")
		} else {
			j.log.WithError(err).WithField("clip", name).Warn("Failed to read clip, skipping")
		}
		r, _ := models.NewOutputMissing(index, name, err)
		results = append(results, r)
	}
	return results
}

// removeOutputs deletes every planned clip from the engine. Collected
// clips are already held in memory.
func (j *job) removeOutputs() {
	if j.plan == nil {
		return
	}
	for _, name := range j.plan.ExpectedFilenames {
		j.o.session.DeleteOutput(name)
	}
}

// OnProgress implements engine.Observer.
func (j *job) OnProgress(percent int) {
	j.o.mu.Lock()
	if j.o.current.JobID != j.id || percent <= j.o.current.ProgressPercent {
		j.o.mu.Unlock()
		return
	}
	j.o.current.ProgressPercent = percent
	j.o.current.UpdatedAt = time.Now()
	snap := j.o.current.WithoutPayloads()
	j.o.mu.Unlock()

	if len(j.out) < cap(j.out)-phaseReserve {
		select {
		case j.out <- snap:
		default:
		}
	}
}

// OnLog implements engine.Observer. Engine lines are already logged at
// debug level by the session.
func (j *job) OnLog(string) {}

// transition moves the job to phase, checking the edge table, and
// publishes the new snapshot.
func (j *job) transition(phase models.Phase, message string) error {
	j.o.mu.Lock()
	from := j.o.current.Phase
	if !isValidTransition(from, phase) {
		j.o.mu.Unlock()
		return fmt.Errorf("invalid transition: %s -> %s", from, phase)
	}
	j.o.current.Phase = phase
	j.o.current.Message = message
	j.o.current.UpdatedAt = time.Now()
	snap := j.o.current.Clone()
	j.o.mu.Unlock()

	j.log.WithField("phase", phase).Info(message)
	if !phase.IsTerminal() {
		j.out <- snap.WithoutPayloads()
	}
	return nil
}

func (j *job) update(fn func(s *models.JobState)) {
	j.o.mu.Lock()
	defer j.o.mu.Unlock()
	fn(&j.o.current)
	j.o.current.UpdatedAt = time.Now()
}

func (j *job) snapshot() models.JobState {
	j.o.mu.Lock()
	defer j.o.mu.Unlock()
	return j.o.current.Clone()
}

// fail moves the job to failed with err as the reason.
func (j *job) fail(err error) models.JobState {
	j.log.WithError(err).Error("Cut job failed")
	j.update(func(s *models.JobState) { s.LastError = err.Error() })
	if terr := j.transition(models.PhaseFailed, "Failed: "+err.Error()); terr != nil {
		return j.forceFail(err)
	}
	return j.snapshot()
}

// forceFail ends the job in failed without consulting the edge table.
// Reaching it means the state machine itself is broken.
func (j *job) forceFail(err error) models.JobState {
	j.o.mu.Lock()
	defer j.o.mu.Unlock()
	j.o.current.Phase = models.PhaseFailed
	j.o.current.LastError = err.Error()
	j.o.current.Message = "Failed: " + err.Error()
	j.o.current.UpdatedAt = time.Now()
	return j.o.current.Clone()
}

// record hands state to the Recorder, if any. The row is written once
// when the job starts and again when it ends, so a job cut short by a
// crash is still visible.
func (j *job) record(ctx context.Context, state models.JobState) {
	rec := j.o.opts.Recorder
	if rec == nil {
		return
	}
	if err := rec.Record(context.WithoutCancel(ctx), state.WithoutPayloads()); err != nil {
		j.log.WithError(err).Warn("Failed to record job history")
	}
}

// finish cleans up the engine input, records the job, returns the
// orchestrator to idle and only then emits the terminal snapshot.
func (j *job) finish(ctx context.Context, final models.JobState) {
	j.o.session.DeleteInput(j.inputName)
	j.removeOutputs()
	j.record(ctx, final)

	j.o.mu.Lock()
	j.o.last = final.Clone()
	j.o.current = models.JobState{Phase: models.PhaseIdle, UpdatedAt: time.Now()}
	j.o.active = false
	j.o.mu.Unlock()

	j.log.WithFields(logrus.Fields{
		"phase":     final.Phase,
		"artifacts": len(final.Artifacts),
		"missing":   len(final.Missing),
	}).Info("Cut job finished")

	j.out <- final
	close(j.out)
}

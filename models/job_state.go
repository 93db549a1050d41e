package models

import "time"

// Phase is the current step of a cut job.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseProbingDuration   Phase = "probingDuration"
	PhaseLoadingInput      Phase = "loadingInput"
	PhaseExecuting         Phase = "executing"
	PhaseCollectingOutputs Phase = "collectingOutputs"
	PhaseDone              Phase = "done"
	PhaseFailed            Phase = "failed"
)

// IsTerminal reports whether no further transition can happen in this job.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// IsActive reports whether a job is in flight.
func (p Phase) IsActive() bool {
	switch p {
	case PhaseProbingDuration, PhaseLoadingInput, PhaseExecuting, PhaseCollectingOutputs:
		return true
	default:
		return false
	}
}

// JobState is a snapshot of one cut job.
//
// Snapshots handed to callers never share slices with the orchestrator's
// live state.
type JobState struct {
	JobID           string     `json:"job_id,omitempty"`
	SourceName      string     `json:"source_name,omitempty"`
	SegmentLength   int        `json:"segment_length,omitempty"`
	Phase           Phase      `json:"phase"`
	ProgressPercent int        `json:"progress_percent"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	ClipCount       int        `json:"clip_count,omitempty"`
	Artifacts       []Artifact `json:"artifacts,omitempty"`
	Missing         []string   `json:"missing,omitempty"`
	Message         string     `json:"message,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	StartedAt       time.Time  `json:"started_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the snapshot.
func (s JobState) Clone() JobState {
	out := s
	if s.Artifacts != nil {
		out.Artifacts = append([]Artifact(nil), s.Artifacts...)
	}
	if s.Missing != nil {
		out.Missing = append([]string(nil), s.Missing...)
	}
	return out
}

// WithoutPayloads returns a copy whose artifacts carry no clip bytes.
// Used when serialising state for status endpoints and logs.
func (s JobState) WithoutPayloads() JobState {
	out := s.Clone()
	for i := range out.Artifacts {
		out.Artifacts[i].Payload = nil
	}
	return out
}

// Incomplete reports whether a finished job produced fewer clips than planned.
func (s JobState) Incomplete() bool {
	return s.Phase == PhaseDone && len(s.Artifacts) < s.ClipCount
}

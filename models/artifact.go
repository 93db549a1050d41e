package models

import (
	"fmt"
	"strings"
)

// DownloadPrefix is prepended to every suggested download name.
const DownloadPrefix = "cortado"

// Artifact is one produced clip, ready to hand to the user.
type Artifact struct {
	Index          int    `json:"index"`
	SourceFilename string `json:"source_filename"`
	DownloadName   string `json:"download_name"`
	Size           int    `json:"size"`
	Payload        []byte `json:"-"`
}

// NewArtifact creates an Artifact for the clip read back from filename.
//
// The download name follows cortado_<segLen>s_<filename>, e.g.
// cortado_60s_clip_001.mp4.
func NewArtifact(index int, filename string, segmentLength int, payload []byte) (*Artifact, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("invalid artifact: filename cannot be empty")
	}
	if index < 1 {
		return nil, fmt.Errorf("invalid artifact: index must be 1-based, got %d", index)
	}

	return &Artifact{
		Index:          index,
		SourceFilename: filename,
		DownloadName:   DownloadName(segmentLength, filename),
		Size:           len(payload),
		Payload:        payload,
	}, nil
}

// DownloadName returns the suggested download name for a clip file.
func DownloadName(segmentLength int, filename string) string {
	return fmt.Sprintf("%s_%ds_%s", DownloadPrefix, segmentLength, filename)
}

// OutputResult is the outcome of reading back one expected clip.
//
// Exactly one of Artifact and Err is set. A missing clip is a normal
// outcome (the segment was too short to hold a keyframe), so results are
// collected per item instead of aborting the job.
type OutputResult struct {
	Index    int       `json:"index"`
	Filename string    `json:"filename"`
	Artifact *Artifact `json:"artifact,omitempty"`
	Err      error     `json:"-"`
}

// NewOutputFound creates a successful OutputResult.
func NewOutputFound(artifact *Artifact) (OutputResult, error) {
	if artifact == nil {
		return OutputResult{}, fmt.Errorf("invalid output result: artifact cannot be nil")
	}
	r := OutputResult{
		Index:    artifact.Index,
		Filename: artifact.SourceFilename,
		Artifact: artifact,
	}
	return r, r.Validate()
}

// NewOutputMissing creates a failed OutputResult for filename.
func NewOutputMissing(index int, filename string, readErr error) (OutputResult, error) {
	if readErr == nil {
		return OutputResult{}, fmt.Errorf("invalid output result: error cannot be nil for missing output")
	}
	r := OutputResult{Index: index, Filename: filename, Err: readErr}
	return r, r.Validate()
}

// OK reports whether the clip was produced.
func (r OutputResult) OK() bool {
	return r.Artifact != nil && r.Err == nil
}

// Validate checks that the result is either found or missing, never both.
func (r OutputResult) Validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if r.Artifact != nil && r.Err != nil {
		return fmt.Errorf("inconsistent state: artifact is set but error is not nil")
	}
	if r.Artifact == nil && r.Err == nil {
		return fmt.Errorf("missing output must have an error")
	}
	return nil
}

// SplitOutputs separates produced artifacts from missing filenames,
// preserving plan order.
func SplitOutputs(results []OutputResult) ([]Artifact, []string) {
	artifacts := make([]Artifact, 0, len(results))
	var missing []string
	for _, r := range results {
		if r.OK() {
			artifacts = append(artifacts, *r.Artifact)
		} else {
			missing = append(missing, r.Filename)
		}
	}
	return artifacts, missing
}

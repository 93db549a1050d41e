// Package planner derives cut points and expected clip filenames from a
// video's duration and a fixed segment length.
package planner

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultSegmentLength is the clip length in seconds when none is configured
	DefaultSegmentLength = 60

	// DefaultPrefix and DefaultExtension name clips clip_001.mp4, clip_002.mp4, ...
	DefaultPrefix    = "clip"
	DefaultExtension = ".mp4"

	// filenameDigits is the zero-padding width of the clip index
	filenameDigits = 3
)

// ErrInvalidInput is returned for a negative duration, a non-positive
// segment length, or an unusable naming scheme.
var ErrInvalidInput = errors.New("invalid input")

// Naming describes how clip files are named: <Prefix>_<NNN><Extension>.
type Naming struct {
	Prefix    string
	Extension string
}

// DefaultNaming returns the clip_NNN.mp4 scheme.
func DefaultNaming() Naming {
	return Naming{Prefix: DefaultPrefix, Extension: DefaultExtension}
}

// NamingForSource keeps the source container's extension so clips are
// written in the same container they were cut from.
func NamingForSource(prefix, sourceName string) Naming {
	ext := strings.ToLower(filepath.Ext(sourceName))
	if ext == "" || ext == "." {
		ext = DefaultExtension
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Naming{Prefix: prefix, Extension: ext}
}

// Validate rejects names that could escape the engine's workspace or
// produce an ambiguous pattern.
func (n Naming) Validate() error {
	if strings.TrimSpace(n.Prefix) == "" {
		return fmt.Errorf("%w: prefix cannot be empty", ErrInvalidInput)
	}
	if strings.ContainsAny(n.Prefix, `/\%`) || strings.Contains(n.Prefix, "..") {
		return fmt.Errorf("%w: prefix %q contains a reserved character", ErrInvalidInput, n.Prefix)
	}
	if !strings.HasPrefix(n.Extension, ".") || len(n.Extension) < 2 {
		return fmt.Errorf("%w: extension %q must start with a dot", ErrInvalidInput, n.Extension)
	}
	if strings.ContainsAny(n.Extension[1:], `/\%.`) {
		return fmt.Errorf("%w: extension %q contains a reserved character", ErrInvalidInput, n.Extension)
	}
	return nil
}

// Filename returns the name of the clip at the 1-based index.
func (n Naming) Filename(index int) string {
	return fmt.Sprintf("%s_%0*d%s", n.Prefix, filenameDigits, index, n.Extension)
}

// Pattern returns the printf-style output pattern the engine numbers clips with.
func (n Naming) Pattern() string {
	return fmt.Sprintf("%s_%%0%dd%s", n.Prefix, filenameDigits, n.Extension)
}

// CutPlan is the immutable result of planning one cut job.
type CutPlan struct {
	SegmentLength     int
	TotalDuration     float64
	ClipCount         int
	CutTimestamps     []int
	ExpectedFilenames []string
	Naming            Naming
}

// Plan creates a CutPlan with the default clip naming.
//
// Example:
//
//	plan, _ := planner.Plan(150, 60)
//	// plan.ClipCount == 3
//	// plan.CutTimestamps == []int{60, 120}
//	// plan.ExpectedFilenames == []string{"clip_001.mp4", "clip_002.mp4", "clip_003.mp4"}
func Plan(durationSeconds float64, segmentLengthSeconds int) (*CutPlan, error) {
	return PlanWithNaming(durationSeconds, segmentLengthSeconds, DefaultNaming())
}

// PlanWithNaming creates a CutPlan using the given clip naming.
//
// clipCount is ceil(duration / segmentLength) and never below 1. Cut
// timestamps are rounded to whole seconds. Filenames do not depend on the
// timestamps: the engine decides exact (keyframe) boundaries but keeps
// the same 1-based sequential numbering.
func PlanWithNaming(durationSeconds float64, segmentLengthSeconds int, naming Naming) (*CutPlan, error) {
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) || durationSeconds < 0 {
		return nil, fmt.Errorf("%w: duration must be a finite value >= 0, got %v", ErrInvalidInput, durationSeconds)
	}
	if segmentLengthSeconds <= 0 {
		return nil, fmt.Errorf("%w: segment length must be positive, got %d", ErrInvalidInput, segmentLengthSeconds)
	}
	if err := naming.Validate(); err != nil {
		return nil, err
	}

	segment := float64(segmentLengthSeconds)
	clipCount := int(math.Ceil(durationSeconds / segment))
	if clipCount < 1 {
		clipCount = 1
	}

	cuts := make([]int, 0, clipCount-1)
	for i := 0; i < clipCount-1; i++ {
		cuts = append(cuts, int(math.Round(float64(i+1)*segment)))
	}

	filenames := make([]string, clipCount)
	for i := range filenames {
		filenames[i] = naming.Filename(i + 1)
	}

	return &CutPlan{
		SegmentLength:     segmentLengthSeconds,
		TotalDuration:     durationSeconds,
		ClipCount:         clipCount,
		CutTimestamps:     cuts,
		ExpectedFilenames: filenames,
		Naming:            naming,
	}, nil
}

// SegmentTimes returns the cut timestamps joined by commas, e.g. "60,120".
// Empty for a single-clip plan.
func (p *CutPlan) SegmentTimes() string {
	parts := make([]string, len(p.CutTimestamps))
	for i, t := range p.CutTimestamps {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, ",")
}

// OutputPattern returns the engine output pattern for this plan.
func (p *CutPlan) OutputPattern() string {
	return p.Naming.Pattern()
}

// Validate checks the plan's structural invariants.
func (p *CutPlan) Validate() error {
	if p.ClipCount < 1 {
		return fmt.Errorf("clip count must be at least 1, got %d", p.ClipCount)
	}
	if len(p.ExpectedFilenames) != p.ClipCount {
		return fmt.Errorf("expected %d filenames, got %d", p.ClipCount, len(p.ExpectedFilenames))
	}
	if len(p.CutTimestamps) != p.ClipCount-1 {
		return fmt.Errorf("expected %d cut timestamps, got %d", p.ClipCount-1, len(p.CutTimestamps))
	}
	for i := 1; i < len(p.CutTimestamps); i++ {
		if p.CutTimestamps[i] <= p.CutTimestamps[i-1] {
			return fmt.Errorf("cut timestamps must be strictly increasing: %d then %d",
				p.CutTimestamps[i-1], p.CutTimestamps[i])
		}
	}
	for i, name := range p.ExpectedFilenames {
		if want := p.Naming.Filename(i + 1); name != want {
			return fmt.Errorf("filename %d: expected %s, got %s", i+1, want, name)
		}
	}
	return nil
}

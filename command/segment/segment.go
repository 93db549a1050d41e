// Package segment builds the stream-copy segmenting command for a cut plan.
package segment

import (
	"cortado/command"
	"cortado/planner"
)

// Command splits one input into numbered clips at the plan's cut points.
//
// Streams are copied, never re-encoded, so cuts snap to the next keyframe
// and a clip may come out shorter or longer than the segment length. A
// clip whose span holds no keyframe is not written at all.
type Command struct {
	inputName string
	plan      *planner.CutPlan
}

var _ command.Command = (*Command)(nil)

// NewCommand creates a segmenting command reading inputName.
func NewCommand(inputName string, plan *planner.CutPlan) *Command {
	return &Command{inputName: inputName, plan: plan}
}

// BuildArgs constructs the ffmpeg arguments for segment splitting:
//
//	-i <input> -c copy -map 0 -f segment [-segment_times t1,t2,...]
//	-reset_timestamps 1 -segment_start_number 1 <prefix>_%03d<ext>
//
// This deliberately differs from the bare segment contract in two places.
// -segment_times is left out for a single-clip plan since ffmpeg rejects
// an empty list, and -segment_start_number 1 is added because the muxer
// numbers from 0 while the planned filenames are 1-based.
func (c *Command) BuildArgs() []string {
	args := []string{
		"-i", c.inputName,
		"-c", "copy", // copy streams without re-encoding
		"-map", "0", // keep every stream
		"-f", "segment",
	}

	if times := c.plan.SegmentTimes(); times != "" {
		args = append(args, "-segment_times", times)
	}

	args = append(args,
		"-reset_timestamps", "1", // each clip starts at t=0
		"-segment_start_number", "1",
		c.plan.OutputPattern(),
	)

	return args
}

// DryRun returns the command string without executing.
func (c *Command) DryRun() string {
	return command.Render(c.BuildArgs())
}

// GetInputPath returns the engine file name of the source.
func (c *Command) GetInputPath() string {
	return c.inputName
}

// GetOutputPath returns the clip filename pattern.
func (c *Command) GetOutputPath() string {
	return c.plan.OutputPattern()
}

// Plan returns the plan the command was built from.
func (c *Command) Plan() *planner.CutPlan {
	return c.plan
}

// Package command provides the Command interface implemented by every
// engine invocation the cutter can build.
//
// A Command only describes an invocation. Running it is the engine's job,
// so the same value can be previewed with DryRun, logged, and handed to
// an engine session unchanged.
package command

import "strings"

// Binary is the executable name used when rendering a command for display.
const Binary = "ffmpeg"

// Command represents an ffmpeg invocation that can be built or previewed.
//
// Example usage:
//
//	plan, _ := planner.Plan(150, 60)
//	cmd := segment.NewCommand("input.mp4", plan)
//
//	// Preview the command
//	fmt.Println(cmd.DryRun())
//
//	// Hand it to the engine
//	err := session.Execute(ctx, cmd, observer)
type Command interface {
	// BuildArgs constructs and returns the ffmpeg arguments as a slice,
	// without the binary name.
	//
	// Example return value:
	//   ["-i", "input.mp4", "-c", "copy", "-map", "0", "-f", "segment", ...]
	BuildArgs() []string

	// DryRun returns the command as a string in the form "ffmpeg <args...>".
	DryRun() string

	// GetInputPath returns the engine file name the command reads.
	GetInputPath() string

	// GetOutputPath returns the output file name or pattern the command writes.
	GetOutputPath() string
}

// Render joins args into a single display string prefixed with Binary.
// Arguments containing spaces are quoted.
func Render(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, Binary)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t") {
			parts = append(parts, "'"+a+"'")
			continue
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

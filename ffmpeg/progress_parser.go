package ffmpeg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"cortado/models"
)

// ProgressParser parses ffmpeg stderr output for run metrics
type ProgressParser struct {
	durationRegex *regexp.Regexp
	sizeRegex     *regexp.Regexp
	timeRegex     *regexp.Regexp
	speedRegex    *regexp.Regexp
}

// NewProgressParser creates a new parser for ffmpeg stderr output
func NewProgressParser() *ProgressParser {
	return &ProgressParser{
		// Input header: "  Duration: 00:02:30.02, start: 0.000000, bitrate: 1205 kb/s"
		durationRegex: regexp.MustCompile(`Duration:\s*(\d+:\d+:\d+(?:\.\d+)?)`),
		// Stats fields appear mid-line: "frame=  250 fps=0.0 q=-1.0 size=N/A time=00:00:10.00 ..."
		sizeRegex:  regexp.MustCompile(`(?:^|\s)(?:L?size)=\s*([0-9]+)\s*[kK]i?B`),
		timeRegex:  regexp.MustCompile(`(?:^|\s)time=\s*(-?\d+:\d+:\d+(?:\.\d+)?)`),
		speedRegex: regexp.MustCompile(`(?:^|\s)speed=\s*([0-9.]+)x?`),
	}
}

// ParseLine parses a single line of ffmpeg stderr output and updates progress.
// Returns true when the position in the input moved forward or was set.
func (pp *ProgressParser) ParseLine(line string, progress *models.EngineProgress) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	// The first Duration header belongs to the input; outputs never report one
	if progress.TotalDuration == 0 {
		if matches := pp.durationRegex.FindStringSubmatch(line); len(matches) > 1 {
			if seconds := timeToSeconds(matches[1]); seconds > 0 {
				progress.TotalDuration = seconds
			}
		}
	}

	updated := false

	if matches := pp.timeRegex.FindStringSubmatch(line); len(matches) > 1 {
		progress.CurrentTime = matches[1]
		if seconds := timeToSeconds(matches[1]); seconds >= 0 {
			progress.CalculateProgress(seconds)
			progress.State = models.ProgressStateRunning
			updated = true
		}
	}

	if matches := pp.sizeRegex.FindStringSubmatch(line); len(matches) > 1 {
		progress.Size = matches[1] + "kB"
	}

	if matches := pp.speedRegex.FindStringSubmatch(line); len(matches) > 1 {
		if speed, err := strconv.ParseFloat(matches[1], 64); err == nil {
			progress.Speed = speed
		}
	}

	return updated
}

// StreamProgress reads ffmpeg stderr until EOF. onLine is called for every
// non-empty line after it has been parsed, with whether it moved progress.
func (pp *ProgressParser) StreamProgress(reader io.Reader, progress *models.EngineProgress, onLine func(line string, updated bool)) error {
	scanner := bufio.NewScanner(reader)

	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	// ffmpeg rewrites its stats line in place with \r
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		updated := pp.ParseLine(line, progress)
		if onLine != nil {
			onLine(line, updated)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ffmpeg output: %w", err)
	}
	return nil
}

// scanLines is bufio.ScanLines that also breaks on a bare \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// timeToSeconds converts ffmpeg time format (HH:MM:SS.MS) to seconds.
// Returns -1 when the value cannot be parsed.
func timeToSeconds(timeStr string) float64 {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return -1
	}

	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)

	if err1 != nil || err2 != nil || err3 != nil {
		return -1
	}

	total := hours*3600 + minutes*60 + seconds
	if total < 0 {
		return -1
	}
	return total
}

package probe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"varatio/internal/procexec"
)

// ErrProbeFailed is returned when width, height or a positive duration cannot
// be read from the probe output.
var ErrProbeFailed = errors.New("probe failed")

// VideoInfo holds the frame size and duration of the primary video stream.
type VideoInfo struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
}

// Args returns the ffprobe arguments for path. Output is one CSV line per
// section: "width,height,stream_duration" then "container_duration".
func Args(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration:format=duration",
		"-of", "csv=p=0",
		path,
	}
}

// Probe runs ffprobe through r and parses its output.
func Probe(ctx context.Context, r procexec.Runner, ffprobePath, path string) (*VideoInfo, error) {
	out, err := r.Run(ctx, ffprobePath, Args(path), procexec.Stdout)
	if err != nil {
		return nil, err
	}
	info, ok := ParseOutput(out)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProbeFailed, path)
	}
	return info, nil
}

// ParseOutput reads probe output permissively. The first line holding two
// integers gives width and height, and an optional third numeric field the
// stream duration. A bare numeric line is the container duration, used only
// when no stream duration was found.
func ParseOutput(out string) (*VideoInfo, bool) {
	var (
		info          VideoInfo
		haveSize      bool
		streamDur     float64
		haveStreamDur bool
		containerDur  float64
	)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(strings.TrimRight(line, ","), ",")

		if !haveSize && len(fields) >= 2 {
			w, errW := strconv.Atoi(strings.TrimSpace(fields[0]))
			h, errH := strconv.Atoi(strings.TrimSpace(fields[1]))
			if errW == nil && errH == nil {
				info.Width, info.Height = w, h
				haveSize = true
				if len(fields) >= 3 {
					if d, ok := parseDuration(fields[2]); ok {
						streamDur, haveStreamDur = d, true
					}
				}
				continue
			}
		}

		if len(fields) == 1 && !haveStreamDur {
			if d, ok := parseDuration(fields[0]); ok {
				containerDur = d
			}
		}
	}

	info.Duration = containerDur
	if haveStreamDur {
		info.Duration = streamDur
	}

	if !haveSize || info.Width <= 0 || info.Height <= 0 || info.Duration <= 0 {
		return nil, false
	}
	return &info, true
}

func parseDuration(s string) (float64, bool) {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// Package speech wraps the hosted speech-to-text vendor and local media
// probing used by the transcription pipeline.
package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// DurationProber measures the playable duration of an audio blob.
type DurationProber interface {
	// Duration returns the audio duration in seconds. audio holds the raw
	// encoded bytes as downloaded from the blob store.
	Duration(ctx context.Context, audio []byte) (float64, error)
}

// probeResult is the subset of ffprobe's JSON output we consume.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
}

type probeFormat struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// FFprobeProber shells out to ffprobe to measure audio duration.
type FFprobeProber struct {
	binary string
}

// NewFFprobeProber returns a prober using the given ffprobe binary. An empty
// binary falls back to "ffprobe" on PATH.
func NewFFprobeProber(binary string) *FFprobeProber {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobeProber{binary: binary}
}

// Duration writes the audio to a temp file and inspects it with ffprobe.
// ffprobe needs a seekable input to locate container duration, so stdin
// piping is not an option for webm/ogg blobs.
func (p *FFprobeProber) Duration(ctx context.Context, audio []byte) (float64, error) {
	if len(audio) == 0 {
		return 0, errors.New("probe duration: empty audio")
	}

	tmp, err := os.CreateTemp("", "mindwell-audio-*")
	if err != nil {
		return 0, fmt.Errorf("probe duration: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("probe duration: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("probe duration: closing temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.binary, "-v", "error", "-hide_banner",
		"-show_format", "-show_streams", "-of", "json", "--", tmp.Name())
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("probe duration: parsing ffprobe output: %w", err)
	}

	if d := parseSeconds(result.Format.Duration); d > 0 {
		return d, nil
	}
	// Some containers only report duration on the stream.
	for _, stream := range result.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			if d := parseSeconds(stream.Duration); d > 0 {
				return d, nil
			}
		}
	}

	return 0, errors.New("probe duration: no duration reported")
}

func parseSeconds(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	d, err := strconv.ParseFloat(value, 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

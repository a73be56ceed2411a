package acoustid

import (
	"context"
	"fmt"
	"math"

	"gopkg.in/vansante/go-ffprobe.v2"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const probeName = "ffprobe"

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// Prober reads container durations with ffprobe so audio files can be
// looked up without the caller knowing their length.
type Prober struct {
	probe probeFunc
}

// NewProber creates a Prober backed by the ffprobe binary on PATH.
func NewProber() *Prober {
	return &Prober{probe: ffprobe.ProbeURL}
}

// ProbeDuration returns the duration of the file at path in whole seconds,
// rounded to nearest.
func (p *Prober) ProbeDuration(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, &provider.ProviderError{
			Provider: probeName,
			Code:     "MISSING_PATH",
			Message:  "ffprobe requires a non-empty file path",
		}
	}

	data, err := p.probe(ctx, path)
	if err != nil {
		return 0, &provider.ProviderError{
			Provider: probeName,
			Code:     "PROBE_FAILED",
			Message:  fmt.Sprintf("ffprobe failed for %s: %v", path, err),
		}
	}
	if data == nil || data.Format == nil || data.Format.DurationSeconds <= 0 {
		return 0, &provider.ProviderError{
			Provider: probeName,
			Code:     provider.CodeInvalidResponse,
			Message:  fmt.Sprintf("no duration reported for %s", path),
		}
	}
	return int(math.Round(data.Format.DurationSeconds)), nil
}

// ProbeDuration probes path with a default Prober.
func ProbeDuration(ctx context.Context, path string) (int, error) {
	return NewProber().ProbeDuration(ctx, path)
}

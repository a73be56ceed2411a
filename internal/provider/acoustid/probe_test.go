package acoustid

import (
	"context"
	"errors"
	"testing"

	ffprobeLib "gopkg.in/vansante/go-ffprobe.v2"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

func TestProbeDuration(t *testing.T) {
	p := &Prober{probe: func(ctx context.Context, path string, extraOpts ...string) (*ffprobeLib.ProbeData, error) {
		if path != "/music/song.flac" {
			t.Errorf("probe path = %q", path)
		}
		return &ffprobeLib.ProbeData{Format: &ffprobeLib.Format{DurationSeconds: 241.6}}, nil
	}}

	got, err := p.ProbeDuration(context.Background(), "/music/song.flac")
	if err != nil {
		t.Fatalf("ProbeDuration() unexpected error: %v", err)
	}
	if got != 242 {
		t.Errorf("ProbeDuration() = %d, want 242", got)
	}
}

func TestProbeDurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		probe probeFunc
		code  string
	}{
		{
			name: "missing path",
			code: "MISSING_PATH",
		},
		{
			name: "probe failure",
			path: "/x.mp3",
			probe: func(context.Context, string, ...string) (*ffprobeLib.ProbeData, error) {
				return nil, errors.New("exit status 1")
			},
			code: "PROBE_FAILED",
		},
		{
			name: "no format",
			path: "/x.mp3",
			probe: func(context.Context, string, ...string) (*ffprobeLib.ProbeData, error) {
				return &ffprobeLib.ProbeData{}, nil
			},
			code: provider.CodeInvalidResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Prober{probe: tt.probe}
			_, err := p.ProbeDuration(context.Background(), tt.path)

			var provErr *provider.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("ProbeDuration() error = %v, want ProviderError", err)
			}
			if provErr.Code != tt.code {
				t.Errorf("ProviderError.Code = %v, want %v", provErr.Code, tt.code)
			}
		})
	}
}

package anim

import (
	"errors"
	"math"
	"testing"
)

func TestClipTime(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  float32
		tps      float32
		duration float32
		want     float32
	}{
		{"within clip", 0.2, 25, 20, 5},
		{"wraps past duration", 1.0, 25, 20, 5},
		{"wraps several times", 2.0, 25, 20, 10},
		{"exact multiple wraps to zero", 0.8, 25, 20, 0},
		{"zero rate uses default", 1.0, 0, 20, 5},
		{"custom rate", 0.5, 1000, 300, 200},
		{"negative elapsed wraps forward", -0.2, 25, 20, 15},
		{"zero elapsed", 0, 30, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClipTime(tt.elapsed, tt.tps, tt.duration)
			if err != nil {
				t.Fatalf("ClipTime returned error: %v", err)
			}
			if math.Abs(float64(got-tt.want)) > 1e-4 {
				t.Errorf("ClipTime(%v, %v, %v) = %v, want %v", tt.elapsed, tt.tps, tt.duration, got, tt.want)
			}
			if got < 0 || got >= tt.duration {
				t.Errorf("ClipTime result %v outside [0, %v)", got, tt.duration)
			}
		})
	}
}

func TestClipTime_Degenerate(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name     string
		elapsed  float32
		tps      float32
		duration float32
	}{
		{"zero duration", 1, 25, 0},
		{"negative duration", 1, 25, -5},
		{"nan duration", 1, 25, nan},
		{"infinite duration", 1, 25, inf},
		{"nan rate", 1, nan, 10},
		{"infinite elapsed", inf, 25, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ClipTime(tt.elapsed, tt.tps, tt.duration)
			if !errors.Is(err, ErrDegenerateClip) {
				t.Errorf("expected ErrDegenerateClip, got %v", err)
			}
		})
	}
}

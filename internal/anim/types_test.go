package anim

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestClip_FindChannel(t *testing.T) {
	channels := []Channel{
		{NodeName: "hips"},
		{NodeName: "arm", Positions: []VectorKey{{Time: 0, Value: mgl32.Vec3{1, 0, 0}}}},
		{NodeName: "arm", Positions: []VectorKey{{Time: 0, Value: mgl32.Vec3{2, 0, 0}}}},
	}

	indexed := NewClip("indexed", 10, 25, channels)
	literal := &Clip{Name: "literal", Duration: 10, Channels: channels}

	for _, clip := range []*Clip{indexed, literal} {
		t.Run(clip.Name, func(t *testing.T) {
			ch := clip.FindChannel("arm")
			if ch == nil {
				t.Fatal("FindChannel(arm) = nil")
			}
			if ch.Positions[0].Value[0] != 1 {
				t.Errorf("FindChannel returned %v, want first matching channel", ch.Positions[0].Value)
			}
			if clip.FindChannel("leg") != nil {
				t.Error("FindChannel(leg) should be nil")
			}
		})
	}

	var nilClip *Clip
	if nilClip.FindChannel("arm") != nil {
		t.Error("nil clip FindChannel should be nil")
	}
}

func TestClip_Rate(t *testing.T) {
	if got := (&Clip{}).Rate(); got != DefaultTicksPerSecond {
		t.Errorf("Rate() = %v, want default %v", got, DefaultTicksPerSecond)
	}
	c := &Clip{Duration: 50, TicksPerSecond: 10}
	if c.Rate() != 10 || c.Seconds() != 5 {
		t.Errorf("Rate()/Seconds() = %v/%v, want 10/5", c.Rate(), c.Seconds())
	}
}

func TestClip_Validate(t *testing.T) {
	one := []VectorKey{{Time: 0, Value: mgl32.Vec3{1, 1, 1}}}
	rot := []QuatKey{{Time: 0, Value: mgl32.QuatIdent()}}

	tests := []struct {
		name    string
		clip    *Clip
		wantErr error
	}{
		{
			name:    "valid",
			clip:    NewClip("ok", 10, 25, []Channel{{NodeName: "a", Positions: one, Rotations: rot, Scales: one}}),
			wantErr: nil,
		},
		{
			name:    "zero duration",
			clip:    NewClip("zero", 0, 25, nil),
			wantErr: ErrDegenerateClip,
		},
		{
			name:    "missing scale keys",
			clip:    NewClip("empty", 10, 25, []Channel{{NodeName: "a", Positions: one, Rotations: rot}}),
			wantErr: ErrEmptyKeyframes,
		},
		{
			name: "repeated time",
			clip: NewClip("dup", 10, 25, []Channel{{
				NodeName:  "a",
				Positions: []VectorKey{{Time: 1}, {Time: 1}},
				Rotations: rot,
				Scales:    one,
			}}),
			wantErr: ErrZeroLengthKeyframeInterval,
		},
		{
			name: "decreasing time",
			clip: NewClip("back", 10, 25, []Channel{{
				NodeName:  "a",
				Positions: one,
				Rotations: []QuatKey{{Time: 5}, {Time: 2}},
				Scales:    one,
			}}),
			wantErr: ErrUnsortedKeyframes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.clip.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNode_WalkFindCount(t *testing.T) {
	root, _ := makeArm()

	if root.Count() != 4 {
		t.Errorf("Count() = %d, want 4", root.Count())
	}
	if n := root.Find("elbow"); n == nil || n.Name != "elbow" {
		t.Errorf("Find(elbow) = %v", n)
	}
	if root.Find("tail") != nil {
		t.Error("Find(tail) should be nil")
	}

	var order []string
	var depths []int
	root.Walk(func(n *Node, depth int) bool {
		order = append(order, n.Name)
		depths = append(depths, depth)
		return true
	})
	want := []string{"root", "shoulder", "elbow", "hand"}
	for i := range want {
		if order[i] != want[i] || depths[i] != i {
			t.Errorf("walk[%d] = %s@%d, want %s@%d", i, order[i], depths[i], want[i], i)
		}
	}
}

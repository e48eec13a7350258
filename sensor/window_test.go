package sensor

import (
	"sync"
	"testing"
	"time"
)

func validSample() Sample {
	return Sample{
		Acceleration:    [3]float64{0.1, 0.2, 0.3},
		Gravity:         [3]float64{-9.8, 0.4, 0.5},
		AngularVelocity: [3]float64{1, 2, 3},
		Orientation:     [4]float64{0.6, 0.7, 0.8, 0.9},
	}
}

func TestSampleValidRequiresEveryComponent(t *testing.T) {
	t.Parallel()

	if (Sample{}).Valid() {
		t.Fatalf("zero sample must be invalid")
	}
	if !validSample().Valid() {
		t.Fatalf("expected fully populated sample to be valid")
	}

	for i := 0; i < 13; i++ {
		s := validSample()
		switch {
		case i < 3:
			s.Acceleration[i] = 0
		case i < 6:
			s.Gravity[i-3] = 0
		case i < 9:
			s.AngularVelocity[i-6] = 0
		default:
			s.Orientation[i-9] = 0
		}
		if s.Valid() {
			t.Fatalf("component %d zeroed but sample reported valid", i)
		}
	}
}

func TestSampleFrameDropsOrientationW(t *testing.T) {
	t.Parallel()

	f := validSample().Frame()
	want := Frame{0.1, 0.2, 0.3, -9.8, 0.4, 0.5, 1, 2, 3, 0.6, 0.7, 0.8}
	if f != want {
		t.Fatalf("unexpected frame: %v", f)
	}
}

func TestAggregatorLastWriteWins(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.SetAcceleration([3]float64{1, 1, 1})
	a.SetAcceleration([3]float64{2, 2, 2})
	a.SetOrientation([4]float64{1, 2, 3, 4})

	s := a.Snapshot()
	if s.Acceleration != [3]float64{2, 2, 2} {
		t.Fatalf("expected latest acceleration, got %v", s.Acceleration)
	}
	if s.Orientation != [4]float64{1, 2, 3, 4} {
		t.Fatalf("unexpected orientation: %v", s.Orientation)
	}
	if s.Valid() {
		t.Fatalf("gravity and angular velocity never reported; sample must be invalid")
	}
}

func TestAggregatorReset(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	v := validSample()
	a.SetAcceleration(v.Acceleration)
	a.SetGravity(v.Gravity)
	a.SetAngularVelocity(v.AngularVelocity)
	a.SetOrientation(v.Orientation)
	if !a.Snapshot().Valid() {
		t.Fatalf("fully reported sample must be valid")
	}
	a.Reset()
	if a.Snapshot() != (Sample{}) {
		t.Fatalf("reset must zero every channel, got %+v", a.Snapshot())
	}
}

func TestAggregatorConcurrentSetters(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(4)
		v := float64(i)
		go func() { defer wg.Done(); a.SetAcceleration([3]float64{v, v, v}) }()
		go func() { defer wg.Done(); a.SetGravity([3]float64{v, v, v}) }()
		go func() { defer wg.Done(); a.SetAngularVelocity([3]float64{v, v, v}) }()
		go func() { defer wg.Done(); a.SetOrientation([4]float64{v, v, v, v}) }()
	}
	wg.Wait()

	if !a.Snapshot().Valid() {
		t.Fatalf("expected valid sample after all channels reported")
	}
}

func TestBufferSkipsInvalidSamples(t *testing.T) {
	t.Parallel()

	b := NewBuffer(3, time.Second)
	now := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		if _, ok := b.Tick(now, Sample{}); ok {
			t.Fatalf("invalid sample produced a window")
		}
		now = now.Add(20 * time.Millisecond)
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer, got %d", b.Len())
	}
}

func TestBufferDispatchesFullWindowAndResets(t *testing.T) {
	t.Parallel()

	b := NewBuffer(DefaultSequenceLength, DefaultCooldown)
	start := time.Unix(100, 0)
	now := start
	s := validSample()

	for i := 0; i < DefaultSequenceLength-1; i++ {
		if _, ok := b.Tick(now, s); ok {
			t.Fatalf("window dispatched early at frame %d", i+1)
		}
		now = now.Add(20 * time.Millisecond)
	}
	if b.Len() != 119 {
		t.Fatalf("expected 119 buffered frames, got %d", b.Len())
	}

	w, ok := b.Tick(now, s)
	if !ok {
		t.Fatalf("expected window on frame 120")
	}
	if len(w.Frames) != DefaultSequenceLength {
		t.Fatalf("expected %d frames, got %d", DefaultSequenceLength, len(w.Frames))
	}
	if b.Len() != 0 {
		t.Fatalf("buffer must be empty after dispatch, got %d", b.Len())
	}
	if w.Seq != 1 {
		t.Fatalf("expected first window seq 1, got %d", w.Seq)
	}
	if !w.Start.Equal(start) || !w.End.Equal(now) {
		t.Fatalf("unexpected window bounds: %s .. %s", w.Start, w.End)
	}
	if w.Elapsed() != 119*20*time.Millisecond {
		t.Fatalf("unexpected elapsed: %s", w.Elapsed())
	}
	if !b.Paused(now) {
		t.Fatalf("expected cooldown after dispatch")
	}
}

func TestBufferCooldownBlocksFrames(t *testing.T) {
	t.Parallel()

	b := NewBuffer(2, time.Second)
	now := time.Unix(0, 0)
	s := validSample()

	b.Tick(now, s)
	if _, ok := b.Tick(now, s); !ok {
		t.Fatalf("expected dispatch")
	}

	for _, d := range []time.Duration{time.Millisecond, 500 * time.Millisecond, 999 * time.Millisecond} {
		b.Tick(now.Add(d), s)
		if b.Len() != 0 {
			t.Fatalf("frame accepted %s into cooldown", d)
		}
	}

	b.Tick(now.Add(time.Second), s)
	if b.Len() != 1 {
		t.Fatalf("expected frame after cooldown, got %d", b.Len())
	}
}

func TestBufferWindowsNeverShareFrames(t *testing.T) {
	t.Parallel()

	b := NewBuffer(2, 0)
	now := time.Unix(0, 0)
	var windows []Window
	for i := 1; i <= 6; i++ {
		s := validSample()
		s.Acceleration[0] = float64(i)
		if w, ok := b.Tick(now, s); ok {
			windows = append(windows, w)
		}
		now = now.Add(20 * time.Millisecond)
	}
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	seen := map[float64]bool{}
	for i, w := range windows {
		if w.Seq != uint64(i+1) {
			t.Fatalf("unexpected seq %d at %d", w.Seq, i)
		}
		for _, f := range w.Frames {
			if seen[f[0]] {
				t.Fatalf("frame %v appeared in two windows", f[0])
			}
			seen[f[0]] = true
		}
	}
}

func TestWindowFeaturesFrameMajorNineChannels(t *testing.T) {
	t.Parallel()

	w := Window{Frames: []Frame{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		{13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24},
	}}
	got := w.Features()
	want := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 13, 14, 15, 16, 17, 18, 19, 20, 21}
	if len(got) != len(want) {
		t.Fatalf("expected %d features, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("feature %d: got %v want %v", i, got[i], want[i])
		}
	}
}

package sensor

import "time"

const (
	// FrameSize is the number of values buffered per tick.
	FrameSize = 12
	// FeaturesPerFrame is the number of values per frame sent for inference
	// (acceleration, gravity and angular velocity).
	FeaturesPerFrame = 9

	DefaultSequenceLength = 120
	DefaultCooldown       = 1000 * time.Millisecond
)

// Frame is one derived vector captured at a single tick.
type Frame [FrameSize]float64

// Window is a fixed-length run of frames submitted as one inference unit.
type Window struct {
	Seq    uint64    `json:"seq"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Frames []Frame   `json:"frames"`
}

// Elapsed is the wall time between the first and last frame.
func (w Window) Elapsed() time.Duration { return w.End.Sub(w.Start) }

// Features flattens the window in frame-major order, dropping orientation.
func (w Window) Features() []float64 {
	out := make([]float64, 0, len(w.Frames)*FeaturesPerFrame)
	for _, f := range w.Frames {
		out = append(out, f[:FeaturesPerFrame]...)
	}
	return out
}

// Buffer accumulates valid frames into windows and pauses after each dispatch.
// It is not safe for concurrent use; the pipeline loop owns it.
type Buffer struct {
	length   int
	cooldown time.Duration

	frames      []Frame
	start       time.Time
	pausedUntil time.Time
	seq         uint64
}

func NewBuffer(sequenceLength int, cooldown time.Duration) *Buffer {
	if sequenceLength <= 0 {
		sequenceLength = DefaultSequenceLength
	}
	if cooldown < 0 {
		cooldown = 0
	}
	return &Buffer{
		length:   sequenceLength,
		cooldown: cooldown,
		frames:   make([]Frame, 0, sequenceLength),
	}
}

// Tick records one frame if the buffer is not cooling down and the sample is
// valid. When the buffer fills, it returns the completed window, empties
// itself and starts the cooldown.
func (b *Buffer) Tick(now time.Time, s Sample) (Window, bool) {
	if b.Paused(now) || !s.Valid() {
		return Window{}, false
	}
	if len(b.frames) == 0 {
		b.start = now
	}
	b.frames = append(b.frames, s.Frame())
	if len(b.frames) < b.length {
		return Window{}, false
	}

	b.seq++
	w := Window{
		Seq:    b.seq,
		Start:  b.start,
		End:    now,
		Frames: append([]Frame(nil), b.frames[:b.length]...),
	}
	b.frames = b.frames[:0]
	b.pausedUntil = now.Add(b.cooldown)
	return w, true
}

// Paused reports whether the post-dispatch cooldown is still running.
func (b *Buffer) Paused(now time.Time) bool { return now.Before(b.pausedUntil) }

func (b *Buffer) Len() int { return len(b.frames) }

func (b *Buffer) SequenceLength() int { return b.length }

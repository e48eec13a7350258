package sensor

import "sync"

// Sample is the latest reading of every device channel.
type Sample struct {
	Acceleration    [3]float64 `json:"acceleration"`
	Gravity         [3]float64 `json:"gravity"`
	AngularVelocity [3]float64 `json:"angular_velocity"`
	Orientation     [4]float64 `json:"orientation"` // quaternion x, y, z, w
}

// Valid reports whether every one of the 13 scalar components is non-zero,
// i.e. the device has reported on every channel since startup.
func (s Sample) Valid() bool {
	for _, v := range s.Acceleration {
		if v == 0 {
			return false
		}
	}
	for _, v := range s.Gravity {
		if v == 0 {
			return false
		}
	}
	for _, v := range s.AngularVelocity {
		if v == 0 {
			return false
		}
	}
	for _, v := range s.Orientation {
		if v == 0 {
			return false
		}
	}
	return true
}

// Frame derives the buffered frame: all motion channels plus the first three
// orientation components.
func (s Sample) Frame() Frame {
	var f Frame
	copy(f[0:3], s.Acceleration[:])
	copy(f[3:6], s.Gravity[:])
	copy(f[6:9], s.AngularVelocity[:])
	copy(f[9:12], s.Orientation[:3])
	return f
}

// Aggregator holds the most recent value per channel. Setters overwrite
// unconditionally and may be called from any goroutine.
type Aggregator struct {
	mu     sync.Mutex
	latest Sample
}

func NewAggregator() *Aggregator { return &Aggregator{} }

func (a *Aggregator) SetAcceleration(v [3]float64) {
	a.mu.Lock()
	a.latest.Acceleration = v
	a.mu.Unlock()
}

func (a *Aggregator) SetGravity(v [3]float64) {
	a.mu.Lock()
	a.latest.Gravity = v
	a.mu.Unlock()
}

func (a *Aggregator) SetAngularVelocity(v [3]float64) {
	a.mu.Lock()
	a.latest.AngularVelocity = v
	a.mu.Unlock()
}

func (a *Aggregator) SetOrientation(v [4]float64) {
	a.mu.Lock()
	a.latest.Orientation = v
	a.mu.Unlock()
}

// Snapshot returns a copy of the latest sample.
func (a *Aggregator) Snapshot() Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// Reset zeroes every channel, so samples read afterwards are invalid until
// the device reports again.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.latest = Sample{}
	a.mu.Unlock()
}

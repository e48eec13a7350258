// Package device decodes motion events from the wearable and feeds them into
// a sensor sink, live over WebSocket or replayed from a recording.
package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEvent is returned for event types that carry no sensor reading.
var ErrUnknownEvent = errors.New("unknown device event")

type Kind string

const (
	KindAcceleration    Kind = "acceleration"
	KindGravity         Kind = "gravity"
	KindAngularVelocity Kind = "angular_velocity"
	KindOrientation     Kind = "orientation"
)

// TouchSDK event names map onto the canonical kinds.
var aliases = map[string]Kind{
	"acceleration":           KindAcceleration,
	"accelerationchanged":    KindAcceleration,
	"gravity":                KindGravity,
	"gravityvectorchanged":   KindGravity,
	"angular_velocity":       KindAngularVelocity,
	"angularvelocity":        KindAngularVelocity,
	"angularvelocitychanged": KindAngularVelocity,
	"orientation":            KindOrientation,
	"orientationchanged":     KindOrientation,
}

// Event is one sensor reading. T is the offset in milliseconds from the
// start of a recording and is ignored for live events.
type Event struct {
	T    float64 `json:"t,omitempty"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	W    float64 `json:"w,omitempty"`
}

// Sink receives sensor readings; *sensor.Aggregator implements it.
type Sink interface {
	SetAcceleration(v [3]float64)
	SetGravity(v [3]float64)
	SetAngularVelocity(v [3]float64)
	SetOrientation(v [4]float64)
}

func Parse(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("device event: %w", err)
	}
	return e, nil
}

func (e Event) Kind() (Kind, error) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(e.Type))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	return k, nil
}

// Apply writes the reading carried by e into s.
func Apply(s Sink, e Event) error {
	k, err := e.Kind()
	if err != nil {
		return err
	}
	v := [3]float64{e.X, e.Y, e.Z}
	switch k {
	case KindAcceleration:
		s.SetAcceleration(v)
	case KindGravity:
		s.SetGravity(v)
	case KindAngularVelocity:
		s.SetAngularVelocity(v)
	case KindOrientation:
		s.SetOrientation([4]float64{e.X, e.Y, e.Z, e.W})
	}
	return nil
}

package orchestrator

import (
	"context"
	"time"

	"github.com/hackfest-dev/Hackfest25-45/clients"
	"github.com/hackfest-dev/Hackfest25-45/history"
	"github.com/hackfest-dev/Hackfest25-45/sensor"
	"github.com/hackfest-dev/Hackfest25-45/speech"
)

// Classifier labels one flattened window.
type Classifier interface {
	Predict(ctx context.Context, features []float64) (string, error)
}

// Enhancer rewrites a finalized sentence for a tone.
type Enhancer interface {
	Enhance(ctx context.Context, text, tone string) (clients.Enhancement, error)
}

// Speaker voices text, at most one utterance at a time.
type Speaker interface {
	Speak(text string, tone speech.Tone) bool
	Speaking() bool
}

const (
	StatusWaiting         = "Waiting for gesture..."
	StatusPredictionError = "Error getting prediction"
)

// Status is the read-only view published after every loop step.
type Status struct {
	Prediction     string      `json:"prediction"`
	WindowSeconds  float64     `json:"window_seconds"`
	Sentence       string      `json:"sentence"`
	Phase          string      `json:"phase"`
	Speaking       bool        `json:"speaking"`
	Tone           speech.Tone `json:"tone"`
	BufferedFrames int         `json:"buffered_frames"`
	Paused         bool        `json:"paused"`
	Counters       Counters    `json:"counters"`
}

type Counters struct {
	Windows     uint64 `json:"windows"`
	Predictions uint64 `json:"predictions"`
	Failures    uint64 `json:"prediction_failures"`
	Stale       uint64 `json:"stale_predictions"`
	Finalized   uint64 `json:"finalized"`
	Enhanced    uint64 `json:"enhanced"`
	Unenhanced  uint64 `json:"unenhanced"`
}

// Capture is one dispatched window with the label it received.
type Capture struct {
	Seq    uint64         `json:"seq"`
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	Label  string         `json:"label,omitempty"`
	Error  string         `json:"error,omitempty"`
	Frames []sensor.Frame `json:"frames"`
}

// Loop events posted by workers, timers and callers.
type predictionResult struct {
	window sensor.Window
	label  string
	err    error
}

type enhancementResult struct {
	gen  uint64
	text string
	tone speech.Tone
	enh  clients.Enhancement
	err  error
}

type inactivityExpired struct {
	gen uint64
}

type toneChange struct {
	tone speech.Tone
}

type snapshot struct {
	status  Status
	history []history.Entry
}

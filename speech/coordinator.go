// Package speech voices text through a remote provider with a local
// fallback, one utterance at a time.
package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrLocalUnavailable is returned by local synthesizers that cannot run on
// this host.
var ErrLocalUnavailable = errors.New("local speech synthesis unavailable")

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice VoiceSettings) ([]byte, error)
}

// Player plays encoded audio and returns when playback ends.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// LocalSynth speaks text directly on this machine.
type LocalSynth interface {
	Available() bool
	Speak(ctx context.Context, text string, p Prosody) error
}

// Stage names the synthesis path that finished an utterance.
type Stage string

const (
	StagePrimary  Stage = "primary"
	StageFallback Stage = "fallback"
	StageSkipped  Stage = "skipped"
)

// Result describes one finished utterance.
type Result struct {
	Text  string
	Tone  Tone
	Stage Stage
	Err   error
}

// Config bounds the stages of one utterance.
type Config struct {
	SynthesisTimeout time.Duration
	PlaybackTimeout  time.Duration
}

// Coordinator enforces at most one utterance in flight. Requests made while
// speaking are dropped, not queued.
type Coordinator struct {
	synth  Synthesizer
	player Player
	local  LocalSynth
	cfg    Config
	log    logrus.FieldLogger

	// OnDone, when set, is called after every utterance from the speaking
	// goroutine.
	OnDone func(Result)

	mu       sync.Mutex
	speaking bool
	done     chan struct{}
}

func NewCoordinator(synth Synthesizer, player Player, local LocalSynth, cfg Config, log logrus.FieldLogger) *Coordinator {
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 15 * time.Second
	}
	if cfg.PlaybackTimeout <= 0 {
		cfg.PlaybackTimeout = 60 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{synth: synth, player: player, local: local, cfg: cfg, log: log}
}

// Speak starts voicing text and reports whether it was admitted.
func (c *Coordinator) Speak(text string, tone Tone) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.speaking {
		c.mu.Unlock()
		c.log.WithField("text", text).Debug("speech busy, utterance dropped")
		return false
	}
	c.speaking = true
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	go func() {
		res := c.utter(text, tone)
		c.mu.Lock()
		c.speaking = false
		c.done = nil
		c.mu.Unlock()
		close(done)
		if c.OnDone != nil {
			c.OnDone(res)
		}
	}()
	return true
}

// Speaking reports whether an utterance is in flight.
func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Wait blocks until the current utterance, if any, has finished.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) utter(text string, tone Tone) Result {
	res := Result{Text: text, Tone: tone}
	entry := c.log.WithField("tone", tone)

	primaryErr := c.primary(text, tone)
	if primaryErr == nil {
		res.Stage = StagePrimary
		return res
	}
	entry.WithError(primaryErr).Warn("primary speech failed, using local synthesis")

	if c.local == nil || !c.local.Available() {
		res.Stage = StageSkipped
		res.Err = primaryErr
		return res
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PlaybackTimeout)
	defer cancel()
	if err := c.local.Speak(ctx, text, tone.Prosody()); err != nil {
		entry.WithError(err).Warn("local speech failed")
		res.Stage = StageSkipped
		res.Err = errors.Join(primaryErr, err)
		return res
	}
	res.Stage = StageFallback
	return res
}

func (c *Coordinator) primary(text string, tone Tone) error {
	if c.synth == nil || c.player == nil {
		return errors.New("no speech provider configured")
	}

	synthCtx, cancel := context.WithTimeout(context.Background(), c.cfg.SynthesisTimeout)
	audio, err := c.synth.Synthesize(synthCtx, text, tone.Voice())
	cancel()
	if err != nil {
		return err
	}

	playCtx, cancel := context.WithTimeout(context.Background(), c.cfg.PlaybackTimeout)
	defer cancel()
	return c.player.Play(playCtx, audio)
}

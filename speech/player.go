package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// SpeakerPlayer decodes MP3 audio and plays it on the default output device.
// The speaker is initialised once at SampleRate; other rates are resampled.
type SpeakerPlayer struct {
	SampleRate beep.SampleRate

	once    sync.Once
	initErr error
}

func NewSpeakerPlayer() *SpeakerPlayer {
	return &SpeakerPlayer{SampleRate: beep.SampleRate(44100)}
}

func (p *SpeakerPlayer) init() error {
	p.once.Do(func() {
		p.initErr = speaker.Init(p.SampleRate, p.SampleRate.N(time.Second/10))
	})
	return p.initErr
}

func (p *SpeakerPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("play: empty audio")
	}
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
	if err != nil {
		return fmt.Errorf("play decode: %w", err)
	}
	defer streamer.Close()

	if err := p.init(); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != p.SampleRate {
		s = beep.Resample(4, format.SampleRate, p.SampleRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

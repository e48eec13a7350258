package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackfest-dev/Hackfest25-45/config"
	"github.com/hackfest-dev/Hackfest25-45/history"
	"github.com/hackfest-dev/Hackfest25-45/sensor"
	"github.com/hackfest-dev/Hackfest25-45/speech"
)

// maxCaptures bounds the recorded windows of one session.
const maxCaptures = 5000

type Options struct {
	SamplePeriod   time.Duration
	SequenceLength int
	Cooldown       time.Duration
	Inactivity     time.Duration
	HistorySize    int
	Tone           speech.Tone

	OutputsDir     string
	CaptureWindows bool
}

func OptionsFromConfig(c *config.Root) Options {
	return Options{
		SamplePeriod:   config.DurMillis(c.Sensor.SamplePeriodMs),
		SequenceLength: c.Sensor.SequenceLength,
		Cooldown:       config.DurMillis(c.Sensor.CooldownMs),
		Inactivity:     config.DurMillis(c.Sentence.InactivityTimeoutMs),
		HistorySize:    c.Sentence.HistorySize,
		Tone:           speech.ParseTone(c.Speech.Tone),
		OutputsDir:     c.Paths.Outputs,
		CaptureWindows: c.Paths.CaptureWindows,
	}
}

func (o Options) withDefaults() Options {
	if o.SamplePeriod <= 0 {
		o.SamplePeriod = 20 * time.Millisecond
	}
	if o.SequenceLength <= 0 {
		o.SequenceLength = sensor.DefaultSequenceLength
	}
	if o.Cooldown < 0 {
		o.Cooldown = sensor.DefaultCooldown
	}
	if o.Inactivity <= 0 {
		o.Inactivity = 3 * time.Second
	}
	if o.HistorySize <= 0 {
		o.HistorySize = history.DefaultCapacity
	}
	if o.Tone == "" {
		o.Tone = speech.ToneFriendly
	}
	return o
}

// post delivers ev to the loop unless the pipeline has stopped.
func (p *Pipeline) post(ev any) {
	select {
	case p.events <- ev:
	case <-p.quit:
	}
}

// dispatch classifies w on its own goroutine.
func (p *Pipeline) dispatch(ctx context.Context, w sensor.Window) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.deps.Classifier == nil {
			p.post(predictionResult{window: w, err: errors.New("no classifier configured")})
			return
		}
		label, err := p.deps.Classifier.Predict(ctx, w.Features())
		p.post(predictionResult{window: w, label: label, err: err})
	}()
}

// finalize enhances text on its own goroutine, tagged with a new
// finalization generation.
func (p *Pipeline) finalize(ctx context.Context, text string) {
	p.finGen++
	p.counters.Finalized++
	gen, tone := p.finGen, p.tone
	p.log.WithFields(logrus.Fields{"finalization": gen, "text": text}).Info("sentence finalized")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.deps.Enhancer == nil {
			p.post(enhancementResult{gen: gen, text: text, tone: tone, err: errors.New("no enhancer configured")})
			return
		}
		enh, err := p.deps.Enhancer.Enhance(ctx, text, string(tone))
		p.post(enhancementResult{gen: gen, text: text, tone: tone, enh: enh, err: err})
	}()
}

func (p *Pipeline) cancelTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.timerGen++
}

func (p *Pipeline) armTimer() {
	gen := p.timerGen
	p.timer = time.AfterFunc(p.opts.Inactivity, func() {
		p.post(inactivityExpired{gen: gen})
	})
}

func (p *Pipeline) capture(r predictionResult) {
	if !p.opts.CaptureWindows || len(p.captures) >= maxCaptures {
		return
	}
	c := Capture{Seq: r.window.Seq, Start: r.window.Start, End: r.window.End, Label: r.label, Frames: r.window.Frames}
	if r.err != nil {
		c.Error = r.err.Error()
	}
	p.captures = append(p.captures, c)
}

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackfest-dev/Hackfest25-45/history"
	"github.com/hackfest-dev/Hackfest25-45/sensor"
	"github.com/hackfest-dev/Hackfest25-45/sentence"
	"github.com/hackfest-dev/Hackfest25-45/speech"
)

type Deps struct {
	Classifier Classifier
	Enhancer   Enhancer
	// Speaker may be nil when speech output is disabled.
	Speaker Speaker
	Log     logrus.FieldLogger
}

// Pipeline owns every piece of mutable pipeline state. All of it is touched
// only from the goroutine running Run; workers and timers talk to it through
// the events channel.
type Pipeline struct {
	opts Options
	deps Deps
	log  logrus.FieldLogger
	agg  *sensor.Aggregator
	now  func() time.Time

	events chan any
	quit   chan struct{}
	wg     sync.WaitGroup

	// loop-owned
	buf         *sensor.Buffer
	state       sentence.State
	hist        *history.List
	tone        speech.Tone
	indicator   string
	windowSecs  float64
	lastApplied uint64
	timer       *time.Timer
	timerGen    uint64
	finGen      uint64
	counters    Counters
	captures    []Capture
	started     time.Time

	mu   sync.RWMutex
	snap snapshot
}

func NewPipeline(opts Options, deps Deps) *Pipeline {
	opts = opts.withDefaults()
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	p := &Pipeline{
		opts:      opts,
		deps:      deps,
		log:       deps.Log,
		agg:       sensor.NewAggregator(),
		now:       time.Now,
		events:    make(chan any, 64),
		quit:      make(chan struct{}),
		buf:       sensor.NewBuffer(opts.SequenceLength, opts.Cooldown),
		hist:      history.NewList(opts.HistorySize),
		tone:      opts.Tone,
		indicator: StatusWaiting,
	}
	p.publish()
	return p
}

// Sensors is the aggregator device adapters write into.
func (p *Pipeline) Sensors() *sensor.Aggregator { return p.agg }

// Run samples the sensors every SamplePeriod and processes loop events until
// ctx is cancelled. On shutdown it waits for in-flight requests and writes
// the session bundle when an outputs directory is configured.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.started = p.now()
	ticker := time.NewTicker(p.opts.SamplePeriod)
	defer ticker.Stop()

	p.log.WithFields(logrus.Fields{
		"sample_period": p.opts.SamplePeriod,
		"sequence":      p.opts.SequenceLength,
		"inactivity":    p.opts.Inactivity,
		"tone":          p.tone,
	}).Info("pipeline started")

	for {
		select {
		case <-ctx.Done():
			return p.shutdown(cancel)
		case now := <-ticker.C:
			p.tick(ctx, now)
		case ev := <-p.events:
			p.handle(ctx, ev)
		}
	}
}

func (p *Pipeline) shutdown(cancel context.CancelFunc) error {
	p.cancelTimer()
	cancel()
	close(p.quit)
	p.wg.Wait()

	p.log.WithFields(logrus.Fields{
		"windows":   p.counters.Windows,
		"finalized": p.counters.Finalized,
	}).Info("pipeline stopped")

	if p.opts.OutputsDir == "" {
		return nil
	}
	dir, err := p.persist()
	if err != nil {
		p.log.WithError(err).Error("persist session")
		return err
	}
	p.log.WithField("dir", dir).Info("session saved")
	return nil
}

// tick is one sampling step.
func (p *Pipeline) tick(ctx context.Context, now time.Time) {
	if w, ok := p.buf.Tick(now, p.agg.Snapshot()); ok {
		p.counters.Windows++
		p.dispatch(ctx, w)
	}
	p.publish()
}

func (p *Pipeline) handle(ctx context.Context, ev any) {
	switch e := ev.(type) {
	case predictionResult:
		p.onPrediction(ctx, e)
	case inactivityExpired:
		p.onExpiry(ctx, e)
	case enhancementResult:
		p.onEnhancement(e)
	case toneChange:
		p.tone = e.tone
		p.log.WithField("tone", e.tone).Info("tone changed")
	}
	p.publish()
}

func (p *Pipeline) onPrediction(ctx context.Context, r predictionResult) {
	p.capture(r)

	entry := p.log.WithField("window", r.window.Seq)
	if r.window.Seq <= p.lastApplied {
		p.counters.Stale++
		entry.WithField("last", p.lastApplied).Debug("stale prediction dropped")
		return
	}
	p.lastApplied = r.window.Seq

	if r.err != nil {
		p.counters.Failures++
		p.indicator = StatusPredictionError
		entry.WithError(r.err).Warn("prediction failed")
		return
	}

	p.counters.Predictions++
	p.indicator = r.label
	p.windowSecs = r.window.Elapsed().Seconds()
	entry.WithField("token", r.label).Debug("prediction")
	p.apply(ctx, sentence.Prediction(r.label))
}

func (p *Pipeline) onExpiry(ctx context.Context, e inactivityExpired) {
	if p.timer == nil || e.gen != p.timerGen {
		return
	}
	p.timer = nil
	speaking := p.speaking()
	if speaking && len(p.state.Tokens) > 0 {
		p.log.Debug("finalization skipped while speaking")
	}
	p.apply(ctx, sentence.InactivityExpired(speaking))
}

func (p *Pipeline) onEnhancement(r enhancementResult) {
	entry := p.log.WithFields(logrus.Fields{"finalization": r.gen, "tone": r.tone})

	var h history.Entry
	if r.err != nil {
		p.counters.Unenhanced++
		entry.WithError(r.err).Warn("enhancement failed, using original text")
		h = history.Unenhanced(r.text)
	} else {
		p.counters.Enhanced++
		if r.enh.Legacy {
			entry.Info("enhancement used legacy response schema")
		}
		h = history.Entry{Original: r.enh.Original, Corrected: r.enh.Corrected, Enhanced: r.enh.Enhanced}
	}

	if !p.hist.Add(h) {
		entry.Debug("duplicate history entry ignored")
	}
	p.say(h.Enhanced, r.tone)
}

// apply runs one transition and executes its effects.
func (p *Pipeline) apply(ctx context.Context, ev sentence.Event) {
	next, effects := sentence.Transition(p.state, ev)
	p.state = next
	for _, eff := range effects {
		switch eff.Kind {
		case sentence.EffectCancelTimer:
			p.cancelTimer()
		case sentence.EffectArmTimer:
			p.armTimer()
		case sentence.EffectSpeakToken:
			p.say(eff.Text, p.tone)
		case sentence.EffectFinalize:
			p.finalize(ctx, eff.Text)
		}
	}
}

func (p *Pipeline) say(text string, tone speech.Tone) {
	if p.deps.Speaker == nil {
		return
	}
	if !p.deps.Speaker.Speak(text, tone) {
		p.log.WithField("text", text).Debug("speech busy, not spoken")
	}
}

func (p *Pipeline) speaking() bool {
	return p.deps.Speaker != nil && p.deps.Speaker.Speaking()
}

func (p *Pipeline) publish() {
	now := p.now()
	st := Status{
		Prediction:     p.indicator,
		WindowSeconds:  p.windowSecs,
		Sentence:       p.state.Text(),
		Phase:          string(p.state.Phase()),
		Tone:           p.tone,
		BufferedFrames: p.buf.Len(),
		Paused:         p.buf.Paused(now),
		Counters:       p.counters,
	}
	h := p.hist.Entries()

	p.mu.Lock()
	p.snap = snapshot{status: st, history: h}
	p.mu.Unlock()
}

// Status returns the latest published status. Safe from any goroutine.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	st := p.snap.status
	p.mu.RUnlock()
	st.Speaking = p.speaking()
	return st
}

// History returns the latest published history, newest first.
func (p *Pipeline) History() []history.Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]history.Entry(nil), p.snap.history...)
}

// SetTone changes the tone used for subsequent speech and enhancement.
func (p *Pipeline) SetTone(t speech.Tone) {
	p.post(toneChange{tone: t})
}

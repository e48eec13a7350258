package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hackfest-dev/Hackfest25-45/clients"
	cfg "github.com/hackfest-dev/Hackfest25-45/config"
	"github.com/hackfest-dev/Hackfest25-45/device"
	"github.com/hackfest-dev/Hackfest25-45/orchestrator"
	"github.com/hackfest-dev/Hackfest25-45/server"
	"github.com/hackfest-dev/Hackfest25-45/speech"
)

// stack is everything one pipeline run needs.
type stack struct {
	pipeline *orchestrator.Pipeline
	enhancer orchestrator.Enhancer
	speech   *speech.Coordinator
}

func build(conf *cfg.Root, log *logrus.Logger) (*stack, error) {
	proxy := conf.Services.HTTP.Proxy
	httpFor := func(timeoutMs int) (*clients.HTTP, error) {
		return clients.NewHTTP(cfg.DurMillis(timeoutMs), proxy)
	}

	clsHTTP, err := httpFor(conf.Services.Classifier.TimeoutMs)
	if err != nil {
		return nil, err
	}
	classifier := clients.Classifier{HTTP: clsHTTP, URL: conf.Services.Classifier.URL}

	enhHTTP, err := httpFor(conf.Services.Enhancer.TimeoutMs)
	if err != nil {
		return nil, err
	}
	var enhancer orchestrator.Enhancer
	switch conf.Services.Enhancer.Backend {
	case cfg.BackendOpenAI:
		enhancer = clients.NewLLMEnhancer(clients.LLMConfig{
			APIKey:  conf.Services.Enhancer.APIKey,
			BaseURL: conf.Services.Enhancer.BaseURL,
			Model:   conf.Services.Enhancer.Model,
			HTTP:    enhHTTP,
		})
	default:
		enhancer = clients.Enhancer{
			HTTP:        enhHTTP,
			URL:         conf.Services.Enhancer.URL,
			AllowLegacy: conf.Services.Enhancer.LegacySchema,
		}
	}

	rt := &stack{enhancer: enhancer}
	var speaker orchestrator.Speaker
	if conf.Speech.Enabled {
		coord, err := buildSpeech(conf, httpFor, log)
		if err != nil {
			return nil, err
		}
		rt.speech = coord
		speaker = coord
	}

	rt.pipeline = orchestrator.NewPipeline(orchestrator.OptionsFromConfig(conf), orchestrator.Deps{
		Classifier: classifier,
		Enhancer:   enhancer,
		Speaker:    speaker,
		Log:        log.WithField("component", "pipeline"),
	})

	log.WithFields(logrus.Fields{
		"classifier": conf.Services.Classifier.URL,
		"enhancer":   conf.Services.Enhancer.Backend,
		"speech":     conf.Speech.Enabled,
	}).Info("pipeline configured")
	return rt, nil
}

func buildSpeech(conf *cfg.Root, httpFor func(int) (*clients.HTTP, error), log *logrus.Logger) (*speech.Coordinator, error) {
	var synth speech.Synthesizer
	var player speech.Player
	if conf.Services.TTS.APIKey != "" {
		ttsHTTP, err := httpFor(conf.Services.TTS.TimeoutMs)
		if err != nil {
			return nil, err
		}
		synth = clients.ElevenLabs{
			HTTP:    ttsHTTP,
			URL:     conf.Services.TTS.URL,
			APIKey:  conf.Services.TTS.APIKey,
			VoiceID: conf.Services.TTS.VoiceID,
			ModelID: conf.Services.TTS.ModelID,
		}
		player = speech.NewSpeakerPlayer()
	} else {
		log.Warn("no text-to-speech API key, using local speech only")
	}

	local := speech.NewEspeak(conf.Speech.LocalCommand)
	local.Voice = conf.Speech.LocalVoice
	if !local.Available() {
		log.WithField("command", local.Command).Warn("local speech synthesizer not found")
	}

	entry := log.WithField("component", "speech")
	coord := speech.NewCoordinator(synth, player, local, speech.Config{
		SynthesisTimeout: cfg.DurMillis(conf.Services.TTS.TimeoutMs),
		PlaybackTimeout:  cfg.DurMillis(conf.Speech.PlaybackTimeoutMs),
	}, entry)
	coord.OnDone = func(r speech.Result) {
		e := entry.WithFields(logrus.Fields{"stage": r.Stage, "text": r.Text})
		if r.Err != nil && r.Stage == speech.StageSkipped {
			e.WithError(r.Err).Warn("utterance not spoken")
			return
		}
		e.Debug("utterance done")
	}
	return coord, nil
}

// drainSpeech waits briefly for an utterance still playing at shutdown.
func (rt *stack) drainSpeech(d time.Duration) {
	if rt.speech == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	_ = rt.speech.Wait(ctx)
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the live pipeline with the HTTP and device WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := build(a.conf, a.log)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			srv := server.New(rt.pipeline, rt.enhancer, a.log.WithField("component", "http"))

			var wg sync.WaitGroup
			errs := make(chan error, 3)
			run := func(f func() error) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := f(); err != nil {
						errs <- err
						cancel()
					}
				}()
			}

			run(func() error { return rt.pipeline.Run(ctx) })
			run(func() error { return srv.Start(ctx, a.conf.Server.Address) })
			if url := a.conf.Device.DialURL; url != "" {
				run(func() error {
					return device.Dial(ctx, url, rt.pipeline.Sensors(), 2*time.Second, a.log.WithField("component", "device"))
				})
			}

			<-ctx.Done()
			wg.Wait()
			rt.drainSpeech(5 * time.Second)
			close(errs)
			return <-errs
		},
	}
}

func (a *app) replayCmd() *cobra.Command {
	var speed float64
	var linger time.Duration
	cmd := &cobra.Command{
		Use:   "replay <events.jsonl>",
		Short: "Feed a recorded device session through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rt, err := build(a.conf, a.log)
			if err != nil {
				return err
			}
			if linger <= 0 {
				linger = cfg.DurMillis(a.conf.Sentence.InactivityTimeoutMs) + 2*time.Second
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			runErr := make(chan error, 1)
			go func() { runErr <- rt.pipeline.Run(ctx) }()

			n, err := device.Replay(ctx, f, rt.pipeline.Sensors(), speed, a.log.WithField("component", "replay"))
			if err != nil && ctx.Err() == nil {
				cancel()
				<-runErr
				return fmt.Errorf("replay %s: %w", args[0], err)
			}
			// A recording has no live device behind it; stop sampling its last reading.
			rt.pipeline.Sensors().Reset()
			a.log.WithFields(logrus.Fields{"events": n, "linger": linger}).Info("replay finished, waiting for pending sentences")

			select {
			case <-ctx.Done():
			case <-time.After(linger):
			}
			cancel()
			err = <-runErr
			rt.drainSpeech(30 * time.Second)

			st := rt.pipeline.Status()
			a.log.WithFields(logrus.Fields{
				"windows":   st.Counters.Windows,
				"finalized": st.Counters.Finalized,
			}).Info("replay summary")
			for _, h := range rt.pipeline.History() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", h.Original, h.Enhanced)
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed multiplier (0 = as fast as possible)")
	cmd.Flags().DurationVar(&linger, "linger", 0, "time to keep the pipeline running after the last event (default inactivity timeout + 2s)")
	return cmd
}

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Service struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type Enhancer struct {
	URL          string `yaml:"url"`
	Backend      string `yaml:"backend"`
	LegacySchema bool   `yaml:"legacy_schema"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	TimeoutMs    int    `yaml:"timeout_ms"`
}

type TTS struct {
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	VoiceID   string `yaml:"voice_id"`
	ModelID   string `yaml:"model_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type HTTP struct {
	Proxy string `yaml:"proxy"`
}

type Services struct {
	Classifier Service  `yaml:"classifier"`
	Enhancer   Enhancer `yaml:"enhancer"`
	TTS        TTS      `yaml:"tts"`
	HTTP       HTTP     `yaml:"http"`
}

type Sensor struct {
	SamplePeriodMs int `yaml:"sample_period_ms"`
	SequenceLength int `yaml:"sequence_length"`
	CooldownMs     int `yaml:"cooldown_ms"`
}

type Sentence struct {
	InactivityTimeoutMs int `yaml:"inactivity_timeout_ms"`
	HistorySize         int `yaml:"history_size"`
}

type Speech struct {
	Enabled           bool   `yaml:"enabled"`
	Tone              string `yaml:"tone"`
	LocalCommand      string `yaml:"local_command"`
	LocalVoice        string `yaml:"local_voice"`
	PlaybackTimeoutMs int    `yaml:"playback_timeout_ms"`
}

type Root struct {
	Pipeline struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		LogLvl  string `yaml:"log_level"`
	} `yaml:"pipeline"`
	Sensor   Sensor   `yaml:"sensor"`
	Sentence Sentence `yaml:"sentence"`
	Services Services `yaml:"services"`
	Speech   Speech   `yaml:"speech"`
	Server   struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Device struct {
		DialURL string `yaml:"dial_url"`
	} `yaml:"device"`
	Paths struct {
		Outputs        string `yaml:"outputs"`
		CaptureWindows bool   `yaml:"capture_windows"`
	} `yaml:"paths"`
}

const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// Default returns the configuration the pipeline runs with when no file or
// override says otherwise.
func Default() *Root {
	var r Root
	r.Pipeline.Name = "handspeaks"
	r.Pipeline.Version = "1.0"
	r.Pipeline.LogLvl = "info"

	r.Sensor = Sensor{SamplePeriodMs: 20, SequenceLength: 120, CooldownMs: 1000}
	r.Sentence = Sentence{InactivityTimeoutMs: 3000, HistorySize: 5}

	r.Services.Classifier = Service{URL: "http://127.0.0.1:5000", TimeoutMs: 15000}
	r.Services.Enhancer = Enhancer{
		URL:          "http://127.0.0.1:5001",
		Backend:      BackendHTTP,
		LegacySchema: true,
		TimeoutMs:    15000,
	}
	r.Services.TTS = TTS{
		URL:       "https://api.elevenlabs.io/v1/text-to-speech",
		VoiceID:   "21m00Tcm4TlvDq8ikWAM",
		ModelID:   "eleven_monolingual_v1",
		TimeoutMs: 15000,
	}

	r.Speech = Speech{Enabled: true, Tone: "friendly", LocalCommand: "espeak-ng", PlaybackTimeoutMs: 60000}
	r.Server.Address = ":8080"
	return &r
}

// Load reads path, or the first config file found in the usual locations
// when path is empty, on top of Default. Only an explicit path must exist.
func Load(path string) (*Root, error) {
	cfg := Default()

	guess := []string{path}
	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		guess = []string{
			filepath.Join("config", env, "config.yaml"),
			"config.yaml",
		}
	}

	for _, p := range guess {
		f, err := os.Open(p)
		if err != nil {
			if path == "" && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		err = yaml.NewDecoder(f).Decode(cfg)
		f.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config %s: %w", p, err)
		}
		break
	}

	cfg.Validate()
	return cfg, nil
}

// Validate replaces out-of-range values with their defaults.
func (r *Root) Validate() {
	d := Default()
	fixInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fixStr := func(v *string, def string) {
		*v = strings.TrimSpace(*v)
		if *v == "" {
			*v = def
		}
	}

	fixStr(&r.Pipeline.LogLvl, d.Pipeline.LogLvl)
	fixInt(&r.Sensor.SamplePeriodMs, d.Sensor.SamplePeriodMs)
	fixInt(&r.Sensor.SequenceLength, d.Sensor.SequenceLength)
	if r.Sensor.CooldownMs < 0 {
		r.Sensor.CooldownMs = d.Sensor.CooldownMs
	}
	fixInt(&r.Sentence.InactivityTimeoutMs, d.Sentence.InactivityTimeoutMs)
	fixInt(&r.Sentence.HistorySize, d.Sentence.HistorySize)

	fixStr(&r.Services.Classifier.URL, d.Services.Classifier.URL)
	fixInt(&r.Services.Classifier.TimeoutMs, d.Services.Classifier.TimeoutMs)
	fixInt(&r.Services.Enhancer.TimeoutMs, d.Services.Enhancer.TimeoutMs)
	r.Services.Enhancer.Backend = strings.ToLower(strings.TrimSpace(r.Services.Enhancer.Backend))
	if r.Services.Enhancer.Backend != BackendOpenAI {
		r.Services.Enhancer.Backend = BackendHTTP
	}
	fixStr(&r.Services.TTS.URL, d.Services.TTS.URL)
	fixStr(&r.Services.TTS.VoiceID, d.Services.TTS.VoiceID)
	fixStr(&r.Services.TTS.ModelID, d.Services.TTS.ModelID)
	fixInt(&r.Services.TTS.TimeoutMs, d.Services.TTS.TimeoutMs)

	fixStr(&r.Speech.Tone, d.Speech.Tone)
	fixInt(&r.Speech.PlaybackTimeoutMs, d.Speech.PlaybackTimeoutMs)
	fixStr(&r.Server.Address, d.Server.Address)
}

// YAML renders the effective configuration with secrets masked.
func (r *Root) YAML() ([]byte, error) {
	c := *r
	c.Services.Enhancer.APIKey = mask(c.Services.Enhancer.APIKey)
	c.Services.TTS.APIKey = mask(c.Services.TTS.APIKey)
	return yaml.Marshal(&c)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func DurMillis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Sensor.SequenceLength != 120 || cfg.Sensor.CooldownMs != 1000 || cfg.Sensor.SamplePeriodMs != 20 {
		t.Fatalf("unexpected sensor defaults: %+v", cfg.Sensor)
	}
	if cfg.Sentence.InactivityTimeoutMs != 3000 || cfg.Sentence.HistorySize != 5 {
		t.Fatalf("unexpected sentence defaults: %+v", cfg.Sentence)
	}
	if !cfg.Services.Enhancer.LegacySchema || cfg.Services.Enhancer.Backend != BackendHTTP {
		t.Fatalf("unexpected enhancer defaults: %+v", cfg.Services.Enhancer)
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadUsesEnvDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")

	path := filepath.Join(dir, "config", "test", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	body := `
pipeline:
  log_level: debug
sentence:
  inactivity_timeout_ms: 1500
services:
  enhancer:
    backend: OpenAI
    legacy_schema: false
speech:
  tone: casual
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Pipeline.LogLvl != "debug" || cfg.Sentence.InactivityTimeoutMs != 1500 || cfg.Speech.Tone != "casual" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Services.Enhancer.Backend != BackendOpenAI || cfg.Services.Enhancer.LegacySchema {
		t.Fatalf("enhancer values not applied: %+v", cfg.Services.Enhancer)
	}
	if cfg.Sensor.SequenceLength != 120 {
		t.Fatalf("unset keys must keep defaults, got %d", cfg.Sensor.SequenceLength)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sensor: [unclosed"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := Default()
	cfg.Sensor.SequenceLength = 0
	cfg.Sentence.HistorySize = -3
	cfg.Services.Enhancer.Backend = "gemini"
	cfg.Speech.Tone = "  "
	cfg.Validate()

	if cfg.Sensor.SequenceLength != 120 || cfg.Sentence.HistorySize != 5 {
		t.Fatalf("ints not normalized: %+v %+v", cfg.Sensor, cfg.Sentence)
	}
	if cfg.Services.Enhancer.Backend != BackendHTTP || cfg.Speech.Tone != "friendly" {
		t.Fatalf("strings not normalized: %q %q", cfg.Services.Enhancer.Backend, cfg.Speech.Tone)
	}
}

func TestApplyOverridesFromEnv(t *testing.T) {
	t.Setenv("HANDSPEAKS_SERVICES_CLASSIFIER_URL", "http://gpu-box:5000")
	t.Setenv("HANDSPEAKS_SENTENCE_INACTIVITY_TIMEOUT_MS", "2500")
	t.Setenv("HANDSPEAKS_SPEECH_ENABLED", "false")
	t.Setenv("ELEVENLABS_API_KEY", "eleven-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg := Default()
	ApplyOverrides(cfg, NewViper(nil))

	if cfg.Services.Classifier.URL != "http://gpu-box:5000" {
		t.Fatalf("classifier url = %q", cfg.Services.Classifier.URL)
	}
	if cfg.Sentence.InactivityTimeoutMs != 2500 {
		t.Fatalf("timeout = %d", cfg.Sentence.InactivityTimeoutMs)
	}
	if cfg.Speech.Enabled {
		t.Fatalf("speech.enabled override ignored")
	}
	if cfg.Services.TTS.APIKey != "eleven-key" || cfg.Services.Enhancer.APIKey != "openai-key" {
		t.Fatalf("provider keys not picked up: %q %q", cfg.Services.TTS.APIKey, cfg.Services.Enhancer.APIKey)
	}
}

func TestApplyOverridesFromFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse([]string{"--tone", "professional", "--listen", ":9090", "--capture-windows"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	cfg := Default()
	ApplyOverrides(cfg, NewViper(fs))

	if cfg.Speech.Tone != "professional" || cfg.Server.Address != ":9090" || !cfg.Paths.CaptureWindows {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !cfg.Speech.Enabled {
		t.Fatalf("unset flag must not override speech.enabled")
	}
	if cfg.Services.Classifier.URL != Default().Services.Classifier.URL {
		t.Fatalf("unset flag must not override classifier url")
	}
}

func TestYAMLMasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Services.TTS.APIKey = "very-secret"
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("yaml failed: %v", err)
	}
	if strings.Contains(string(out), "very-secret") {
		t.Fatalf("secret leaked into dump:\n%s", out)
	}
	if cfg.Services.TTS.APIKey != "very-secret" {
		t.Fatalf("masking must not modify the receiver")
	}
}

func TestDurMillis(t *testing.T) {
	if DurMillis(1500) != 1500*time.Millisecond {
		t.Fatalf("DurMillis(1500) = %v", DurMillis(1500))
	}
}

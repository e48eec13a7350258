package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "HANDSPEAKS"

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":        "pipeline.log_level",
	"classifier-url":   "services.classifier.url",
	"enhancer-url":     "services.enhancer.url",
	"enhancer-backend": "services.enhancer.backend",
	"tone":             "speech.tone",
	"speech":           "speech.enabled",
	"listen":           "server.address",
	"device-url":       "device.dial_url",
	"outputs":          "paths.outputs",
	"capture-windows":  "paths.capture_windows",
	"proxy":            "services.http.proxy",
}

// BindFlags registers the overridable flags on fs. Defaults are zero values;
// only flags the user actually sets take effect.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("classifier-url", "", "gesture classifier base URL")
	fs.String("enhancer-url", "", "text enhancement service base URL")
	fs.String("enhancer-backend", "", "enhancement backend (http, openai)")
	fs.String("tone", "", "initial tone (friendly, professional, casual, persuasive)")
	fs.Bool("speech", true, "voice finalized sentences")
	fs.String("listen", "", "HTTP listen address")
	fs.String("device-url", "", "WebSocket URL of a remote device event source")
	fs.String("outputs", "", "directory for session bundles")
	fs.Bool("capture-windows", false, "record dispatched windows in the session bundle")
	fs.String("proxy", "", "SOCKS5 proxy for outbound requests (host:port)")
}

// NewViper returns a viper instance reading HANDSPEAKS_<SECTION>_<KEY>
// variables, the provider key variables, and any flags in fs.
func NewViper(fs *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("services.tts.api_key", EnvPrefix+"_SERVICES_TTS_API_KEY", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("services.enhancer.api_key", EnvPrefix+"_SERVICES_ENHANCER_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("services.enhancer.base_url", EnvPrefix+"_SERVICES_ENHANCER_BASE_URL", "OPENAI_BASE_URL")

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}
	return v
}

func (r *Root) stringKeys() map[string]*string {
	return map[string]*string{
		"pipeline.log_level":         &r.Pipeline.LogLvl,
		"services.classifier.url":    &r.Services.Classifier.URL,
		"services.enhancer.url":      &r.Services.Enhancer.URL,
		"services.enhancer.backend":  &r.Services.Enhancer.Backend,
		"services.enhancer.model":    &r.Services.Enhancer.Model,
		"services.enhancer.api_key":  &r.Services.Enhancer.APIKey,
		"services.enhancer.base_url": &r.Services.Enhancer.BaseURL,
		"services.tts.url":           &r.Services.TTS.URL,
		"services.tts.api_key":       &r.Services.TTS.APIKey,
		"services.tts.voice_id":      &r.Services.TTS.VoiceID,
		"services.tts.model_id":      &r.Services.TTS.ModelID,
		"services.http.proxy":        &r.Services.HTTP.Proxy,
		"speech.tone":                &r.Speech.Tone,
		"speech.local_command":       &r.Speech.LocalCommand,
		"speech.local_voice":         &r.Speech.LocalVoice,
		"server.address":             &r.Server.Address,
		"device.dial_url":            &r.Device.DialURL,
		"paths.outputs":              &r.Paths.Outputs,
	}
}

func (r *Root) intKeys() map[string]*int {
	return map[string]*int{
		"sensor.sample_period_ms":        &r.Sensor.SamplePeriodMs,
		"sensor.sequence_length":         &r.Sensor.SequenceLength,
		"sensor.cooldown_ms":             &r.Sensor.CooldownMs,
		"sentence.inactivity_timeout_ms": &r.Sentence.InactivityTimeoutMs,
		"sentence.history_size":          &r.Sentence.HistorySize,
		"services.classifier.timeout_ms": &r.Services.Classifier.TimeoutMs,
		"services.enhancer.timeout_ms":   &r.Services.Enhancer.TimeoutMs,
		"services.tts.timeout_ms":        &r.Services.TTS.TimeoutMs,
		"speech.playback_timeout_ms":     &r.Speech.PlaybackTimeoutMs,
	}
}

func (r *Root) boolKeys() map[string]*bool {
	return map[string]*bool{
		"services.enhancer.legacy_schema": &r.Services.Enhancer.LegacySchema,
		"speech.enabled":                  &r.Speech.Enabled,
		"paths.capture_windows":           &r.Paths.CaptureWindows,
	}
}

// ApplyOverrides overlays every key v has a value for onto cfg, then
// revalidates it.
func ApplyOverrides(cfg *Root, v *viper.Viper) {
	if v == nil {
		return
	}
	for k, p := range cfg.stringKeys() {
		if v.IsSet(k) {
			if s := v.GetString(k); s != "" {
				*p = s
			}
		}
	}
	for k, p := range cfg.intKeys() {
		if v.IsSet(k) {
			*p = v.GetInt(k)
		}
	}
	for k, p := range cfg.boolKeys() {
		if v.IsSet(k) {
			*p = v.GetBool(k)
		}
	}
	cfg.Validate()
}

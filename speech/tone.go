package speech

import "strings"

// Tone selects how finalized sentences are rewritten and voiced.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	TonePersuasive   Tone = "persuasive"
)

// Tones lists every supported tone.
var Tones = []Tone{ToneFriendly, ToneProfessional, ToneCasual, TonePersuasive}

// LookupTone reports whether s names a supported tone, ignoring case.
func LookupTone(s string) (Tone, bool) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tones {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// ParseTone is LookupTone falling back to friendly.
func ParseTone(s string) Tone {
	if t, ok := LookupTone(s); ok {
		return t
	}
	return ToneFriendly
}

// VoiceSettings are the remote provider's voice parameters.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Prosody drives the local synthesizer; 1.0 is the engine's default.
type Prosody struct {
	Rate  float64
	Pitch float64
}

// Voice returns the remote voice settings for t.
func (t Tone) Voice() VoiceSettings {
	switch t {
	case ToneProfessional:
		return VoiceSettings{Stability: 0.7, SimilarityBoost: 0.8}
	case TonePersuasive:
		return VoiceSettings{Stability: 0.6, SimilarityBoost: 0.85}
	case ToneCasual:
		return VoiceSettings{Stability: 0.4, SimilarityBoost: 0.7}
	default:
		return VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75}
	}
}

// Prosody returns the local rate/pitch pair for t.
func (t Tone) Prosody() Prosody {
	switch t {
	case ToneProfessional:
		return Prosody{Rate: 0.9, Pitch: 0.9}
	case TonePersuasive:
		return Prosody{Rate: 1.1, Pitch: 1.1}
	default:
		return Prosody{Rate: 1.0, Pitch: 1.0}
	}
}

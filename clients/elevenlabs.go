package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hackfest-dev/Hackfest25-45/speech"
)

const (
	DefaultTTSURL     = "https://api.elevenlabs.io/v1/text-to-speech"
	DefaultTTSVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultTTSModelID = "eleven_monolingual_v1"
)

// --- Remote speech synthesis (ElevenLabs text-to-speech) ---
type TTSReq struct {
	Text          string               `json:"text"`
	ModelID       string               `json:"model_id"`
	VoiceSettings speech.VoiceSettings `json:"voice_settings"`
}

func (h *HTTP) TextToSpeech(ctx context.Context, url, apiKey, voiceID string, in TTSReq) ([]byte, error) {
	b, _ := json.Marshal(in)
	endpoint := strings.TrimRight(url, "/") + "/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts read: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("tts: empty audio")
	}
	return audio, nil
}

// ElevenLabs implements speech.Synthesizer.
type ElevenLabs struct {
	HTTP    *HTTP
	URL     string
	APIKey  string
	VoiceID string
	ModelID string
}

func (e ElevenLabs) Synthesize(ctx context.Context, text string, voice speech.VoiceSettings) ([]byte, error) {
	if e.APIKey == "" {
		return nil, errors.New("tts: no api key configured")
	}
	url, voiceID, model := e.URL, e.VoiceID, e.ModelID
	if url == "" {
		url = DefaultTTSURL
	}
	if voiceID == "" {
		voiceID = DefaultTTSVoiceID
	}
	if model == "" {
		model = DefaultTTSModelID
	}
	return e.HTTP.TextToSpeech(ctx, url, e.APIKey, voiceID, TTSReq{
		Text:          text,
		ModelID:       model,
		VoiceSettings: voice,
	})
}

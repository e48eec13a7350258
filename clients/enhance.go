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
)

// ErrEnhancementFailed marks every failure of the enhancement step: transport
// errors, non-success status, explicit failure flags and malformed payloads.
var ErrEnhancementFailed = errors.New("enhancement failed")

// Enhancement is the canonical result of sentence enhancement, whatever
// backend or response schema produced it.
type Enhancement struct {
	Original  string
	Corrected string
	Enhanced  string
	// Legacy is set when the result came from the grammar_corrected /
	// tone_adjusted response schema.
	Legacy bool
}

// --- Text enhancement (/enhance-text) ---
type EnhanceReq struct {
	Text string `json:"text"`
	Tone string `json:"tone"`
}

// EnhanceResp is the wire payload. Canonical fields are original/enhanced;
// grammar_corrected/tone_adjusted belong to the older deployment.
type EnhanceResp struct {
	Success          *bool  `json:"success,omitempty"`
	Error            string `json:"error,omitempty"`
	Original         string `json:"original,omitempty"`
	Enhanced         string `json:"enhanced,omitempty"`
	GrammarCorrected string `json:"grammar_corrected,omitempty"`
	ToneAdjusted     string `json:"tone_adjusted,omitempty"`
}

func (h *HTTP) Enhance(ctx context.Context, url string, in EnhanceReq) (*EnhanceResp, error) {
	b, _ := json.Marshal(in)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/enhance-text", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("enhance %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out EnhanceResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("enhance decode: %w", err)
	}
	return &out, nil
}

// Canonical converts a wire response into an Enhancement. The legacy schema
// is only honoured when allowLegacy is set.
func (r EnhanceResp) Canonical(text string, allowLegacy bool) (Enhancement, error) {
	if r.Success != nil && !*r.Success {
		msg := r.Error
		if msg == "" {
			msg = "service reported failure"
		}
		return Enhancement{}, fmt.Errorf("%w: %s", ErrEnhancementFailed, msg)
	}
	if r.Error != "" {
		return Enhancement{}, fmt.Errorf("%w: %s", ErrEnhancementFailed, r.Error)
	}

	original := strings.TrimSpace(r.Original)
	if original == "" {
		original = text
	}

	if enhanced := strings.TrimSpace(r.Enhanced); enhanced != "" {
		corrected := strings.TrimSpace(r.GrammarCorrected)
		if corrected == "" {
			corrected = enhanced
		}
		return Enhancement{Original: original, Corrected: corrected, Enhanced: enhanced}, nil
	}

	if tone := strings.TrimSpace(r.ToneAdjusted); tone != "" {
		if !allowLegacy {
			return Enhancement{}, fmt.Errorf("%w: legacy response schema disabled", ErrEnhancementFailed)
		}
		corrected := strings.TrimSpace(r.GrammarCorrected)
		if corrected == "" {
			corrected = tone
		}
		return Enhancement{Original: original, Corrected: corrected, Enhanced: tone, Legacy: true}, nil
	}

	return Enhancement{}, fmt.Errorf("%w: response carried no enhanced text", ErrEnhancementFailed)
}

// Enhancer binds the /enhance-text endpoint to the canonical result shape.
type Enhancer struct {
	HTTP        *HTTP
	URL         string
	AllowLegacy bool
}

func (e Enhancer) Enhance(ctx context.Context, text, tone string) (Enhancement, error) {
	resp, err := e.HTTP.Enhance(ctx, e.URL, EnhanceReq{Text: text, Tone: tone})
	if err != nil {
		return Enhancement{}, fmt.Errorf("%w: %w", ErrEnhancementFailed, err)
	}
	return resp.Canonical(text, e.AllowLegacy)
}

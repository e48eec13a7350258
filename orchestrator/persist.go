package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/hackfest-dev/Hackfest25-45/history"
	"github.com/hackfest-dev/Hackfest25-45/speech"
)

type PersistBundle struct {
	SessionID   string          `json:"session_id"`
	StartedAt   time.Time       `json:"started_at"`
	GeneratedAt time.Time       `json:"generated_at"`
	Tone        speech.Tone     `json:"tone"`
	History     []history.Entry `json:"history"`
	Counters    Counters        `json:"counters"`
	WindowsFile string          `json:"windows_file,omitempty"`
}

func mkSessionDir(outputsRoot string, now time.Time) (string, string, error) {
	ts := now.Format("20060102-150405")
	sid := "session_" + ts
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// persist writes history.json, and windows.json when windows were captured,
// into a fresh session directory under the outputs root.
func (p *Pipeline) persist() (string, error) {
	now := p.now()
	sid, dir, err := mkSessionDir(p.opts.OutputsDir, now)
	if err != nil {
		return "", err
	}

	bundle := PersistBundle{
		SessionID:   sid,
		StartedAt:   p.started,
		GeneratedAt: now,
		Tone:        p.tone,
		History:     p.hist.Entries(),
		Counters:    p.counters,
	}

	if p.opts.CaptureWindows {
		bundle.WindowsFile = "windows.json"
		captures := p.captures
		if captures == nil {
			captures = []Capture{}
		}
		if err := writeJSON(filepath.Join(dir, bundle.WindowsFile), captures); err != nil {
			return "", err
		}
	}

	if err := writeJSON(filepath.Join(dir, "history.json"), bundle); err != nil {
		return "", err
	}
	return dir, nil
}

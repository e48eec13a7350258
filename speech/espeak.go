package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	espeakBaseWPM   = 175
	espeakBasePitch = 50
)

// Espeak speaks through the espeak-ng (or espeak) command line tool.
type Espeak struct {
	Command string
	Voice   string
}

func NewEspeak(command string) *Espeak {
	if command == "" {
		command = "espeak-ng"
	}
	return &Espeak{Command: command}
}

func (e *Espeak) Available() bool {
	if e == nil || e.Command == "" {
		return false
	}
	_, err := exec.LookPath(e.Command)
	return err == nil
}

func (e *Espeak) Speak(ctx context.Context, text string, p Prosody) error {
	if !e.Available() {
		return ErrLocalUnavailable
	}
	cmd := exec.CommandContext(ctx, e.Command, espeakArgs(text, e.Voice, p)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", e.Command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func espeakArgs(text, voice string, p Prosody) []string {
	rate, pitch := p.Rate, p.Pitch
	if rate <= 0 {
		rate = 1
	}
	if pitch <= 0 {
		pitch = 1
	}
	pitchArg := int(espeakBasePitch*pitch + 0.5)
	if pitchArg > 99 {
		pitchArg = 99
	}

	args := []string{
		"-s", strconv.Itoa(int(espeakBaseWPM*rate + 0.5)),
		"-p", strconv.Itoa(pitchArg),
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	// "--" keeps text starting with a dash from being read as a flag.
	return append(args, "--", text)
}

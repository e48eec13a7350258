package device

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Replay applies the JSON-lines recording in r to sink. With speed > 0 each
// event waits until its recorded offset divided by speed; with speed <= 0
// events are applied as fast as they are read. Blank lines and lines
// starting with '#' are ignored. It returns the number of applied events.
func Replay(ctx context.Context, r io.Reader, sink Sink, speed float64, log logrus.FieldLogger) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	start := time.Now()
	applied, line := 0, 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		ev, err := Parse(raw)
		if err != nil {
			log.WithError(err).WithField("line", line).Debug("replay line skipped")
			continue
		}

		if speed > 0 && ev.T > 0 {
			due := start.Add(time.Duration(ev.T / speed * float64(time.Millisecond)))
			if wait := time.Until(due); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return applied, ctx.Err()
				case <-t.C:
				}
			}
		} else if err := ctx.Err(); err != nil {
			return applied, err
		}

		if err := Apply(sink, ev); err != nil {
			log.WithError(err).WithField("line", line).Debug("replay line skipped")
			continue
		}
		applied++
	}
	if err := sc.Err(); err != nil {
		return applied, fmt.Errorf("replay line %d: %w", line, err)
	}
	return applied, nil
}

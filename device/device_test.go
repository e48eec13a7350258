package device

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hackfest-dev/Hackfest25-45/sensor"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type countingSink struct {
	mu sync.Mutex
	n  int
	*sensor.Aggregator
}

func newCountingSink() *countingSink { return &countingSink{Aggregator: sensor.NewAggregator()} }

func (c *countingSink) SetOrientation(v [4]float64) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	c.Aggregator.SetOrientation(v)
}

func (c *countingSink) orientations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestApplyAliases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want Kind
	}{
		{`{"type":"acceleration","x":1,"y":2,"z":3}`, KindAcceleration},
		{`{"type":"accelerationChanged","x":1,"y":2,"z":3}`, KindAcceleration},
		{`{"type":"gravityVectorChanged","x":1,"y":2,"z":3}`, KindGravity},
		{`{"type":"angular_velocity","x":1,"y":2,"z":3}`, KindAngularVelocity},
		{`{"type":"angularVelocityChanged","x":1,"y":2,"z":3}`, KindAngularVelocity},
		{`{"type":"orientationChanged","x":1,"y":2,"z":3,"w":4}`, KindOrientation},
	}
	for _, tc := range cases {
		ev, err := Parse([]byte(tc.raw))
		if err != nil {
			t.Fatalf("parse %s: %v", tc.raw, err)
		}
		if k, err := ev.Kind(); err != nil || k != tc.want {
			t.Fatalf("kind of %s = %q, %v", tc.raw, k, err)
		}
	}
}

func TestApplyWritesAggregator(t *testing.T) {
	t.Parallel()

	agg := sensor.NewAggregator()
	for _, raw := range []string{
		`{"type":"acceleration","x":0.1,"y":0.2,"z":0.3}`,
		`{"type":"gravity","x":1.1,"y":1.2,"z":1.3}`,
		`{"type":"angular_velocity","x":2.1,"y":2.2,"z":2.3}`,
		`{"type":"orientation","x":3.1,"y":3.2,"z":3.3,"w":3.4}`,
	} {
		ev, _ := Parse([]byte(raw))
		if err := Apply(agg, ev); err != nil {
			t.Fatalf("apply %s: %v", raw, err)
		}
	}
	s := agg.Snapshot()
	if s.Acceleration != [3]float64{0.1, 0.2, 0.3} || s.Gravity != [3]float64{1.1, 1.2, 1.3} {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if s.AngularVelocity != [3]float64{2.1, 2.2, 2.3} || s.Orientation != [4]float64{3.1, 3.2, 3.3, 3.4} {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if !s.Valid() {
		t.Fatalf("fully populated sample must be valid")
	}
}

func TestApplyUnknownAndMalformed(t *testing.T) {
	t.Parallel()

	ev, _ := Parse([]byte(`{"type":"buttonPressed"}`))
	if err := Apply(sensor.NewAggregator(), ev); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := Parse([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestReplayAppliesEvents(t *testing.T) {
	t.Parallel()

	rec := strings.Join([]string{
		"# recorded session",
		`{"t":0,"type":"acceleration","x":1,"y":1,"z":1}`,
		"",
		"not json",
		`{"t":5,"type":"gravity","x":1,"y":1,"z":1}`,
		`{"t":10,"type":"tap"}`,
		`{"t":15,"type":"orientation","x":1,"y":1,"z":1,"w":1}`,
	}, "\n")

	sink := newCountingSink()
	n, err := Replay(context.Background(), strings.NewReader(rec), sink, 0, quietLogger())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 3 || sink.orientations() != 1 {
		t.Fatalf("applied %d events", n)
	}
}

func TestReplayHonoursTimestamps(t *testing.T) {
	t.Parallel()

	rec := `{"t":0,"type":"acceleration","x":1,"y":1,"z":1}
{"t":100,"type":"gravity","x":1,"y":1,"z":1}`

	start := time.Now()
	n, err := Replay(context.Background(), strings.NewReader(rec), sensor.NewAggregator(), 2, quietLogger())
	if err != nil || n != 2 {
		t.Fatalf("replay: n=%d err=%v", n, err)
	}
	if el := time.Since(start); el < 45*time.Millisecond {
		t.Fatalf("replay at 2x finished after %v, expected about 50ms", el)
	}
}

func TestReplayStopsOnCancel(t *testing.T) {
	t.Parallel()

	rec := `{"t":0,"type":"acceleration","x":1,"y":1,"z":1}
{"t":10000,"type":"gravity","x":1,"y":1,"z":1}`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	n, err := Replay(ctx, strings.NewReader(rec), sensor.NewAggregator(), 1, quietLogger())
	if !errors.Is(err, context.DeadlineExceeded) || n != 1 {
		t.Fatalf("expected cancellation after one event, n=%d err=%v", n, err)
	}
}

func TestDialConsumesRemoteEvents(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"orientationChanged","x":1,"y":2,"z":3,"w":4}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"orientation","x":5,"y":6,"z":7,"w":8}`))
		// Hold the connection until the client goes away.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	sink := newCountingSink()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), sink, 10*time.Millisecond, quietLogger())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sink.orientations() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("dial: %v", err)
	}
	if sink.orientations() < 2 {
		t.Fatalf("expected two orientation events, got %d", sink.orientations())
	}
	if got := sink.Snapshot().Orientation; got != [4]float64{5, 6, 7, 8} {
		t.Fatalf("last write must win, got %v", got)
	}
}

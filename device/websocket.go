package device

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Consume reads text frames from conn and applies each event to sink until
// the peer closes the connection or ctx is done. Malformed frames are skipped.
func Consume(ctx context.Context, conn *websocket.Conn, sink Sink, log logrus.FieldLogger) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if mt != websocket.TextMessage {
			continue
		}
		ev, err := Parse(data)
		if err == nil {
			err = Apply(sink, ev)
		}
		if err != nil {
			log.WithError(err).Debug("device frame skipped")
		}
	}
}

// Dial connects to a remote event source and consumes it, reconnecting after
// retry until ctx is done.
func Dial(ctx context.Context, url string, sink Sink, retry time.Duration, log logrus.FieldLogger) error {
	if retry <= 0 {
		retry = 2 * time.Second
	}
	entry := log.WithField("url", url)
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			entry.Info("device connected")
			err = Consume(ctx, conn, sink, entry)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			entry.WithError(err).Warn("device connection lost")
		} else {
			entry.Info("device disconnected")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventFileAdded is sent by the platform when a file lands in a folder.
const EventFileAdded = "file-added"

// Event is a platform broadcast.
type Event struct {
	Type   string `json:"type"`
	TreeID string `json:"treeId"`
}

const (
	eventsPath         = "/ws/events"
	defaultReconnect   = 5 * time.Second
	eventsBufferLength = 32
)

// EventStream receives platform events over a websocket and reconnects
// until its context is done.
type EventStream struct {
	url       string
	header    http.Header
	reconnect time.Duration
	dialer    *websocket.Dialer
	logger    *logrus.Entry
}

// Events returns a stream of the platform events published by the backend.
func (c *Client) Events() *EventStream {
	wsURL := c.baseURL
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	return &EventStream{
		url:       wsURL + eventsPath,
		header:    header,
		reconnect: defaultReconnect,
		dialer:    websocket.DefaultDialer,
		logger:    c.logger.WithField("stream", "events"),
	}
}

// WithReconnect sets the delay between connection attempts.
func (s *EventStream) WithReconnect(d time.Duration) *EventStream {
	s.reconnect = d
	return s
}

// Run delivers events on the returned channel until ctx is done. The channel
// is closed on exit.
func (s *EventStream) Run(ctx context.Context) <-chan Event {
	out := make(chan Event, eventsBufferLength)
	go func() {
		defer close(out)
		for {
			if err := s.session(ctx, out); err != nil {
				s.logger.WithError(err).Debug("event stream disconnected")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnect):
			}
		}
	}()
	return out
}

func (s *EventStream) session(ctx context.Context, out chan<- Event) error {
	ws, _, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		return err
	}
	defer ws.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()

	for {
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			s.logger.WithError(err).Warn("ignoring malformed event")
			continue
		}
		select {
		case out <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

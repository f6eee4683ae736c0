/*-------------------------------------------------------------------------
 *
 * websocket.go
 *    Live event feed for the admin interface
 *
 * Each connection subscribes to every broker event and receives them as
 * JSON frames. A slow client loses events rather than blocking Publish.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/handlers/websocket.go
 *
 *-------------------------------------------------------------------------
 */

package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/neurondb/NeuronApprovals/internal/events"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/metrics"
)

const (
	feedBuffer     = 64
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

/* FeedMessage is one frame sent to a live feed client */
type FeedMessage struct {
	Type  string        `json:"type"`
	Event *events.Event `json:"event,omitempty"`
}

/* LiveFeed streams broker events over websockets */
type LiveFeed struct {
	broker   *events.Broker
	upgrader websocket.Upgrader
	active   int64
	logger   *logging.Logger
}

/* NewLiveFeed creates a feed; checkOrigin nil applies the same-origin check */
func NewLiveFeed(broker *events.Broker, checkOrigin func(r *http.Request) bool, logger *logging.Logger) *LiveFeed {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LiveFeed{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

/* Active returns the number of connected clients */
func (f *LiveFeed) Active() int64 {
	return atomic.LoadInt64(&f.active)
}

func (f *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.WithContext(r.Context()).Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	metrics.SetActiveConnections("websocket", float64(atomic.AddInt64(&f.active, 1)))
	defer func() {
		metrics.SetActiveConnections("websocket", float64(atomic.AddInt64(&f.active, -1)))
	}()

	feed := make(chan events.Event, feedBuffer)
	unsubscribe := f.broker.Subscribe(events.AllEvents, func(ctx context.Context, event events.Event) error {
		select {
		case feed <- event:
		default:
			f.logger.Warn("Live feed client too slow, event dropped", map[string]interface{}{
				"event_id": event.ID,
			})
		}
		return nil
	})
	defer unsubscribe()

	/* The read loop only detects the client going away */
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := f.write(conn, FeedMessage{Type: "connected"}); err != nil {
		return
	}

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case event := <-feed:
			if err := f.write(conn, FeedMessage{Type: "event", Event: &event}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *LiveFeed) write(conn *websocket.Conn, msg FeedMessage) error {
	conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return conn.WriteJSON(msg)
}

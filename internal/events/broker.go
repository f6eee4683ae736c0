/*-------------------------------------------------------------------------
 *
 * broker.go
 *    Event broker for approval workflow events
 *
 * Fans events out to in-process subscribers and to pluggable backends
 * (structured log, PostgreSQL NOTIFY).
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/events/broker.go
 *
 *-------------------------------------------------------------------------
 */

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/metrics"
)

/* AllEvents subscribes to every event type */
const AllEvents = "*"

/* EventType represents event types */
type EventType string

const (
	EventApprovalRequested EventType = "approval.requested"
	EventApprovalApproved  EventType = "approval.approved"
	EventApprovalRejected  EventType = "approval.rejected"
	EventContactCreated    EventType = "contact.created"
	EventContactUpdated    EventType = "contact.updated"
	EventContactDeleted    EventType = "contact.deleted"
)

/* Types lists every event type the workflow emits */
var Types = []EventType{
	EventApprovalRequested,
	EventApprovalApproved,
	EventApprovalRejected,
	EventContactCreated,
	EventContactUpdated,
	EventContactDeleted,
}

/* Event represents an event */
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
}

/* EventBackend interface for event backends */
type EventBackend interface {
	Name() string
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

/* EventHandler handles events from backends and subscribers */
type EventHandler func(ctx context.Context, event Event) error

/* Broker manages event streaming */
type Broker struct {
	backends    []EventBackend
	subscribers map[string]map[uint64]EventHandler
	nextID      uint64
	mu          sync.RWMutex
	enabled     bool
	logger      *logging.Logger
}

/* NewBroker creates a new, enabled event broker */
func NewBroker(logger *logging.Logger) *Broker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Broker{
		backends:    make([]EventBackend, 0),
		subscribers: make(map[string]map[uint64]EventHandler),
		enabled:     true,
		logger:      logger,
	}
}

/* AddBackend registers a backend */
func (b *Broker) AddBackend(backend EventBackend) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backends = append(b.backends, backend)
}

/* Enable enables event streaming */
func (b *Broker) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
}

/* Disable disables event streaming and closes every backend */
func (b *Broker) Disable() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, backend := range b.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("backend %s: %w", backend.Name(), err))
		}
	}
	b.backends = make([]EventBackend, 0)
	b.enabled = false
	return errors.Join(errs...)
}

/* Enabled reports whether Publish delivers anything */
func (b *Broker) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

/* Publish publishes an event to every backend and subscriber */
func (b *Broker) Publish(ctx context.Context, eventType EventType, source string, data map[string]interface{}) error {
	b.mu.RLock()
	enabled := b.enabled
	backends := append([]EventBackend(nil), b.backends...)
	b.mu.RUnlock()

	if !enabled {
		return nil
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      string(eventType),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Data:      data,
	}

	var errs []error
	for _, backend := range backends {
		if err := backend.Publish(ctx, string(eventType), event); err != nil {
			metrics.RecordEvent(string(eventType), "error")
			b.logger.WithContext(ctx).Warn("Failed to publish event", map[string]interface{}{
				"event_type": event.Type,
				"backend":    backend.Name(),
				"error":      err.Error(),
			})
			errs = append(errs, fmt.Errorf("backend %s: %w", backend.Name(), err))
		}
	}

	b.notifySubscribers(ctx, event)
	metrics.RecordEvent(string(eventType), "published")

	if len(errs) > 0 {
		return fmt.Errorf("event publish failed: type='%s', error=%w", event.Type, errors.Join(errs...))
	}
	return nil
}

/* Subscribe registers handler for eventType (or AllEvents) and returns its cancel function */
func (b *Broker) Subscribe(eventType string, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[uint64]EventHandler)
	}
	b.subscribers[eventType][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers[eventType], id)
	}
}

/* Bridge feeds events that other processes published through the backends to local subscribers */
func (b *Broker) Bridge(ctx context.Context, ownSource string) error {
	b.mu.RLock()
	backends := append([]EventBackend(nil), b.backends...)
	b.mu.RUnlock()

	for _, backend := range backends {
		err := backend.Subscribe(ctx, AllEvents, func(ctx context.Context, event Event) error {
			if event.Source != ownSource {
				b.notifySubscribers(ctx, event)
			}
			return nil
		})
		if err != nil && !errors.Is(err, ErrSubscribeUnsupported) {
			return fmt.Errorf("event bridge failed: backend='%s', error=%w", backend.Name(), err)
		}
	}
	return nil
}

/* notifySubscribers calls handlers synchronously; handler errors are logged only */
func (b *Broker) notifySubscribers(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0)
	for _, key := range []string{event.Type, AllEvents} {
		for _, h := range b.subscribers[key] {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.WithContext(ctx).Warn("Event subscriber failed", map[string]interface{}{
				"event_type": event.Type,
				"event_id":   event.ID,
				"error":      err.Error(),
			})
		}
	}
}

/*-------------------------------------------------------------------------
 *
 * backends.go
 *    Event backends: structured log and PostgreSQL NOTIFY/LISTEN
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/events/backends.go
 *
 *-------------------------------------------------------------------------
 */

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	"github.com/neurondb/NeuronApprovals/internal/logging"
)

/* ErrSubscribeUnsupported is returned by write-only backends */
var ErrSubscribeUnsupported = errors.New("backend does not support subscriptions")

/* LogBackend writes every event to the structured log */
type LogBackend struct {
	logger *logging.Logger
}

/* NewLogBackend creates a log backend */
func NewLogBackend(logger *logging.Logger) *LogBackend {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LogBackend{logger: logger}
}

func (l *LogBackend) Name() string { return "log" }

func (l *LogBackend) Publish(ctx context.Context, topic string, event Event) error {
	l.logger.WithContext(ctx).Info("Event dispatched", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": topic,
		"source":     event.Source,
		"data":       event.Data,
	})
	return nil
}

/* Subscribe is unsupported: the log is write-only */
func (l *LogBackend) Subscribe(ctx context.Context, topic string, handler EventHandler) error {
	return ErrSubscribeUnsupported
}

func (l *LogBackend) Close() error { return nil }

/* PostgresBackend publishes with pg_notify and listens with a dedicated pgx connection */
type PostgresBackend struct {
	db      *sqlx.DB
	dsn     string
	channel string
	logger  *logging.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

/* NewPostgresBackend creates a NOTIFY backend on channel */
func NewPostgresBackend(db *sqlx.DB, dsn, channel string, logger *logging.Logger) *PostgresBackend {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PostgresBackend{db: db, dsn: dsn, channel: channel, logger: logger}
}

func (p *PostgresBackend) Name() string { return "postgres" }

/* Publish sends the event as the JSON payload of NOTIFY */
func (p *PostgresBackend) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event encoding failed: type='%s', error=%w", topic, err)
	}
	if _, err := p.db.ExecContext(ctx, p.db.Rebind("SELECT pg_notify(?, ?)"), p.channel, string(payload)); err != nil {
		return fmt.Errorf("pg_notify failed: channel='%s', error=%w", p.channel, err)
	}
	return nil
}

/* Subscribe starts a background listener delivering events of topic (or AllEvents) */
func (p *PostgresBackend) Subscribe(ctx context.Context, topic string, handler EventHandler) error {
	listenCtx, cancel := context.WithCancel(ctx)

	conn, err := listenConn(listenCtx, p.dsn, p.channel)
	if err != nil {
		cancel()
		return err
	}

	p.mu.Lock()
	p.cancels = append(p.cancels, cancel)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer conn.Close(context.Background())
		if err := receive(listenCtx, conn, topic, handler); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("Event listener stopped", err, map[string]interface{}{"channel": p.channel})
		}
	}()
	return nil
}

/* Close stops every listener */
func (p *PostgresBackend) Close() error {
	p.mu.Lock()
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

/* Listen blocks, delivering events from channel to handler until ctx ends */
func Listen(ctx context.Context, dsn, channel, topic string, handler EventHandler) error {
	conn, err := listenConn(ctx, dsn, channel)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	return receive(ctx, conn, topic, handler)
}

func listenConn(ctx context.Context, dsn, channel string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("listener connection failed: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("LISTEN failed: channel='%s', error=%w", channel, err)
	}
	return conn, nil
}

func receive(ctx context.Context, conn *pgx.Conn, topic string, handler EventHandler) error {
	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var event Event
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			continue
		}
		if topic != AllEvents && topic != event.Type {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

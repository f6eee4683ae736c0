/*-------------------------------------------------------------------------
 *
 * dispatcher.go
 *    Notification dispatcher
 *
 * Sends every message to every recipient over every configured channel,
 * either inline or through the worker queue.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/notifications/dispatcher.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/metrics"
)

/* Dispatcher implements approval.Notifier */
type Dispatcher struct {
	channels []Channel
	links    Links
	queue    *Queue
	logger   *logging.Logger
}

/* NewDispatcher creates a dispatcher; a nil queue delivers inline */
func NewDispatcher(channels []Channel, links Links, queue *Queue, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		channels: channels,
		links:    links,
		queue:    queue,
		logger:   logger,
	}
}

/* FromConfig builds the configured channels and, when enabled, starts the worker queue */
func FromConfig(cfg *config.Config, queries *db.Queries, logger *logging.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	n := cfg.Notifications

	channels := make([]Channel, 0, len(n.Channels))
	for _, name := range n.Channels {
		switch name {
		case "mail":
			mail := NewMailChannel(n.SMTP.Host, n.SMTP.Port, n.SMTP.User, n.SMTP.Password, n.SMTP.From)
			if !mail.IsEnabled() {
				logger.Warn("Mail channel skipped: SMTP host not configured", nil)
				continue
			}
			channels = append(channels, mail)
		case "database":
			channels = append(channels, NewDatabaseChannel(queries))
		case "webhook":
			if n.Webhook.URL == "" {
				return nil, fmt.Errorf("webhook channel requires notifications.webhook.url: %w", ErrChannelNotConfigured)
			}
			channels = append(channels, NewWebhookChannel(n.Webhook.URL, n.Webhook.Secret, n.Webhook.Timeout))
		case "log":
			channels = append(channels, NewLogChannel(logger))
		default:
			return nil, fmt.Errorf("unknown notification channel: %s", name)
		}
	}

	var queue *Queue
	if n.Queue {
		queue = NewQueue(n.QueueName, n.Workers, logger)
		queue.Start()
	}

	return NewDispatcher(channels, Links{BaseURL: n.BaseURL, Route: cfg.Admin.Route}, queue, logger), nil
}

/* Channels returns the channel names in delivery order */
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

/* NotifyApprovalRequested tells approvers that a subject awaits their decision */
func (d *Dispatcher) NotifyApprovalRequested(ctx context.Context, recipients []db.User, approval *db.Approval) error {
	return d.dispatch(ctx, recipients, RequestedMessage(approval, d.links))
}

/* NotifyApprovalDecided tells approvers that a decision was recorded */
func (d *Dispatcher) NotifyApprovalDecided(ctx context.Context, recipients []db.User, approval *db.Approval, record *db.ApprovalRecord) error {
	return d.dispatch(ctx, recipients, DecidedMessage(approval, record, d.links))
}

/* Close stops the queue after it drains */
func (d *Dispatcher) Close() {
	if d.queue != nil {
		d.queue.Stop()
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, recipients []db.User, msg *Message) error {
	if len(recipients) == 0 || len(d.channels) == 0 {
		return nil
	}
	if d.queue == nil {
		return d.deliver(ctx, recipients, msg)
	}

	/* Queued jobs outlive the request; keep only its request id */
	requestID := logging.RequestIDFromContext(ctx)
	return d.queue.Enqueue(func(jobCtx context.Context) error {
		return d.deliver(logging.WithRequestID(jobCtx, requestID), recipients, msg)
	})
}

func (d *Dispatcher) deliver(ctx context.Context, recipients []db.User, msg *Message) error {
	var errs []error
	for _, recipient := range recipients {
		for _, ch := range d.channels {
			if err := ch.Send(ctx, recipient, msg); err != nil {
				metrics.RecordNotification(ch.Name(), "failed")
				d.logger.WithContext(ctx).Warn("Notification delivery failed", map[string]interface{}{
					"channel":      ch.Name(),
					"kind":         msg.Kind,
					"recipient_id": recipient.ID,
					"error":        err.Error(),
				})
				errs = append(errs, fmt.Errorf("channel %s, recipient %s: %w", ch.Name(), recipient.ID, err))
				continue
			}
			metrics.RecordNotification(ch.Name(), "sent")
		}
	}
	return errors.Join(errs...)
}

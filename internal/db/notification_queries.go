/*-------------------------------------------------------------------------
 *
 * notification_queries.go
 *    Storage for the database notification channel
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/notification_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
)

/* CreateNotification stores a notification for one user */
func (q *Queries) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, type, notifiable_id, data, read_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		q.tables.Notifications)
	if _, err := q.exec(ctx, query, n.ID, n.Type, n.NotifiableID, n.Data, n.ReadAt, n.CreatedAt); err != nil {
		return fmt.Errorf("notification creation failed: type='%s', notifiable_id='%s', error=%w", n.Type, n.NotifiableID, err)
	}
	return nil
}

/* ListNotifications lists a user's notifications newest first */
func (q *Queries) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	conds := []string{"notifiable_id = ?"}
	if unreadOnly {
		conds = append(conds, "read_at IS NULL")
	}
	query := fmt.Sprintf(`SELECT id, type, notifiable_id, data, read_at, created_at FROM %s`, q.tables.Notifications) +
		where(conds) + " ORDER BY created_at DESC, id DESC" + Page{Limit: limit}.clause()

	notifications := []Notification{}
	if err := q.selectAll(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("notification listing failed: notifiable_id='%s', error=%w", userID, err)
	}
	return notifications, nil
}

/* MarkNotificationRead stamps read_at on one of userID's notifications; already-read is not an error */
func (q *Queries) MarkNotificationRead(ctx context.Context, id, userID string) error {
	var owner string
	err := q.get(ctx, &owner, fmt.Sprintf(`SELECT notifiable_id FROM %s WHERE id = ?`, q.tables.Notifications), id)
	if err != nil {
		return notFound("notification", id, err)
	}
	if owner != userID {
		return fmt.Errorf("%w: notification id='%s'", ErrNotFound, id)
	}

	query := fmt.Sprintf(`UPDATE %s SET read_at = ? WHERE id = ? AND read_at IS NULL`, q.tables.Notifications)
	if _, err := q.exec(ctx, query, now(), id); err != nil {
		return fmt.Errorf("notification update failed: id='%s', error=%w", id, err)
	}
	return nil
}

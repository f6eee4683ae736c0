/*-------------------------------------------------------------------------
 *
 * member_queries.go
 *    Contact membership (contact_user pivot) persistence
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/member_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
)

/* ListContactMembers lists a contact's members joined with their user rows */
func (q *Queries) ListContactMembers(ctx context.Context, contactID string) ([]ContactMember, error) {
	t := q.tables
	query := fmt.Sprintf(`
		SELECT cu.contact_id, cu.user_id, COALESCE(u.%[3]s, '') AS name, COALESCE(u.%[4]s, '') AS email,
			cu.is_approver, cu.created_at, cu.updated_at
		FROM %[1]s cu
		LEFT JOIN %[2]s u ON u.id = cu.user_id
		WHERE cu.contact_id = ?
		ORDER BY cu.created_at, cu.user_id`, t.ContactUser, t.Users, t.UserName, t.UserEmail)

	members := []ContactMember{}
	if err := q.selectAll(ctx, &members, query, contactID); err != nil {
		return nil, fmt.Errorf("member listing failed: contact_id='%s', error=%w", contactID, err)
	}
	return members, nil
}

/* ListApprovers lists the users currently flagged approver on a contact */
func (q *Queries) ListApprovers(ctx context.Context, contactID string) ([]User, error) {
	t := q.tables
	query := fmt.Sprintf(`
		SELECT u.id, COALESCE(u.%[3]s, '') AS name, COALESCE(u.%[4]s, '') AS email
		FROM %[2]s u
		JOIN %[1]s cu ON cu.user_id = u.id
		WHERE cu.contact_id = ? AND cu.is_approver = TRUE
		ORDER BY cu.created_at, u.id`, t.ContactUser, t.Users, t.UserName, t.UserEmail)

	users := []User{}
	if err := q.selectAll(ctx, &users, query, contactID); err != nil {
		return nil, fmt.Errorf("approver listing failed: contact_id='%s', error=%w", contactID, err)
	}
	return users, nil
}

/* ListMemberIDs lists the user ids attached to a contact */
func (q *Queries) ListMemberIDs(ctx context.Context, contactID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT user_id FROM %s WHERE contact_id = ? ORDER BY user_id`, q.tables.ContactUser)

	ids := []string{}
	if err := q.selectAll(ctx, &ids, query, contactID); err != nil {
		return nil, fmt.Errorf("member id listing failed: contact_id='%s', error=%w", contactID, err)
	}
	return ids, nil
}

/* AddMember inserts a membership row; an existing pair is left untouched and reports false */
func (q *Queries) AddMember(ctx context.Context, contactID, userID string, isApprover bool) (bool, error) {
	ts := now()
	query := fmt.Sprintf(`
		INSERT INTO %s (contact_id, user_id, is_approver, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (contact_id, user_id) DO NOTHING`, q.tables.ContactUser)

	rows, err := q.exec(ctx, query, contactID, userID, isApprover, ts, ts)
	if err != nil {
		return false, fmt.Errorf("member insert failed: contact_id='%s', user_id='%s', error=%w", contactID, userID, err)
	}
	return rows > 0, nil
}

/* SetMemberApprover updates the approver flag of an existing membership */
func (q *Queries) SetMemberApprover(ctx context.Context, contactID, userID string, isApprover bool) error {
	query := fmt.Sprintf(`UPDATE %s SET is_approver = ?, updated_at = ? WHERE contact_id = ? AND user_id = ?`,
		q.tables.ContactUser)

	rows, err := q.exec(ctx, query, isApprover, now(), contactID, userID)
	if err != nil {
		return fmt.Errorf("approver update failed: contact_id='%s', user_id='%s', error=%w", contactID, userID, err)
	}
	if rows == 0 {
		return fmt.Errorf("member not found: contact_id='%s', user_id='%s': %w", contactID, userID, ErrNotFound)
	}
	return nil
}

/* RemoveMembers removes the listed users from a contact */
func (q *Queries) RemoveMembers(ctx context.Context, contactID string, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	query, args, err := q.in(fmt.Sprintf(`DELETE FROM %s WHERE contact_id = ? AND user_id IN (?)`, q.tables.ContactUser),
		contactID, userIDs)
	if err != nil {
		return 0, fmt.Errorf("member removal failed: contact_id='%s', error=%w", contactID, err)
	}

	rows, err := q.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("member removal failed: contact_id='%s', error=%w", contactID, err)
	}
	return rows, nil
}

/* RemoveAllMembers removes every member of a contact */
func (q *Queries) RemoveAllMembers(ctx context.Context, contactID string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE contact_id = ?`, q.tables.ContactUser)
	rows, err := q.exec(ctx, query, contactID)
	if err != nil {
		return 0, fmt.Errorf("member removal failed: contact_id='%s', error=%w", contactID, err)
	}
	return rows, nil
}

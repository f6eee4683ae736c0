/*-------------------------------------------------------------------------
 *
 * contact_queries.go
 *    Contact persistence
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/contact_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
)

/* ContactFilter narrows contact listings */
type ContactFilter struct {
	Search   string
	IsActive *bool
	Page
}

/* CreateContact inserts a contact, assigning id and timestamps */
func (q *Queries) CreateContact(ctx context.Context, contact *Contact) error {
	if contact.ID == "" {
		contact.ID = newID()
	}
	ts := now()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = ts
	}
	contact.UpdatedAt = ts

	query := fmt.Sprintf(`INSERT INTO %s (id, name, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		q.tables.Contacts)
	if _, err := q.exec(ctx, query, contact.ID, contact.Name, contact.IsActive, contact.CreatedAt, contact.UpdatedAt); err != nil {
		return fmt.Errorf("contact creation failed: name='%s', error=%w", contact.Name, err)
	}
	return nil
}

/* GetContact gets a contact by id */
func (q *Queries) GetContact(ctx context.Context, id string) (*Contact, error) {
	var contact Contact
	query := fmt.Sprintf(`SELECT id, name, is_active, created_at, updated_at FROM %s WHERE id = ?`, q.tables.Contacts)
	if err := q.get(ctx, &contact, query, id); err != nil {
		return nil, notFound("contact", id, err)
	}
	return &contact, nil
}

/* UpdateContact updates name and active flag */
func (q *Queries) UpdateContact(ctx context.Context, contact *Contact) error {
	contact.UpdatedAt = now()
	query := fmt.Sprintf(`UPDATE %s SET name = ?, is_active = ?, updated_at = ? WHERE id = ?`, q.tables.Contacts)
	rows, err := q.exec(ctx, query, contact.Name, contact.IsActive, contact.UpdatedAt, contact.ID)
	if err != nil {
		return fmt.Errorf("contact update failed: id='%s', error=%w", contact.ID, err)
	}
	if rows == 0 {
		return fmt.Errorf("contact not found: id='%s': %w", contact.ID, ErrNotFound)
	}
	return nil
}

/* DeleteContact deletes a contact; memberships and approvals cascade */
func (q *Queries) DeleteContact(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, q.tables.Contacts)
	rows, err := q.exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("contact deletion failed: id='%s', error=%w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("contact not found: id='%s': %w", id, ErrNotFound)
	}
	return nil
}

func (q *Queries) contactConditions(filter ContactFilter) ([]string, []interface{}) {
	var conds []string
	var args []interface{}
	if filter.Search != "" {
		conds = append(conds, "LOWER(c.name) LIKE ?")
		args = append(args, likePattern(filter.Search))
	}
	if filter.IsActive != nil {
		conds = append(conds, "c.is_active = ?")
		args = append(args, *filter.IsActive)
	}
	return conds, args
}

/* ListContacts lists contacts with member, approver and approval counts */
func (q *Queries) ListContacts(ctx context.Context, filter ContactFilter) ([]Contact, error) {
	t := q.tables
	conds, args := q.contactConditions(filter)
	query := fmt.Sprintf(`
		SELECT c.id, c.name, c.is_active, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM %[2]s cu WHERE cu.contact_id = c.id) AS member_count,
			(SELECT COUNT(*) FROM %[2]s cu WHERE cu.contact_id = c.id AND cu.is_approver = TRUE) AS approver_count,
			(SELECT COUNT(*) FROM %[3]s a WHERE a.contact_id = c.id) AS approval_count
		FROM %[1]s c`, t.Contacts, t.ContactUser, t.Approvals) +
		where(conds) + " ORDER BY c.created_at DESC, c.id DESC" + filter.clause()

	contacts := []Contact{}
	if err := q.selectAll(ctx, &contacts, query, args...); err != nil {
		return nil, fmt.Errorf("contact listing failed: %w", err)
	}
	return contacts, nil
}

/* CountContacts counts contacts matching the filter, ignoring paging */
func (q *Queries) CountContacts(ctx context.Context, filter ContactFilter) (int, error) {
	conds, args := q.contactConditions(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s c`, q.tables.Contacts) + where(conds)

	var count int
	if err := q.get(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("contact count failed: %w", err)
	}
	return count, nil
}

/*-------------------------------------------------------------------------
 *
 * record_queries.go
 *    Approval record persistence
 *
 * Records are append-only: there is no update or delete.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/record_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
)

/* RecordFilter narrows approval record listings; Status accepts approved or rejected */
type RecordFilter struct {
	ApprovalID string
	UserID     string
	Status     ApprovalStatus
	Search     string
	Page
}

func (q *Queries) recordSelect() string {
	t := q.tables
	return fmt.Sprintf(`
		SELECT r.id, r.approval_id, r.user_id, r.is_approved, r.comment, r.created_at, r.updated_at,
			COALESCE(u.%[4]s, '') AS user_name,
			COALESCE(a.approvable_type, '') AS approvable_type,
			COALESCE(a.approvable_id, '') AS approvable_id
		FROM %[1]s r
		LEFT JOIN %[2]s a ON a.id = r.approval_id
		LEFT JOIN %[3]s u ON u.id = r.user_id`, t.ApprovalRecords, t.Approvals, t.Users, t.UserName)
}

func (q *Queries) recordConditions(filter RecordFilter) ([]string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.ApprovalID != "" {
		conds = append(conds, "r.approval_id = ?")
		args = append(args, filter.ApprovalID)
	}
	if filter.UserID != "" {
		conds = append(conds, "r.user_id = ?")
		args = append(args, filter.UserID)
	}
	switch filter.Status {
	case StatusApproved:
		conds = append(conds, "r.is_approved = TRUE")
	case StatusRejected:
		conds = append(conds, "r.is_approved = FALSE")
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		conds = append(conds, fmt.Sprintf("(LOWER(COALESCE(r.comment, '')) LIKE ? OR LOWER(COALESCE(u.%s, '')) LIKE ?)", q.tables.UserName))
		args = append(args, pattern, pattern)
	}
	return conds, args
}

/* CreateApprovalRecord appends a decision */
func (q *Queries) CreateApprovalRecord(ctx context.Context, record *ApprovalRecord) error {
	if record.ID == "" {
		record.ID = newID()
	}
	ts := now()
	record.CreatedAt = ts
	record.UpdatedAt = ts

	query := fmt.Sprintf(`
		INSERT INTO %s (id, approval_id, user_id, is_approved, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, q.tables.ApprovalRecords)

	if _, err := q.exec(ctx, query, record.ID, record.ApprovalID, record.UserID, record.IsApproved,
		record.Comment, record.CreatedAt, record.UpdatedAt); err != nil {
		return fmt.Errorf("approval record creation failed: approval_id='%s', user_id='%s', error=%w",
			record.ApprovalID, record.UserID, err)
	}
	return nil
}

/* ListRecordsForApproval lists an approval's decisions in the order they were recorded */
func (q *Queries) ListRecordsForApproval(ctx context.Context, approvalID string) ([]ApprovalRecord, error) {
	query := q.recordSelect() + " WHERE r.approval_id = ? ORDER BY r.created_at, r.id"

	records := []ApprovalRecord{}
	if err := q.selectAll(ctx, &records, query, approvalID); err != nil {
		return nil, fmt.Errorf("approval record listing failed: approval_id='%s', error=%w", approvalID, err)
	}
	return records, nil
}

/* ListApprovalRecords lists decisions newest first */
func (q *Queries) ListApprovalRecords(ctx context.Context, filter RecordFilter) ([]ApprovalRecord, error) {
	conds, args := q.recordConditions(filter)
	query := q.recordSelect() + where(conds) + " ORDER BY r.created_at DESC, r.id DESC" + filter.clause()

	records := []ApprovalRecord{}
	if err := q.selectAll(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("approval record listing failed: %w", err)
	}
	return records, nil
}

/* CountApprovalRecords counts decisions matching the filter, ignoring paging */
func (q *Queries) CountApprovalRecords(ctx context.Context, filter RecordFilter) (int, error) {
	conds, args := q.recordConditions(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s r LEFT JOIN %s u ON u.id = r.user_id`,
		q.tables.ApprovalRecords, q.tables.Users) + where(conds)

	var count int
	if err := q.get(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("approval record count failed: %w", err)
	}
	return count, nil
}

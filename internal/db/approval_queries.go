/*-------------------------------------------------------------------------
 *
 * approval_queries.go
 *    Approval persistence and status-filtered listings
 *
 * Status is derived from approval_records in every query; pending_key only
 * guards against a second pending approval for the same subject.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/approval_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

/* ApprovalFilter narrows approval listings */
type ApprovalFilter struct {
	Status         ApprovalStatus
	Search         string
	ContactID      string
	ApprovableType string
	ApprovableID   string
	Page
}

func (q *Queries) approvalSelect() string {
	t := q.tables
	return fmt.Sprintf(`
		SELECT a.id, a.approvable_type, a.approvable_id, a.contact_id, a.pending_key, a.created_at, a.updated_at,
			COALESCE(c.name, '') AS contact_name,
			(SELECT COUNT(*) FROM %[3]s r WHERE r.approval_id = a.id) AS record_count,
			(SELECT COUNT(*) FROM %[3]s r WHERE r.approval_id = a.id AND r.is_approved = TRUE) AS approved_count
		FROM %[1]s a
		LEFT JOIN %[2]s c ON c.id = a.contact_id`, t.Approvals, t.Contacts, t.ApprovalRecords)
}

func (q *Queries) statusCondition(status ApprovalStatus) string {
	records := q.tables.ApprovalRecords
	anyRecord := fmt.Sprintf(`EXISTS (SELECT 1 FROM %s r WHERE r.approval_id = a.id)`, records)
	anyApproved := fmt.Sprintf(`EXISTS (SELECT 1 FROM %s r WHERE r.approval_id = a.id AND r.is_approved = TRUE)`, records)

	switch status {
	case StatusPending:
		return "NOT " + anyRecord
	case StatusApproved:
		return anyApproved
	case StatusRejected:
		return anyRecord + " AND NOT " + anyApproved
	}
	return ""
}

func (q *Queries) approvalConditions(filter ApprovalFilter) ([]string, []interface{}) {
	var conds []string
	var args []interface{}

	if cond := q.statusCondition(filter.Status); cond != "" {
		conds = append(conds, cond)
	}
	if filter.ContactID != "" {
		conds = append(conds, "a.contact_id = ?")
		args = append(args, filter.ContactID)
	}
	if filter.ApprovableType != "" {
		conds = append(conds, "a.approvable_type = ?")
		args = append(args, filter.ApprovableType)
	}
	if filter.ApprovableID != "" {
		conds = append(conds, "a.approvable_id = ?")
		args = append(args, filter.ApprovableID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		conds = append(conds, "(LOWER(a.approvable_type) LIKE ? OR LOWER(a.approvable_id) LIKE ? OR LOWER(COALESCE(c.name, '')) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	return conds, args
}

/* CreatePendingApproval inserts a pending approval unless the subject already has one */
func (q *Queries) CreatePendingApproval(ctx context.Context, approval *Approval) (bool, error) {
	if approval.ID == "" {
		approval.ID = newID()
	}
	ts := now()
	approval.CreatedAt = ts
	approval.UpdatedAt = ts
	key := PendingKeyFor(approval.ApprovableType, approval.ApprovableID)
	approval.PendingKey = &key

	query := fmt.Sprintf(`
		INSERT INTO %s (id, approvable_type, approvable_id, contact_id, pending_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pending_key) DO NOTHING`, q.tables.Approvals)

	rows, err := q.exec(ctx, query, approval.ID, approval.ApprovableType, approval.ApprovableID,
		approval.ContactID, key, approval.CreatedAt, approval.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("approval creation failed: approvable='%s', contact_id='%s', error=%w",
			key, approval.ContactID, err)
	}
	return rows > 0, nil
}

/* GetApproval gets an approval with derived counts */
func (q *Queries) GetApproval(ctx context.Context, id string) (*Approval, error) {
	var approval Approval
	if err := q.get(ctx, &approval, q.approvalSelect()+" WHERE a.id = ?", id); err != nil {
		return nil, notFound("approval", id, err)
	}
	return &approval, nil
}

func (q *Queries) latestForSubject(ctx context.Context, approvableType, approvableID string, pendingOnly bool) (*Approval, error) {
	conds := []string{"a.approvable_type = ?", "a.approvable_id = ?"}
	if pendingOnly {
		conds = append(conds, q.statusCondition(StatusPending))
	}
	query := q.approvalSelect() + where(conds) + " ORDER BY a.created_at DESC, a.id DESC LIMIT 1"

	var approval Approval
	if err := q.get(ctx, &approval, query, approvableType, approvableID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("approval lookup failed: approvable='%s', error=%w",
			PendingKeyFor(approvableType, approvableID), err)
	}
	return &approval, nil
}

/* GetPendingApprovalForSubject returns the most recent zero-record approval, or nil */
func (q *Queries) GetPendingApprovalForSubject(ctx context.Context, approvableType, approvableID string) (*Approval, error) {
	return q.latestForSubject(ctx, approvableType, approvableID, true)
}

/* GetLatestApprovalForSubject returns the most recent approval regardless of status, or nil */
func (q *Queries) GetLatestApprovalForSubject(ctx context.Context, approvableType, approvableID string) (*Approval, error) {
	return q.latestForSubject(ctx, approvableType, approvableID, false)
}

/* ClearPendingKey releases the subject's pending slot once a decision exists */
func (q *Queries) ClearPendingKey(ctx context.Context, approvalID string) error {
	query := fmt.Sprintf(`UPDATE %s SET pending_key = NULL, updated_at = ? WHERE id = ?`, q.tables.Approvals)
	if _, err := q.exec(ctx, query, now(), approvalID); err != nil {
		return fmt.Errorf("pending key release failed: approval_id='%s', error=%w", approvalID, err)
	}
	return nil
}

/* ListApprovals lists approvals newest first */
func (q *Queries) ListApprovals(ctx context.Context, filter ApprovalFilter) ([]Approval, error) {
	conds, args := q.approvalConditions(filter)
	query := q.approvalSelect() + where(conds) + " ORDER BY a.created_at DESC, a.id DESC" + filter.clause()

	approvals := []Approval{}
	if err := q.selectAll(ctx, &approvals, query, args...); err != nil {
		return nil, fmt.Errorf("approval listing failed: %w", err)
	}
	return approvals, nil
}

/* CountApprovals counts approvals matching the filter, ignoring paging */
func (q *Queries) CountApprovals(ctx context.Context, filter ApprovalFilter) (int, error) {
	conds, args := q.approvalConditions(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s a LEFT JOIN %s c ON c.id = a.contact_id`,
		q.tables.Approvals, q.tables.Contacts) + where(conds)

	var count int
	if err := q.get(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("approval count failed: %w", err)
	}
	return count, nil
}

/* CountApprovalsByStatus returns the number of approvals in each derived status */
func (q *Queries) CountApprovalsByStatus(ctx context.Context) (map[ApprovalStatus]int, error) {
	counts := make(map[ApprovalStatus]int, 3)
	for _, status := range []ApprovalStatus{StatusPending, StatusApproved, StatusRejected} {
		n, err := q.CountApprovals(ctx, ApprovalFilter{Status: status})
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}

/* ListPendingApprovalsForApprover lists zero-record approvals on contacts where userID is an approver */
func (q *Queries) ListPendingApprovalsForApprover(ctx context.Context, userID string) ([]Approval, error) {
	conds := []string{
		q.statusCondition(StatusPending),
		fmt.Sprintf(`EXISTS (SELECT 1 FROM %s cu WHERE cu.contact_id = a.contact_id AND cu.user_id = ? AND cu.is_approver = TRUE)`,
			q.tables.ContactUser),
	}
	query := q.approvalSelect() + where(conds) + " ORDER BY a.created_at DESC, a.id DESC"

	approvals := []Approval{}
	if err := q.selectAll(ctx, &approvals, query, userID); err != nil {
		return nil, fmt.Errorf("pending approval listing failed: user_id='%s', error=%w", userID, err)
	}
	return approvals, nil
}

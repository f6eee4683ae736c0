/*-------------------------------------------------------------------------
 *
 * capability.go
 *    Approval requests and status queries for Approvable subjects
 *
 * A subject holds at most one pending approval. An existing zero-record
 * approval is looked up first; the unique pending_key column makes
 * concurrent requests for one subject converge on a single row.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/approval/capability.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"fmt"

	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/events"
	"github.com/neurondb/NeuronApprovals/internal/metrics"
)

const requestAttempts = 3

/* RequestApproval returns the subject's pending approval, creating one under contact if none exists */
func (m *Manager) RequestApproval(ctx context.Context, subject Approvable, ref ContactRef) (*db.Approval, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	contact, err := m.resolveContact(ctx, ref)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < requestAttempts; attempt++ {
		var (
			approval *db.Approval
			created  bool
		)
		err := m.queries.WithTx(ctx, func(tx *db.Queries) error {
			/* A pending approval can lose its pending_key when its only deciding user is deleted */
			existing, err := tx.GetPendingApprovalForSubject(ctx, subject.ApprovableType(), subject.ApprovableID())
			if err != nil || existing != nil {
				approval = existing
				return err
			}

			candidate := &db.Approval{
				ApprovableType: subject.ApprovableType(),
				ApprovableID:   subject.ApprovableID(),
				ContactID:      contact.ID,
				ContactName:    contact.Name,
			}
			created, err = tx.CreatePendingApproval(ctx, candidate)
			if err != nil {
				return err
			}
			if created {
				approval = candidate
				return nil
			}
			approval, err = tx.GetPendingApprovalForSubject(ctx, candidate.ApprovableType, candidate.ApprovableID)
			return err
		})
		if err != nil {
			return nil, err
		}
		if approval == nil {
			/* The pending approval was decided between the insert and the lookup; try again */
			continue
		}
		if !created {
			metrics.RecordApprovalRequested(approval.ApprovableType, false)
			return approval, nil
		}

		metrics.RecordApprovalRequested(approval.ApprovableType, true)
		m.emit(ctx, events.EventApprovalRequested, map[string]interface{}{
			"approval_id":     approval.ID,
			"approvable_type": approval.ApprovableType,
			"approvable_id":   approval.ApprovableID,
			"contact_id":      contact.ID,
			"contact_name":    contact.Name,
		})
		m.notifyApprovers(ctx, approval, nil)
		m.logger.WithContext(ctx).Info("Approval requested", map[string]interface{}{
			"approval_id":     approval.ID,
			"approvable_type": approval.ApprovableType,
			"approvable_id":   approval.ApprovableID,
			"contact_id":      contact.ID,
		})
		return approval, nil
	}

	return nil, fmt.Errorf("approval request did not settle after %d attempts: approvable='%s'",
		requestAttempts, db.PendingKeyFor(subject.ApprovableType(), subject.ApprovableID()))
}

/* HasPendingApproval returns the subject's most recent zero-record approval, or nil */
func (m *Manager) HasPendingApproval(ctx context.Context, subject Approvable) (*db.Approval, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	return m.queries.GetPendingApprovalForSubject(ctx, subject.ApprovableType(), subject.ApprovableID())
}

/* LatestApproval returns the subject's most recent approval regardless of status, or nil */
func (m *Manager) LatestApproval(ctx context.Context, subject Approvable) (*db.Approval, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	return m.queries.GetLatestApprovalForSubject(ctx, subject.ApprovableType(), subject.ApprovableID())
}

/* GetApprovalStatus returns the status of the latest approval; ok is false when none exists */
func (m *Manager) GetApprovalStatus(ctx context.Context, subject Approvable) (db.ApprovalStatus, bool, error) {
	latest, err := m.LatestApproval(ctx, subject)
	if err != nil || latest == nil {
		return "", false, err
	}
	return latest.Status(), true, nil
}

/* CreateContactWithUsers creates a contact, attaches users when given and returns it with members loaded */
func (m *Manager) CreateContactWithUsers(ctx context.Context, name string, users UserSet, isActive, markAsApprover bool) (*db.Contact, error) {
	if users != nil {
		if _, err := users.Normalize(markAsApprover); err != nil {
			return nil, err
		}
	}

	contact, err := m.CreateContact(ctx, ContactInput{Name: &name, IsActive: &isActive})
	if err != nil {
		return nil, err
	}
	if users != nil {
		if _, err := m.AttachUsers(ctx, ContactID(contact.ID), users, markAsApprover); err != nil {
			return nil, err
		}
	}
	return m.GetContact(ctx, ContactID(contact.ID))
}

/*-------------------------------------------------------------------------
 *
 * manager.go
 *    Approval workflow manager
 *
 * Orchestrates contact CRUD, membership management and approve/reject
 * decisions, and fires events and notifications after each change.
 * Events and notifications are best effort: their failures are logged and
 * never undo a committed write.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/approval/manager.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"strings"

	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/events"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/metrics"
	"github.com/neurondb/NeuronApprovals/internal/validation"
)

/* EventPublisher receives workflow events */
type EventPublisher interface {
	Publish(ctx context.Context, eventType events.EventType, source string, data map[string]interface{}) error
}

/* Notifier delivers approval notifications to a contact's approvers */
type Notifier interface {
	NotifyApprovalRequested(ctx context.Context, recipients []db.User, approval *db.Approval) error
	NotifyApprovalDecided(ctx context.Context, recipients []db.User, approval *db.Approval, record *db.ApprovalRecord) error
}

/* Options are the feature switches fixed at construction time */
type Options struct {
	EventsEnabled        bool
	EventTypes           map[events.EventType]bool
	NotificationsEnabled bool
	Source               string
}

/* OptionsFromConfig builds manager options from configuration */
func OptionsFromConfig(cfg *config.Config) Options {
	types := make(map[events.EventType]bool, len(cfg.Events.Dispatch))
	for name, enabled := range cfg.Events.Dispatch {
		types[events.EventType(name)] = enabled
	}
	return Options{
		EventsEnabled:        cfg.Events.Enabled,
		EventTypes:           types,
		NotificationsEnabled: cfg.Notifications.Enabled,
		Source:               "approvals",
	}
}

/* Manager is the approval workflow facade */
type Manager struct {
	queries   *db.Queries
	publisher EventPublisher
	notifier  Notifier
	subjects  *SubjectRegistry
	opts      Options
	logger    *logging.Logger
}

/* NewManager creates a manager; publisher, notifier and registry may be nil */
func NewManager(queries *db.Queries, publisher EventPublisher, notifier Notifier, subjects *SubjectRegistry, opts Options, logger *logging.Logger) *Manager {
	if subjects == nil {
		subjects = NewSubjectRegistry()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Source == "" {
		opts.Source = "approvals"
	}
	return &Manager{
		queries:   queries,
		publisher: publisher,
		notifier:  notifier,
		subjects:  subjects,
		opts:      opts,
		logger:    logger,
	}
}

/* Subjects returns the subject registry */
func (m *Manager) Subjects() *SubjectRegistry {
	return m.subjects
}

/* Queries returns the query layer */
func (m *Manager) Queries() *db.Queries {
	return m.queries
}

/* eventEnabled applies the global and per-type switches; unknown types default on */
func (m *Manager) eventEnabled(eventType events.EventType) bool {
	if !m.opts.EventsEnabled || m.publisher == nil {
		return false
	}
	enabled, ok := m.opts.EventTypes[eventType]
	return !ok || enabled
}

func (m *Manager) emit(ctx context.Context, eventType events.EventType, data map[string]interface{}) {
	if !m.eventEnabled(eventType) {
		return
	}
	if err := m.publisher.Publish(ctx, eventType, m.opts.Source, data); err != nil {
		m.logger.WithContext(ctx).Error("Event publish failed", err, map[string]interface{}{
			"event_type": string(eventType),
		})
	}
}

func (m *Manager) notifyApprovers(ctx context.Context, approval *db.Approval, record *db.ApprovalRecord) {
	if !m.opts.NotificationsEnabled || m.notifier == nil {
		return
	}

	approvers, err := m.queries.ListApprovers(ctx, approval.ContactID)
	if err != nil {
		m.logger.WithContext(ctx).Error("Approver lookup for notification failed", err, map[string]interface{}{
			"approval_id": approval.ID,
			"contact_id":  approval.ContactID,
		})
		return
	}
	if len(approvers) == 0 {
		return
	}

	if record == nil {
		err = m.notifier.NotifyApprovalRequested(ctx, approvers, approval)
	} else {
		err = m.notifier.NotifyApprovalDecided(ctx, approvers, approval, record)
	}
	if err != nil {
		m.logger.WithContext(ctx).Error("Approval notification failed", err, map[string]interface{}{
			"approval_id": approval.ID,
			"recipients":  len(approvers),
		})
	}
}

/* Approve records an approving decision; comment is optional */
func (m *Manager) Approve(ctx context.Context, approvalID, userID string, comment *string) (*db.ApprovalRecord, error) {
	if comment != nil && strings.TrimSpace(*comment) == "" {
		comment = nil
	}
	return m.decide(ctx, approvalID, userID, true, comment)
}

/* Reject records a rejecting decision; comment is required */
func (m *Manager) Reject(ctx context.Context, approvalID, userID, comment string) (*db.ApprovalRecord, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, invalid("comment", "comment is required when rejecting")
	}
	return m.decide(ctx, approvalID, userID, false, &comment)
}

func (m *Manager) decide(ctx context.Context, approvalID, userID string, approved bool, comment *string) (*db.ApprovalRecord, error) {
	if err := validation.ValidateRequired(approvalID, "approval_id"); err != nil {
		return nil, err
	}
	if err := validation.ValidateRequired(userID, "user_id"); err != nil {
		return nil, err
	}
	if err := checkID("approval", approvalID); err != nil {
		return nil, err
	}

	record := &db.ApprovalRecord{
		ApprovalID: approvalID,
		UserID:     userID,
		IsApproved: approved,
		Comment:    comment,
	}

	err := m.queries.WithTx(ctx, func(tx *db.Queries) error {
		if _, err := tx.GetApproval(ctx, approvalID); err != nil {
			return err
		}
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		record.UserName = user.Name
		if err := tx.CreateApprovalRecord(ctx, record); err != nil {
			return err
		}
		return tx.ClearPendingKey(ctx, approvalID)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision(string(record.Decision()))

	approval, err := m.queries.GetApproval(ctx, approvalID)
	if err != nil {
		/* The decision is committed; report it even if the reload failed */
		m.logger.WithContext(ctx).Error("Approval reload after decision failed", err, map[string]interface{}{
			"approval_id": approvalID,
		})
		return record, nil
	}

	eventType := events.EventApprovalRejected
	if approved {
		eventType = events.EventApprovalApproved
	}
	m.emit(ctx, eventType, map[string]interface{}{
		"approval_id":        approval.ID,
		"approval_record_id": record.ID,
		"approvable_type":    approval.ApprovableType,
		"approvable_id":      approval.ApprovableID,
		"contact_id":         approval.ContactID,
		"user_id":            record.UserID,
		"is_approved":        record.IsApproved,
		"comment":            stringValue(record.Comment),
		"status":             string(approval.Status()),
	})

	m.notifyApprovers(ctx, approval, record)

	m.logger.WithContext(ctx).Info("Approval decision recorded", map[string]interface{}{
		"approval_id": approval.ID,
		"user_id":     userID,
		"decision":    string(record.Decision()),
		"status":      string(approval.Status()),
	})
	return record, nil
}

/* PendingApproval is a pending approval with its subject and contact resolved */
type PendingApproval struct {
	Approval db.Approval `json:"approval"`
	Subject  Approvable  `json:"subject"`
	Contact  *db.Contact `json:"contact"`
}

/* GetPendingApprovals lists zero-record approvals on every contact where userID is an approver */
func (m *Manager) GetPendingApprovals(ctx context.Context, userID string) ([]PendingApproval, error) {
	if err := validation.ValidateRequired(userID, "user_id"); err != nil {
		return nil, err
	}

	approvals, err := m.queries.ListPendingApprovalsForApprover(ctx, userID)
	if err != nil {
		return nil, err
	}

	contacts := make(map[string]*db.Contact)
	pending := make([]PendingApproval, 0, len(approvals))
	for _, a := range approvals {
		contact, ok := contacts[a.ContactID]
		if !ok {
			contact, err = m.queries.GetContact(ctx, a.ContactID)
			if err != nil {
				return nil, err
			}
			contacts[a.ContactID] = contact
		}

		pending = append(pending, PendingApproval{
			Approval: a,
			Subject:  m.resolveSubject(ctx, a.ApprovableType, a.ApprovableID),
			Contact:  contact,
		})
	}
	return pending, nil
}

/* ApprovalDetail is an approval with records, subject and contact loaded */
type ApprovalDetail struct {
	Approval *db.Approval `json:"approval"`
	Subject  Approvable   `json:"subject"`
	Contact  *db.Contact  `json:"contact"`
}

/* GetApproval loads one approval with its records, subject and contact */
func (m *Manager) GetApproval(ctx context.Context, approvalID string) (*ApprovalDetail, error) {
	if err := checkID("approval", approvalID); err != nil {
		return nil, err
	}
	approval, err := m.queries.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	approval.Records, err = m.queries.ListRecordsForApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	contact, err := m.queries.GetContact(ctx, approval.ContactID)
	if err != nil {
		return nil, err
	}
	return &ApprovalDetail{
		Approval: approval,
		Subject:  m.resolveSubject(ctx, approval.ApprovableType, approval.ApprovableID),
		Contact:  contact,
	}, nil
}

/* resolveSubject never fails: a loader error degrades to a bare reference */
func (m *Manager) resolveSubject(ctx context.Context, kind, id string) Approvable {
	subject, err := m.subjects.Resolve(ctx, kind, id)
	if err != nil || subject == nil {
		if err != nil {
			m.logger.WithContext(ctx).Warn("Subject resolution failed", map[string]interface{}{
				"approvable_type": kind,
				"approvable_id":   id,
				"error":           err.Error(),
			})
		}
		return SubjectRef{Type: kind, ID: id}
	}
	return subject
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

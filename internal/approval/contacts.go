/*-------------------------------------------------------------------------
 *
 * contacts.go
 *    Contact CRUD and membership management
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/approval/contacts.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"fmt"
	"strings"

	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/events"
	"github.com/neurondb/NeuronApprovals/internal/validation"
)

/* ContactRef identifies a contact either by id or by a loaded *db.Contact */
type ContactRef interface {
	GetID() string
}

/* ContactID references a contact by identifier */
type ContactID string

func (id ContactID) GetID() string { return string(id) }

/* ContactInput holds contact fields; nil fields are left unchanged on update */
type ContactInput struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

/* SyncResult reports the membership changes made by attach or sync */
type SyncResult struct {
	Attached []string `json:"attached"`
	Detached []string `json:"detached"`
	Updated  []string `json:"updated"`
}

func (m *Manager) resolveContact(ctx context.Context, ref ContactRef) (*db.Contact, error) {
	if ref == nil {
		return nil, invalid("contact", "contact is required")
	}
	id := strings.TrimSpace(ref.GetID())
	if id == "" {
		return nil, invalid("contact", "contact id is required")
	}
	if err := checkID("contact", id); err != nil {
		return nil, err
	}
	return m.queries.GetContact(ctx, id)
}

func contactEventData(c *db.Contact) map[string]interface{} {
	return map[string]interface{}{
		"contact_id": c.ID,
		"name":       c.Name,
		"is_active":  c.IsActive,
	}
}

/* CreateContact creates a contact and emits contact.created */
func (m *Manager) CreateContact(ctx context.Context, input ContactInput) (*db.Contact, error) {
	if input.Name == nil {
		return nil, invalid("name", "name is required")
	}
	if err := validation.ValidateRequired(*input.Name, "name"); err != nil {
		return nil, err
	}

	contact := &db.Contact{Name: strings.TrimSpace(*input.Name), IsActive: true}
	if input.IsActive != nil {
		contact.IsActive = *input.IsActive
	}
	if err := m.queries.CreateContact(ctx, contact); err != nil {
		return nil, err
	}

	m.emit(ctx, events.EventContactCreated, contactEventData(contact))
	m.logger.WithContext(ctx).Info("Contact created", map[string]interface{}{"contact_id": contact.ID, "name": contact.Name})
	return contact, nil
}

/* UpdateContact applies the non-nil fields of input and emits contact.updated */
func (m *Manager) UpdateContact(ctx context.Context, ref ContactRef, input ContactInput) (*db.Contact, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, invalid("name", "name cannot be empty")
	}

	contact, err := m.resolveContact(ctx, ref)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		contact.Name = strings.TrimSpace(*input.Name)
	}
	if input.IsActive != nil {
		contact.IsActive = *input.IsActive
	}
	if err := m.queries.UpdateContact(ctx, contact); err != nil {
		return nil, err
	}

	m.emit(ctx, events.EventContactUpdated, contactEventData(contact))
	return contact, nil
}

/* DeleteContact deletes a contact with its memberships and approvals and emits contact.deleted */
func (m *Manager) DeleteContact(ctx context.Context, ref ContactRef) error {
	contact, err := m.resolveContact(ctx, ref)
	if err != nil {
		return err
	}
	if err := m.queries.DeleteContact(ctx, contact.ID); err != nil {
		return err
	}

	m.emit(ctx, events.EventContactDeleted, contactEventData(contact))
	m.logger.WithContext(ctx).Info("Contact deleted", map[string]interface{}{"contact_id": contact.ID})
	return nil
}

/* GetContact loads a contact with its members */
func (m *Manager) GetContact(ctx context.Context, ref ContactRef) (*db.Contact, error) {
	contact, err := m.resolveContact(ctx, ref)
	if err != nil {
		return nil, err
	}
	contact.Members, err = m.queries.ListContactMembers(ctx, contact.ID)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

/* ListContacts lists contacts and the unpaged total */
func (m *Manager) ListContacts(ctx context.Context, filter db.ContactFilter) ([]db.Contact, int, error) {
	contacts, err := m.queries.ListContacts(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := m.queries.CountContacts(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

/* ensureUsersExist fails with ErrNotFound naming the first unknown user */
func ensureUsersExist(ctx context.Context, q *db.Queries, memberships []Membership) error {
	ids := make([]string, 0, len(memberships))
	for _, ms := range memberships {
		ids = append(ids, ms.UserID)
	}
	users, err := q.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(users))
	for _, u := range users {
		found[u.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return fmt.Errorf("user not found: id='%s': %w", id, ErrNotFound)
		}
	}
	return nil
}

/* AttachUsers adds users without detaching anyone; existing members keep their approver flag */
func (m *Manager) AttachUsers(ctx context.Context, ref ContactRef, users UserSet, markAsApprover bool) (*SyncResult, error) {
	if users == nil {
		return nil, invalid("users", "users are required")
	}
	memberships, err := users.Normalize(markAsApprover)
	if err != nil {
		return nil, err
	}

	contact, err := m.resolveContact(ctx, ref)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Attached: []string{}, Detached: []string{}, Updated: []string{}}
	err = m.queries.WithTx(ctx, func(tx *db.Queries) error {
		if err := ensureUsersExist(ctx, tx, memberships); err != nil {
			return err
		}
		for _, ms := range memberships {
			inserted, err := tx.AddMember(ctx, contact.ID, ms.UserID, ms.IsApprover)
			if err != nil {
				return err
			}
			if inserted {
				result.Attached = append(result.Attached, ms.UserID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

/* SyncUsers makes the membership exactly the given set, mirroring each approver flag */
func (m *Manager) SyncUsers(ctx context.Context, ref ContactRef, users UserSet, markAsApprover bool) (*SyncResult, error) {
	memberships := []Membership{}
	if users != nil {
		var err error
		memberships, err = users.Normalize(markAsApprover)
		if err != nil {
			return nil, err
		}
	}

	contact, err := m.resolveContact(ctx, ref)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Attached: []string{}, Detached: []string{}, Updated: []string{}}
	err = m.queries.WithTx(ctx, func(tx *db.Queries) error {
		if err := ensureUsersExist(ctx, tx, memberships); err != nil {
			return err
		}

		current, err := tx.ListContactMembers(ctx, contact.ID)
		if err != nil {
			return err
		}
		existing := make(map[string]db.ContactMember, len(current))
		for _, member := range current {
			existing[member.UserID] = member
		}

		desired := make(map[string]bool, len(memberships))
		for _, ms := range memberships {
			desired[ms.UserID] = true
		}

		var detach []string
		for _, member := range current {
			if !desired[member.UserID] {
				detach = append(detach, member.UserID)
			}
		}
		if _, err := tx.RemoveMembers(ctx, contact.ID, detach); err != nil {
			return err
		}
		result.Detached = append(result.Detached, detach...)

		for _, ms := range memberships {
			member, ok := existing[ms.UserID]
			switch {
			case !ok:
				if _, err := tx.AddMember(ctx, contact.ID, ms.UserID, ms.IsApprover); err != nil {
					return err
				}
				result.Attached = append(result.Attached, ms.UserID)
			case member.IsApprover != ms.IsApprover:
				if err := tx.SetMemberApprover(ctx, contact.ID, ms.UserID, ms.IsApprover); err != nil {
					return err
				}
				result.Updated = append(result.Updated, ms.UserID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

/* DetachUsers removes the given members, or every member when users is nil */
func (m *Manager) DetachUsers(ctx context.Context, ref ContactRef, users UserSet) (int64, error) {
	var ids []string
	if users != nil {
		memberships, err := users.Normalize(false)
		if err != nil {
			return 0, err
		}
		for _, ms := range memberships {
			ids = append(ids, ms.UserID)
		}
	}

	contact, err := m.resolveContact(ctx, ref)
	if err != nil {
		return 0, err
	}

	if users == nil {
		return m.queries.RemoveAllMembers(ctx, contact.ID)
	}
	return m.queries.RemoveMembers(ctx, contact.ID, ids)
}

/* UpdateApproverStatus flips the approver flag of an existing member */
func (m *Manager) UpdateApproverStatus(ctx context.Context, ref ContactRef, userID string, isApprover bool) error {
	if err := validation.ValidateRequired(userID, "user_id"); err != nil {
		return err
	}
	contact, err := m.resolveContact(ctx, ref)
	if err != nil {
		return err
	}
	return m.queries.SetMemberApprover(ctx, contact.ID, strings.TrimSpace(userID), isApprover)
}

/* AddUserToContact attaches users as plain members */
func (m *Manager) AddUserToContact(ctx context.Context, ref ContactRef, userIDs ...string) error {
	_, err := m.AttachUsers(ctx, ref, UserIDs(userIDs), false)
	return err
}

/* RemoveUserFromContact detaches the given users */
func (m *Manager) RemoveUserFromContact(ctx context.Context, ref ContactRef, userIDs ...string) error {
	_, err := m.DetachUsers(ctx, ref, UserIDs(userIDs))
	return err
}

/* SetApprover marks an existing member as approver */
func (m *Manager) SetApprover(ctx context.Context, ref ContactRef, userID string) error {
	return m.UpdateApproverStatus(ctx, ref, userID, true)
}

/* RemoveApprover clears the approver flag of an existing member */
func (m *Manager) RemoveApprover(ctx context.Context, ref ContactRef, userID string) error {
	return m.UpdateApproverStatus(ctx, ref, userID, false)
}

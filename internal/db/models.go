/*-------------------------------------------------------------------------
 *
 * models.go
 *    Database models for contacts, approvals and approval records
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/models.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"encoding/json"
	"errors"
	"time"
)

/* ErrNotFound is wrapped by every lookup that matches no row */
var ErrNotFound = errors.New("not found")

/* ApprovalStatus is derived from an approval's records and never stored */
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

/* ParseStatus parses a status filter value */
func ParseStatus(s string) (ApprovalStatus, bool) {
	switch ApprovalStatus(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return ApprovalStatus(s), true
	}
	return "", false
}

/* StatusFromCounts derives status from the total and approved record counts */
func StatusFromCounts(total, approved int) ApprovalStatus {
	switch {
	case total == 0:
		return StatusPending
	case approved > 0:
		return StatusApproved
	default:
		return StatusRejected
	}
}

/* DeriveStatus derives status from a loaded record list; any approval wins */
func DeriveStatus(records []ApprovalRecord) ApprovalStatus {
	approved := 0
	for _, r := range records {
		if r.IsApproved {
			approved++
		}
	}
	return StatusFromCounts(len(records), approved)
}

/* User is a row of the host application's user table */
type User struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

/* GetID returns the user identifier */
func (u *User) GetID() string {
	return u.ID
}

/* Contact is a named group of users, some of them approvers */
type Contact struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	/* Filled by list queries only */
	MemberCount   int `db:"member_count" json:"member_count"`
	ApproverCount int `db:"approver_count" json:"approver_count"`
	ApprovalCount int `db:"approval_count" json:"approval_count"`

	Members []ContactMember `db:"-" json:"members,omitempty"`
}

/* GetID returns the contact identifier */
func (c *Contact) GetID() string {
	return c.ID
}

/* Approvers returns the members flagged as approvers */
func (c *Contact) Approvers() []ContactMember {
	approvers := make([]ContactMember, 0, len(c.Members))
	for _, m := range c.Members {
		if m.IsApprover {
			approvers = append(approvers, m)
		}
	}
	return approvers
}

/* ContactMember is one contact_user pivot row joined with its user */
type ContactMember struct {
	ContactID  string    `db:"contact_id" json:"contact_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	IsApprover bool      `db:"is_approver" json:"is_approver"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

/* Approval is one approval request on a subject, addressed to a contact */
type Approval struct {
	ID             string    `db:"id" json:"id"`
	ApprovableType string    `db:"approvable_type" json:"approvable_type"`
	ApprovableID   string    `db:"approvable_id" json:"approvable_id"`
	ContactID      string    `db:"contact_id" json:"contact_id"`
	PendingKey     *string   `db:"pending_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	ContactName   string `db:"contact_name" json:"contact_name,omitempty"`
	RecordCount   int    `db:"record_count" json:"record_count"`
	ApprovedCount int    `db:"approved_count" json:"approved_count"`

	Records []ApprovalRecord `db:"-" json:"records,omitempty"`
}

/* Status derives the approval status */
func (a *Approval) Status() ApprovalStatus {
	if a.Records != nil {
		return DeriveStatus(a.Records)
	}
	return StatusFromCounts(a.RecordCount, a.ApprovedCount)
}

/* IsPending reports whether no decision has been recorded */
func (a *Approval) IsPending() bool {
	return a.Status() == StatusPending
}

/* MarshalJSON adds the derived status to the encoded approval */
func (a Approval) MarshalJSON() ([]byte, error) {
	type approvalAlias Approval
	return json.Marshal(struct {
		approvalAlias
		Status ApprovalStatus `json:"status"`
	}{approvalAlias(a), a.Status()})
}

/* PendingKeyFor builds the marker held by a subject's pending approval */
func PendingKeyFor(approvableType, approvableID string) string {
	return approvableType + ":" + approvableID
}

/* ApprovalRecord is one reviewer decision; records are append-only */
type ApprovalRecord struct {
	ID         string    `db:"id" json:"id"`
	ApprovalID string    `db:"approval_id" json:"approval_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	IsApproved bool      `db:"is_approved" json:"is_approved"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	UserName       string `db:"user_name" json:"user_name,omitempty"`
	ApprovableType string `db:"approvable_type" json:"approvable_type,omitempty"`
	ApprovableID   string `db:"approvable_id" json:"approvable_id,omitempty"`
}

/* Decision returns "approved" or "rejected" */
func (r *ApprovalRecord) Decision() ApprovalStatus {
	if r.IsApproved {
		return StatusApproved
	}
	return StatusRejected
}

/* Notification is a row written by the database notification channel */
type Notification struct {
	ID           string     `db:"id" json:"id"`
	Type         string     `db:"type" json:"type"`
	NotifiableID string     `db:"notifiable_id" json:"notifiable_id"`
	Data         string     `db:"data" json:"data"`
	ReadAt       *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

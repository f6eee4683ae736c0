/*-------------------------------------------------------------------------
 *
 * message.go
 *    Approval notification messages
 *
 * Builds the channel-neutral message for a request or a decision. Mail
 * renders the subject, lines and action; the database and webhook
 * channels store Data.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/notifications/message.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"fmt"
	"strings"

	"github.com/neurondb/NeuronApprovals/internal/approval"
	"github.com/neurondb/NeuronApprovals/internal/db"
)

/* Notification kinds, stored in the type column of the database channel */
const (
	KindApprovalRequested = "approval_requested"
	KindApprovalApproved  = "approval_approved"
	KindApprovalRejected  = "approval_rejected"
)

/* Message is one notification, rendered per channel */
type Message struct {
	Kind       string
	Subject    string
	Greeting   string
	Lines      []string
	ActionText string
	ActionURL  string
	Data       map[string]interface{}
}

/* Links builds admin interface URLs */
type Links struct {
	BaseURL string
	Route   string
}

/* Approval returns the admin detail URL of an approval */
func (l Links) Approval(id string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/" + strings.Trim(l.Route, "/") + "/approvals/" + id
}

/* RequestedMessage builds the message sent to approvers when approval is requested */
func RequestedMessage(a *db.Approval, links Links) *Message {
	subjectName := approval.SubjectName(a.ApprovableType)
	url := links.Approval(a.ID)
	text := fmt.Sprintf("A new approval has been requested for: %s", subjectName)

	lines := []string{text}
	if a.ContactName != "" {
		lines = append(lines, fmt.Sprintf("Contact: %s", a.ContactName))
	}

	return &Message{
		Kind:       KindApprovalRequested,
		Subject:    fmt.Sprintf("Approval Requested: %s", subjectName),
		Greeting:   "Hello!",
		Lines:      lines,
		ActionText: "View Approval",
		ActionURL:  url,
		Data: map[string]interface{}{
			"approval_id":     a.ID,
			"approvable_type": a.ApprovableType,
			"approvable_id":   a.ApprovableID,
			"contact_name":    a.ContactName,
			"message":         text,
			"url":             url,
		},
	}
}

/* DecidedMessage builds the message sent after an approve or reject decision */
func DecidedMessage(a *db.Approval, record *db.ApprovalRecord, links Links) *Message {
	subjectName := approval.SubjectName(a.ApprovableType)
	url := links.Approval(a.ID)

	kind, verb, byKey := KindApprovalRejected, "Rejected", "rejected_by"
	if record.IsApproved {
		kind, verb, byKey = KindApprovalApproved, "Approved", "approved_by"
	}

	reviewer := record.UserName
	if reviewer == "" {
		reviewer = record.UserID
	}
	text := fmt.Sprintf("Your approval request has been %s.", strings.ToLower(verb))

	lines := []string{text, fmt.Sprintf("%s by: %s", verb, reviewer)}
	comment := ""
	if record.Comment != nil && *record.Comment != "" {
		comment = *record.Comment
		lines = append(lines, fmt.Sprintf("Comment: %s", comment))
	}

	return &Message{
		Kind:       kind,
		Subject:    fmt.Sprintf("Approval %s: %s", verb, subjectName),
		Greeting:   "Hello!",
		Lines:      lines,
		ActionText: "View Details",
		ActionURL:  url,
		Data: map[string]interface{}{
			"approval_id":        a.ID,
			"approval_record_id": record.ID,
			"approvable_type":    a.ApprovableType,
			"approvable_id":      a.ApprovableID,
			"contact_name":       a.ContactName,
			byKey:                reviewer,
			"comment":            comment,
			"message":            text,
			"url":                url,
		},
	}
}

/* Text renders the plain-text body used by the mail channel */
func (m *Message) Text() string {
	var b strings.Builder
	if m.Greeting != "" {
		b.WriteString(m.Greeting)
		b.WriteString("\r\n\r\n")
	}
	for _, line := range m.Lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	if m.ActionURL != "" {
		b.WriteString("\r\n")
		b.WriteString(fmt.Sprintf("%s: %s\r\n", m.ActionText, m.ActionURL))
	}
	return b.String()
}

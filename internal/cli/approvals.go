/*-------------------------------------------------------------------------
 *
 * approvals.go
 *    Approval request and decision commands for approvals-cli
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/cli/approvals.go
 *
 *-------------------------------------------------------------------------
 */

package cli

import (
	"fmt"
	"time"

	"github.com/neurondb/NeuronApprovals/internal/approval"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/spf13/cobra"
)

var approvalHeaders = []string{"ID", "SUBJECT", "CONTACT", "STATUS", "CREATED"}

func approvalRow(a *db.Approval) []string {
	contact := a.ContactName
	if contact == "" {
		contact = a.ContactID
	}
	return []string{
		a.ID,
		fmt.Sprintf("%s #%s", approval.SubjectName(a.ApprovableType), a.ApprovableID),
		contact,
		string(a.Status()),
		a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

var recordHeaders = []string{"RECORD", "APPROVAL", "USER", "DECISION", "COMMENT"}

func recordRow(r *db.ApprovalRecord) []string {
	comment := ""
	if r.Comment != nil {
		comment = *r.Comment
	}
	return []string{r.ID, r.ApprovalID, r.UserID, string(r.Decision()), comment}
}

func newApprovalsCommand(s *state) *cobra.Command {
	approvals := &cobra.Command{
		Use:   "approvals",
		Short: "Request, decide and inspect approvals",
	}

	var contactID string
	request := &cobra.Command{
		Use:   "request [approvable-type] [approvable-id]",
		Short: "Request approval of a subject, returning the existing pending approval if any",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			subject := approval.SubjectRef{Type: args[0], ID: args[1]}
			result, err := a.Manager.RequestApproval(cmd.Context(), subject, approval.ContactID(contactID))
			if err != nil {
				return fmt.Errorf("failed to request approval: %w", err)
			}
			return s.printer().result(result, approvalHeaders, [][]string{approvalRow(result)})
		},
	}
	request.Flags().StringVar(&contactID, "contact", "", "Contact id that should review the subject")
	request.MarkFlagRequired("contact")

	var (
		approveUser    string
		approveComment string
	)
	approve := &cobra.Command{
		Use:   "approve [approval-id]",
		Short: "Record an approving decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var comment *string
			if cmd.Flags().Changed("comment") {
				comment = &approveComment
			}
			record, err := a.Manager.Approve(cmd.Context(), args[0], approveUser, comment)
			if err != nil {
				return fmt.Errorf("failed to approve: %w", err)
			}
			return s.printer().result(record, recordHeaders, [][]string{recordRow(record)})
		},
	}
	approve.Flags().StringVar(&approveUser, "user", "", "Reviewer user id")
	approve.Flags().StringVar(&approveComment, "comment", "", "Optional comment")
	approve.MarkFlagRequired("user")

	var (
		rejectUser    string
		rejectComment string
	)
	reject := &cobra.Command{
		Use:   "reject [approval-id]",
		Short: "Record a rejecting decision; a comment is required",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			record, err := a.Manager.Reject(cmd.Context(), args[0], rejectUser, rejectComment)
			if err != nil {
				return fmt.Errorf("failed to reject: %w", err)
			}
			return s.printer().result(record, recordHeaders, [][]string{recordRow(record)})
		},
	}
	reject.Flags().StringVar(&rejectUser, "user", "", "Reviewer user id")
	reject.Flags().StringVar(&rejectComment, "comment", "", "Reason for the rejection")
	reject.MarkFlagRequired("user")

	var pendingUser string
	pending := &cobra.Command{
		Use:   "pending",
		Short: "List approvals awaiting a decision from a reviewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Manager.GetPendingApprovals(cmd.Context(), pendingUser)
			if err != nil {
				return fmt.Errorf("failed to list pending approvals: %w", err)
			}
			rows := make([][]string, 0, len(list))
			for i := range list {
				rows = append(rows, approvalRow(&list[i].Approval))
			}
			return s.printer().result(list, approvalHeaders, rows)
		},
	}
	pending.Flags().StringVar(&pendingUser, "user", "", "Reviewer user id")
	pending.MarkFlagRequired("user")

	status := &cobra.Command{
		Use:   "status [approvable-type] [approvable-id]",
		Short: "Show the status of a subject's latest approval",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			subject := approval.SubjectRef{Type: args[0], ID: args[1]}
			latest, err := a.Manager.LatestApproval(cmd.Context(), subject)
			if err != nil {
				return fmt.Errorf("failed to load approval status: %w", err)
			}
			if latest == nil {
				return s.printer().message(fmt.Sprintf("No approval for %s #%s", approval.SubjectName(args[0]), args[1]))
			}
			return s.printer().result(latest, approvalHeaders, [][]string{approvalRow(latest)})
		},
	}

	approvals.AddCommand(request, approve, reject, pending, status)
	return approvals
}

/*-------------------------------------------------------------------------
 *
 * contacts.go
 *    User, contact and membership commands for approvals-cli
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/cli/contacts.go
 *
 *-------------------------------------------------------------------------
 */

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neurondb/NeuronApprovals/internal/approval"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/spf13/cobra"
)

func newUsersCommand(s *state) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage rows of the standalone users table",
	}

	var email string
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			user := &db.User{Name: args[0], Email: email}
			if err := a.Queries.CreateUser(cmd.Context(), user); err != nil {
				return fmt.Errorf("failed to add user: %w", err)
			}
			return s.printer().result(user, []string{"ID", "NAME", "EMAIL"},
				[][]string{{user.ID, user.Name, user.Email}})
		},
	}
	add.Flags().StringVar(&email, "email", "", "Email address")

	users.AddCommand(add)
	return users
}

func newContactsCommand(s *state) *cobra.Command {
	contacts := &cobra.Command{
		Use:   "contacts",
		Short: "Manage contacts",
	}

	var (
		search string
		active string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := db.ContactFilter{Search: search, Page: db.Page{Limit: limit}}
			if active != "" {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("--active must be true or false: %w", err)
				}
				filter.IsActive = &b
			}

			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			found, total, err := a.Manager.ListContacts(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list contacts: %w", err)
			}
			rows := make([][]string, 0, len(found))
			for _, c := range found {
				rows = append(rows, []string{
					c.ID, c.Name, yesNo(c.IsActive),
					strconv.Itoa(c.MemberCount), strconv.Itoa(c.ApproverCount), strconv.Itoa(c.ApprovalCount),
				})
			}
			return s.printer().result(map[string]interface{}{"data": found, "total": total},
				[]string{"ID", "NAME", "ACTIVE", "MEMBERS", "APPROVERS", "APPROVALS"}, rows)
		},
	}
	list.Flags().StringVar(&search, "search", "", "Filter by name substring")
	list.Flags().StringVar(&active, "active", "", "Filter by active flag (true, false)")
	list.Flags().IntVar(&limit, "limit", 50, "Maximum number of contacts")

	var (
		userIDs  []string
		approver bool
		inactive bool
	)
	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a contact, optionally with members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var users approval.UserSet
			if len(userIDs) > 0 {
				users = approval.UserIDs(userIDs)
			}
			contact, err := a.Manager.CreateContactWithUsers(cmd.Context(), args[0], users, !inactive, approver)
			if err != nil {
				return fmt.Errorf("failed to create contact: %w", err)
			}
			return s.printer().result(contact, []string{"ID", "NAME", "ACTIVE", "MEMBERS"},
				[][]string{{contact.ID, contact.Name, yesNo(contact.IsActive), strconv.Itoa(len(contact.Members))}})
		},
	}
	create.Flags().StringSliceVar(&userIDs, "users", nil, "Comma separated user ids to attach")
	create.Flags().BoolVar(&approver, "approver", false, "Mark attached users as approvers")
	create.Flags().BoolVar(&inactive, "inactive", false, "Create the contact inactive")

	del := &cobra.Command{
		Use:   "delete [contact-id]",
		Short: "Delete a contact with its memberships and approvals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Manager.DeleteContact(cmd.Context(), approval.ContactID(args[0])); err != nil {
				return fmt.Errorf("failed to delete contact: %w", err)
			}
			return s.printer().message(fmt.Sprintf("Contact %s deleted", args[0]))
		},
	}

	contacts.AddCommand(list, create, del)
	return contacts
}

func newMembersCommand(s *state) *cobra.Command {
	members := &cobra.Command{
		Use:   "members",
		Short: "Manage contact membership and approver flags",
	}

	var approver bool
	attach := &cobra.Command{
		Use:   "attach [contact-id] [user-id...]",
		Short: "Attach users, leaving existing members untouched",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withSync(cmd, args, func(m *approval.Manager, ref approval.ContactRef, users approval.UserSet) (*approval.SyncResult, error) {
				return m.AttachUsers(cmd.Context(), ref, users, approver)
			})
		},
	}
	attach.Flags().BoolVar(&approver, "approver", false, "Mark attached users as approvers")

	var syncApprover bool
	sync := &cobra.Command{
		Use:   "sync [contact-id] [user-id...]",
		Short: "Make the member list exactly the given users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withSync(cmd, args, func(m *approval.Manager, ref approval.ContactRef, users approval.UserSet) (*approval.SyncResult, error) {
				return m.SyncUsers(cmd.Context(), ref, users, syncApprover)
			})
		},
	}
	sync.Flags().BoolVar(&syncApprover, "approver", false, "Mark synced users as approvers")

	detach := &cobra.Command{
		Use:   "detach [contact-id] [user-id...]",
		Short: "Detach the given users, or every member when none are given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var users approval.UserSet
			if len(args) > 1 {
				users = approval.UserIDs(args[1:])
			}
			n, err := a.Manager.DetachUsers(cmd.Context(), approval.ContactID(args[0]), users)
			if err != nil {
				return fmt.Errorf("failed to detach users: %w", err)
			}
			return s.printer().result(map[string]int64{"detached": n}, []string{"DETACHED"},
				[][]string{{strconv.FormatInt(n, 10)}})
		},
	}

	var remove bool
	setApprover := &cobra.Command{
		Use:   "approver [contact-id] [user-id]",
		Short: "Grant (or with --remove revoke) the approver flag of a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ref := approval.ContactID(args[0])
			if remove {
				err = a.Manager.RemoveApprover(cmd.Context(), ref, args[1])
			} else {
				err = a.Manager.SetApprover(cmd.Context(), ref, args[1])
			}
			if err != nil {
				return fmt.Errorf("failed to update approver flag: %w", err)
			}
			return s.printer().message(fmt.Sprintf("User %s approver=%t on contact %s", args[1], !remove, args[0]))
		},
	}
	setApprover.Flags().BoolVar(&remove, "remove", false, "Revoke instead of grant")

	list := &cobra.Command{
		Use:   "list [contact-id]",
		Short: "List the user ids attached to a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			contact, err := a.Manager.GetContact(cmd.Context(), approval.ContactID(args[0]))
			if err != nil {
				return fmt.Errorf("failed to load contact: %w", err)
			}
			ids, err := a.Queries.ListMemberIDs(cmd.Context(), contact.ID)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{id})
			}
			return s.printer().result(map[string]interface{}{"contact_id": contact.ID, "user_ids": ids},
				[]string{"USER ID"}, rows)
		},
	}

	members.AddCommand(list, attach, sync, detach, setApprover)
	return members
}

type syncFunc func(m *approval.Manager, ref approval.ContactRef, users approval.UserSet) (*approval.SyncResult, error)

func (s *state) withSync(cmd *cobra.Command, args []string, fn syncFunc) error {
	a, err := s.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := fn(a.Manager, approval.ContactID(args[0]), approval.UserIDs(args[1:]))
	if err != nil {
		return fmt.Errorf("failed to update members: %w", err)
	}
	return s.printer().result(result, []string{"ATTACHED", "DETACHED", "UPDATED"}, [][]string{{
		strings.Join(result.Attached, ","),
		strings.Join(result.Detached, ","),
		strings.Join(result.Updated, ","),
	}})
}

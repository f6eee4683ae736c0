package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neurondb/NeuronApprovals/internal/db"
	testutil "github.com/neurondb/NeuronApprovals/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_CreateContact(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	contact := &db.Contact{Name: "Legal", IsActive: true}
	require.NoError(t, tdb.Queries.CreateContact(ctx, contact))

	assert.NotEmpty(t, contact.ID)
	assert.False(t, contact.CreatedAt.IsZero())

	found, err := tdb.Queries.GetContact(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, "Legal", found.Name)
	assert.True(t, found.IsActive)
	assert.True(t, found.CreatedAt.Equal(contact.CreatedAt))
}

func TestQueries_GetContactNotFound(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	_, err := tdb.Queries.GetContact(context.Background(), "missing")
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestQueries_AddMemberIsIdempotent(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	users := testutil.MustCreateUsers(t, tdb.Queries, "alice")
	contact, err := testutil.CreateTestContact(ctx, tdb.Queries, "Legal")
	require.NoError(t, err)

	inserted, err := tdb.Queries.AddMember(ctx, contact.ID, users[0].ID, true)
	require.NoError(t, err)
	assert.True(t, inserted)

	for i := 0; i < 3; i++ {
		inserted, err = tdb.Queries.AddMember(ctx, contact.ID, users[0].ID, false)
		require.NoError(t, err)
		assert.False(t, inserted)
	}

	members, err := tdb.Queries.ListContactMembers(ctx, contact.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, members[0].IsApprover, "re-attach must not change approver metadata")
	assert.Equal(t, "alice", members[0].Name)
}

func TestQueries_SetMemberApproverRequiresMembership(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	users := testutil.MustCreateUsers(t, tdb.Queries, "alice")
	contact, err := testutil.CreateTestContact(ctx, tdb.Queries, "Legal")
	require.NoError(t, err)

	err = tdb.Queries.SetMemberApprover(ctx, contact.ID, users[0].ID, true)
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestQueries_DeleteContactCascades(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	users := testutil.MustCreateUsers(t, tdb.Queries, "alice")
	contact, err := testutil.CreateTestContact(ctx, tdb.Queries, "Legal")
	require.NoError(t, err)

	_, err = tdb.Queries.AddMember(ctx, contact.ID, users[0].ID, true)
	require.NoError(t, err)

	approval := &db.Approval{ApprovableType: "Invoice", ApprovableID: "1", ContactID: contact.ID}
	created, err := tdb.Queries.CreatePendingApproval(ctx, approval)
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, tdb.Queries.DeleteContact(ctx, contact.ID))

	_, err = tdb.Queries.GetApproval(ctx, approval.ID)
	assert.True(t, errors.Is(err, db.ErrNotFound))

	ids, err := tdb.Queries.ListMemberIDs(ctx, contact.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestQueries_PendingKeyBlocksSecondPendingApproval(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	users := testutil.MustCreateUsers(t, tdb.Queries, "alice")
	contact, err := testutil.CreateTestContact(ctx, tdb.Queries, "Legal")
	require.NoError(t, err)

	first := &db.Approval{ApprovableType: "Invoice", ApprovableID: "7", ContactID: contact.ID}
	created, err := tdb.Queries.CreatePendingApproval(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	second := &db.Approval{ApprovableType: "Invoice", ApprovableID: "7", ContactID: contact.ID}
	created, err = tdb.Queries.CreatePendingApproval(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	/* A decision frees the slot */
	err = tdb.Queries.WithTx(ctx, func(tx *db.Queries) error {
		if err := tx.CreateApprovalRecord(ctx, &db.ApprovalRecord{ApprovalID: first.ID, UserID: users[0].ID, IsApproved: true}); err != nil {
			return err
		}
		return tx.ClearPendingKey(ctx, first.ID)
	})
	require.NoError(t, err)

	third := &db.Approval{ApprovableType: "Invoice", ApprovableID: "7", ContactID: contact.ID}
	created, err = tdb.Queries.CreatePendingApproval(ctx, third)
	require.NoError(t, err)
	assert.True(t, created)

	latest, err := tdb.Queries.GetLatestApprovalForSubject(ctx, "Invoice", "7")
	require.NoError(t, err)
	assert.Equal(t, third.ID, latest.ID)
}

func TestQueries_ListApprovalsByStatus(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	users := testutil.MustCreateUsers(t, tdb.Queries, "alice", "bob")
	contact, err := testutil.CreateTestContact(ctx, tdb.Queries, "Finance")
	require.NoError(t, err)

	newApproval := func(id string) *db.Approval {
		a := &db.Approval{ApprovableType: "Order", ApprovableID: id, ContactID: contact.ID}
		_, err := tdb.Queries.CreatePendingApproval(ctx, a)
		require.NoError(t, err)
		return a
	}
	record := func(approvalID, userID string, approved bool) {
		require.NoError(t, tdb.Queries.CreateApprovalRecord(ctx, &db.ApprovalRecord{
			ApprovalID: approvalID, UserID: userID, IsApproved: approved,
		}))
	}

	pending := newApproval("1")
	approved := newApproval("2")
	rejected := newApproval("3")
	mixed := newApproval("4")

	record(approved.ID, users[0].ID, true)
	record(rejected.ID, users[0].ID, false)
	record(mixed.ID, users[0].ID, false)
	record(mixed.ID, users[1].ID, true)

	tests := []struct {
		status db.ApprovalStatus
		want   []string
	}{
		{db.StatusPending, []string{pending.ID}},
		{db.StatusApproved, []string{mixed.ID, approved.ID}},
		{db.StatusRejected, []string{rejected.ID}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			list, err := tdb.Queries.ListApprovals(ctx, db.ApprovalFilter{Status: tt.status})
			require.NoError(t, err)

			var ids []string
			for _, a := range list {
				ids = append(ids, a.ID)
				assert.Equal(t, tt.status, a.Status())
				assert.Equal(t, "Finance", a.ContactName)
			}
			assert.Equal(t, tt.want, ids)

			count, err := tdb.Queries.CountApprovals(ctx, db.ApprovalFilter{Status: tt.status})
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), count)
		})
	}

	counts, err := tdb.Queries.CountApprovalsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[db.StatusPending])
	assert.Equal(t, 2, counts[db.StatusApproved])
	assert.Equal(t, 1, counts[db.StatusRejected])
}

func TestQueries_ListApprovalRecordsFilters(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	users := testutil.MustCreateUsers(t, tdb.Queries, "alice", "bob")
	contact, err := testutil.CreateTestContact(ctx, tdb.Queries, "Finance")
	require.NoError(t, err)

	approval := &db.Approval{ApprovableType: "Order", ApprovableID: "1", ContactID: contact.ID}
	_, err = tdb.Queries.CreatePendingApproval(ctx, approval)
	require.NoError(t, err)

	comment := "budget exceeded"
	require.NoError(t, tdb.Queries.CreateApprovalRecord(ctx, &db.ApprovalRecord{
		ApprovalID: approval.ID, UserID: users[0].ID, IsApproved: false, Comment: &comment,
	}))
	require.NoError(t, tdb.Queries.CreateApprovalRecord(ctx, &db.ApprovalRecord{
		ApprovalID: approval.ID, UserID: users[1].ID, IsApproved: true,
	}))

	rejected, err := tdb.Queries.ListApprovalRecords(ctx, db.RecordFilter{Status: db.StatusRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "alice", rejected[0].UserName)
	assert.Equal(t, "Order", rejected[0].ApprovableType)

	byComment, err := tdb.Queries.ListApprovalRecords(ctx, db.RecordFilter{Search: "BUDGET"})
	require.NoError(t, err)
	assert.Len(t, byComment, 1)

	byUser, err := tdb.Queries.ListApprovalRecords(ctx, db.RecordFilter{Search: "bob"})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Nil(t, byUser[0].Comment)

	all, err := tdb.Queries.ListRecordsForApproval(ctx, approval.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, users[0].ID, all[0].UserID)
	assert.Equal(t, db.StatusApproved, db.DeriveStatus(all))
}

func TestQueries_ListContactsFilters(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	users := testutil.MustCreateUsers(t, tdb.Queries, "alice", "bob")

	legal, err := testutil.CreateTestContact(ctx, tdb.Queries, "Legal")
	require.NoError(t, err)
	archived := &db.Contact{Name: "Legal Archive", IsActive: false}
	require.NoError(t, tdb.Queries.CreateContact(ctx, archived))
	_, err = testutil.CreateTestContact(ctx, tdb.Queries, "Finance")
	require.NoError(t, err)

	_, err = tdb.Queries.AddMember(ctx, legal.ID, users[0].ID, true)
	require.NoError(t, err)
	_, err = tdb.Queries.AddMember(ctx, legal.ID, users[1].ID, false)
	require.NoError(t, err)

	list, err := tdb.Queries.ListContacts(ctx, db.ContactFilter{Search: "legal"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	active := true
	list, err = tdb.Queries.ListContacts(ctx, db.ContactFilter{Search: "legal", IsActive: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].MemberCount)
	assert.Equal(t, 1, list[0].ApproverCount)

	count, err := tdb.Queries.CountContacts(ctx, db.ContactFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	paged, err := tdb.Queries.ListContacts(ctx, db.ContactFilter{Page: db.Page{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, paged, 2)
}

func TestQueries_CustomTableNames(t *testing.T) {
	tables := db.DefaultTables()
	tables.Contacts = "review_groups"
	tables.ContactUser = "review_group_user"
	tables.Approvals = "reviews"
	tables.ApprovalRecords = "review_decisions"

	tdb := testutil.SetupTestDBWithTables(t, tables)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	contact, err := testutil.CreateTestContact(ctx, tdb.Queries, "Legal")
	require.NoError(t, err)

	var n int
	require.NoError(t, tdb.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM review_groups WHERE id = ?", contact.ID))
	assert.Equal(t, 1, n)
}

func TestQueries_Notifications(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)

	ctx := context.Background()
	users := testutil.MustCreateUsers(t, tdb.Queries, "alice")

	n := &db.Notification{Type: "approval.requested", NotifiableID: users[0].ID, Data: `{"approval_id":"x"}`}
	require.NoError(t, tdb.Queries.CreateNotification(ctx, n))

	unread, err := tdb.Queries.ListNotifications(ctx, users[0].ID, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	err = tdb.Queries.MarkNotificationRead(ctx, n.ID, "someone-else")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.ErrorIs(t, tdb.Queries.MarkNotificationRead(ctx, "missing", users[0].ID), db.ErrNotFound)

	require.NoError(t, tdb.Queries.MarkNotificationRead(ctx, n.ID, users[0].ID))
	require.NoError(t, tdb.Queries.MarkNotificationRead(ctx, n.ID, users[0].ID))

	unread, err = tdb.Queries.ListNotifications(ctx, users[0].ID, true, 10)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

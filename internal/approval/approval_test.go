package approval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/events"
	testutil "github.com/neurondb/NeuronApprovals/internal/testing"
	"github.com/neurondb/NeuronApprovals/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	Type events.EventType
	Data map[string]interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, eventType events.EventType, source string, data map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Type: eventType, Data: data})
	return f.err
}

func (f *fakePublisher) types() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]events.EventType, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	return types
}

type notification struct {
	Recipients []string
	ApprovalID string
	Record     *db.ApprovalRecord
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) record(recipients []db.User, approval *db.Approval, record *db.ApprovalRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(recipients))
	for _, u := range recipients {
		ids = append(ids, u.ID)
	}
	f.sent = append(f.sent, notification{Recipients: ids, ApprovalID: approval.ID, Record: record})
}

func (f *fakeNotifier) NotifyApprovalRequested(ctx context.Context, recipients []db.User, approval *db.Approval) error {
	f.record(recipients, approval, nil)
	return nil
}

func (f *fakeNotifier) NotifyApprovalDecided(ctx context.Context, recipients []db.User, approval *db.Approval, record *db.ApprovalRecord) error {
	f.record(recipients, approval, record)
	return nil
}

type fixture struct {
	tdb       *testutil.TestDB
	manager   *Manager
	publisher *fakePublisher
	notifier  *fakeNotifier
	alice     *db.User
	bob       *db.User
	carol     *db.User
}

func allOn() Options {
	return Options{EventsEnabled: true, NotificationsEnabled: true}
}

func setup(t *testing.T, opts Options) *fixture {
	t.Helper()
	tdb := testutil.SetupTestDB(t)
	t.Cleanup(func() { tdb.CleanupTestDB(t) })

	users := testutil.MustCreateUsers(t, tdb.Queries, "Alice", "Bob", "Carol")
	f := &fixture{
		tdb:       tdb,
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		alice:     users[0],
		bob:       users[1],
		carol:     users[2],
	}
	f.manager = NewManager(tdb.Queries, f.publisher, f.notifier, nil, opts, nil)
	return f
}

/* contact creates Legal with alice as approver and bob as plain member */
func (f *fixture) contact(t *testing.T) *db.Contact {
	t.Helper()
	ctx := context.Background()
	c, err := f.manager.CreateContactWithUsers(ctx, "Legal", MemberMap{
		f.alice.ID: {IsApprover: boolPtr(true)},
		f.bob.ID:   {},
	}, true, false)
	require.NoError(t, err)
	return c
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func member(c *db.Contact, userID string) (db.ContactMember, bool) {
	for _, m := range c.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return db.ContactMember{}, false
}

func TestUsersFrom(t *testing.T) {
	alice := &db.User{ID: "u-1"}

	tests := []struct {
		name  string
		input interface{}
		want  []string
	}{
		{"single id", "u-1", []string{"u-1"}},
		{"integer id", 42, []string{"42"}},
		{"json number", float64(7), []string{"7"}},
		{"id list", []string{"a", "b", "a"}, []string{"a", "b"}},
		{"entity", alice, []string{"u-1"}},
		{"entity list", []*db.User{alice, {ID: "u-2"}}, []string{"u-1", "u-2"}},
		{"decoded json list", []interface{}{"x", float64(3), map[string]interface{}{"id": "y"}}, []string{"x", "3", "y"}},
		{"member map", map[string]interface{}{"b": map[string]interface{}{}, "a": map[string]interface{}{"is_approver": true}}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := UsersFrom(tt.input)
			require.NoError(t, err)
			memberships, err := set.Normalize(false)
			require.NoError(t, err)
			ids := make([]string, 0, len(memberships))
			for _, m := range memberships {
				ids = append(ids, m.UserID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	invalidInputs := map[string]interface{}{
		"nil":              nil,
		"fractional id":    1.5,
		"boolean":          true,
		"map without id":   []interface{}{map[string]interface{}{"name": "x"}},
		"non-object entry": map[string]interface{}{"a": true},
		"non-bool flag":    map[string]interface{}{"a": map[string]interface{}{"is_approver": "yes"}},
	}
	for name, input := range invalidInputs {
		t.Run("invalid "+name, func(t *testing.T) {
			_, err := UsersFrom(input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestMemberMap_OverridesDefaultFlag(t *testing.T) {
	memberships, err := MemberMap{
		"a": {IsApprover: boolPtr(false)},
		"b": {},
	}.Normalize(true)
	require.NoError(t, err)
	assert.Equal(t, []Membership{{UserID: "a", IsApprover: false}, {UserID: "b", IsApprover: true}}, memberships)

	_, err = UserIDs{"a", " "}.Normalize(false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemberMap_TrimmedKeysKeepOverrides(t *testing.T) {
	memberships, err := MemberMap{" u1 ": {IsApprover: boolPtr(true)}}.Normalize(false)
	require.NoError(t, err)
	assert.Equal(t, []Membership{{UserID: "u1", IsApprover: true}}, memberships)

	memberships, err = MemberMap{"u1": {}, " u1": {IsApprover: boolPtr(true)}}.Normalize(false)
	require.NoError(t, err)
	assert.Equal(t, []Membership{{UserID: "u1", IsApprover: true}}, memberships)

	_, err = MemberMap{
		"u1":  {IsApprover: boolPtr(true)},
		" u1": {IsApprover: boolPtr(false)},
	}.Normalize(false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAttachUsers_KeepsExistingFlags(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)

	result, err := f.manager.AttachUsers(ctx, c, UserIDs{f.alice.ID, f.carol.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{f.carol.ID}, result.Attached)

	loaded, err := f.manager.GetContact(ctx, c)
	require.NoError(t, err)
	require.Len(t, loaded.Members, 3)
	alice, _ := member(loaded, f.alice.ID)
	assert.True(t, alice.IsApprover, "attach never downgrades an approver")
}

func TestAttachUsers_UnknownUserWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)

	_, err := f.manager.AttachUsers(ctx, c, UserIDs{f.carol.ID, "missing"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	loaded, err := f.manager.GetContact(ctx, c)
	require.NoError(t, err)
	_, found := member(loaded, f.carol.ID)
	assert.False(t, found)
}

func TestSyncUsers_MakesMembershipExact(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)

	result, err := f.manager.SyncUsers(ctx, c, UserIDs{f.bob.ID, f.carol.ID}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{f.alice.ID}, result.Detached)
	assert.Equal(t, []string{f.carol.ID}, result.Attached)
	assert.Equal(t, []string{f.bob.ID}, result.Updated)

	loaded, err := f.manager.GetContact(ctx, c)
	require.NoError(t, err)
	require.Len(t, loaded.Members, 2)
	assert.Len(t, loaded.Approvers(), 2)

	result, err = f.manager.SyncUsers(ctx, c, nil, false)
	require.NoError(t, err)
	assert.Len(t, result.Detached, 2)
}

func TestDetachUsers(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)

	n, err := f.manager.DetachUsers(ctx, c, UserID(f.bob.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.manager.DetachUsers(ctx, c, UserID(f.carol.ID))
	require.NoError(t, err)
	assert.Zero(t, n, "detaching a non-member is a no-op")

	n, err = f.manager.DetachUsers(ctx, c, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestApproverFlag(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)

	require.NoError(t, f.manager.SetApprover(ctx, c, f.bob.ID))
	require.NoError(t, f.manager.RemoveApprover(ctx, c, f.alice.ID))

	loaded, err := f.manager.GetContact(ctx, c)
	require.NoError(t, err)
	approvers := loaded.Approvers()
	require.Len(t, approvers, 1)
	assert.Equal(t, f.bob.ID, approvers[0].UserID)

	err = f.manager.SetApprover(ctx, c, f.carol.ID)
	assert.ErrorIs(t, err, ErrNotFound, "only members can be approvers")
}

func TestContactCRUD(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())

	_, err := f.manager.CreateContact(ctx, ContactInput{Name: strPtr("  ")})
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)

	c, err := f.manager.CreateContact(ctx, ContactInput{Name: strPtr(" Finance ")})
	require.NoError(t, err)
	assert.Equal(t, "Finance", c.Name)
	assert.True(t, c.IsActive)

	updated, err := f.manager.UpdateContact(ctx, ContactID(c.ID), ContactInput{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Finance", updated.Name)
	assert.False(t, updated.IsActive)

	list, total, err := f.manager.ListContacts(ctx, db.ContactFilter{Search: "fin"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)

	require.NoError(t, f.manager.DeleteContact(ctx, ContactID(c.ID)))
	_, err = f.manager.GetContact(ctx, ContactID(c.ID))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []events.EventType{
		events.EventContactCreated, events.EventContactUpdated, events.EventContactDeleted,
	}, f.publisher.types())
}

func TestRequestApproval_ReusesPending(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)
	subject := SubjectRef{Type: "App\\Models\\Invoice", ID: "42"}

	first, err := f.manager.RequestApproval(ctx, subject, c)
	require.NoError(t, err)
	assert.True(t, first.IsPending())

	second, err := f.manager.RequestApproval(ctx, subject, c)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = f.manager.Approve(ctx, first.ID, f.alice.ID, nil)
	require.NoError(t, err)

	third, err := f.manager.RequestApproval(ctx, subject, c)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID, "a decided approval is never reused")

	pending, err := f.manager.HasPendingApproval(ctx, subject)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, third.ID, pending.ID)
}

func TestRequestApproval_ReusesPendingAfterDecidingUserDeleted(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)
	subject := SubjectRef{Type: "store", ID: "9"}

	first, err := f.manager.RequestApproval(ctx, subject, c)
	require.NoError(t, err)
	_, err = f.manager.Reject(ctx, first.ID, f.carol.ID, "not yet")
	require.NoError(t, err)

	_, err = f.tdb.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", f.carol.ID)
	require.NoError(t, err)

	pending, err := f.manager.HasPendingApproval(ctx, subject)
	require.NoError(t, err)
	require.NotNil(t, pending, "an approval without records is pending again")
	assert.Equal(t, first.ID, pending.ID)

	again, err := f.manager.RequestApproval(ctx, subject, c)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	all, err := f.tdb.Queries.ListApprovals(ctx, db.ApprovalFilter{ApprovableType: "store", ApprovableID: "9"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRequestApproval_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)

	_, err := f.manager.RequestApproval(ctx, SubjectRef{Type: "", ID: "1"}, c)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.manager.RequestApproval(ctx, SubjectRef{Type: "doc", ID: "1"}, ContactID("missing"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.manager.RequestApproval(ctx, nil, c)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestApproval_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)
	subject := SubjectRef{Type: "doc", ID: "7"}

	const workers = 8
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := f.manager.RequestApproval(ctx, subject, c)
			if assert.NoError(t, err) {
				ids <- a.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	distinct := make(map[string]bool)
	for id := range ids {
		distinct[id] = true
	}
	assert.Len(t, distinct, 1, "concurrent requests share one pending approval")

	requested := 0
	for _, typ := range f.publisher.types() {
		if typ == events.EventApprovalRequested {
			requested++
		}
	}
	assert.Equal(t, 1, requested)
}

func TestStatusDerivation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)
	subject := SubjectRef{Type: "doc", ID: "1"}

	_, ok, err := f.manager.GetApprovalStatus(ctx, subject)
	require.NoError(t, err)
	assert.False(t, ok, "no approval yet")

	a, err := f.manager.RequestApproval(ctx, subject, c)
	require.NoError(t, err)

	status, ok, err := f.manager.GetApprovalStatus(ctx, subject)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, db.StatusPending, status)

	_, err = f.manager.Reject(ctx, a.ID, f.alice.ID, "needs work")
	require.NoError(t, err)
	status, _, err = f.manager.GetApprovalStatus(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, db.StatusRejected, status)

	/* Records are append-only: a later approval flips the status and both decisions remain */
	_, err = f.manager.Approve(ctx, a.ID, f.alice.ID, strPtr("fixed"))
	require.NoError(t, err)
	_, err = f.manager.Reject(ctx, a.ID, f.bob.ID, "still disagree")
	require.NoError(t, err)

	status, _, err = f.manager.GetApprovalStatus(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, db.StatusApproved, status, "any approving record wins")

	detail, err := f.manager.GetApproval(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Approval.Records, 3)
	assert.Equal(t, "Legal", detail.Contact.Name)
	assert.Equal(t, SubjectRef{Type: "doc", ID: "1"}, detail.Subject)
}

func TestDecisions_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)
	a, err := f.manager.RequestApproval(ctx, SubjectRef{Type: "doc", ID: "1"}, c)
	require.NoError(t, err)

	_, err = f.manager.Reject(ctx, a.ID, f.alice.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.manager.Reject(ctx, "missing", f.alice.ID, "")
	assert.ErrorIs(t, err, ErrValidation, "the comment is checked before the approval")

	_, err = f.manager.Approve(ctx, "missing", f.alice.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.manager.Approve(ctx, a.ID, "ghost", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.manager.Approve(ctx, a.ID, "", nil)
	assert.ErrorIs(t, err, ErrValidation)

	still, err := f.manager.HasPendingApproval(ctx, SubjectRef{Type: "doc", ID: "1"})
	require.NoError(t, err)
	assert.NotNil(t, still, "failed decisions write nothing")

	record, err := f.manager.Approve(ctx, a.ID, f.alice.ID, strPtr("  "))
	require.NoError(t, err)
	assert.Nil(t, record.Comment, "blank approval comments are dropped")
	assert.Equal(t, "Alice", record.UserName)
}

func TestMalformedIDsAndBlankFields(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())

	_, err := f.manager.GetApproval(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.manager.GetContact(ctx, ContactID("42"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.manager.Approve(ctx, "42", f.alice.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	var verr *validation.ValidationError
	_, err = f.manager.CreateContact(ctx, ContactInput{Name: strPtr("  ")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	err = f.manager.UpdateApproverStatus(ctx, ContactID("42"), " ", true)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "user_id", verr.Field)

	_, err = f.manager.GetPendingApprovals(ctx, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "user_id", verr.Field)
}

func TestGetPendingApprovals(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)

	a, err := f.manager.RequestApproval(ctx, SubjectRef{Type: "doc", ID: "1"}, c)
	require.NoError(t, err)
	_, err = f.manager.RequestApproval(ctx, SubjectRef{Type: "doc", ID: "2"}, c)
	require.NoError(t, err)

	pending, err := f.manager.GetPendingApprovals(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "Legal", pending[0].Contact.Name)

	pending, err = f.manager.GetPendingApprovals(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending, "plain members are not reviewers")

	_, err = f.manager.Approve(ctx, a.ID, f.alice.ID, nil)
	require.NoError(t, err)
	pending, err = f.manager.GetPendingApprovals(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.manager.GetPendingApprovals(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEventGating(t *testing.T) {
	ctx := context.Background()
	opts := allOn()
	opts.EventTypes = map[events.EventType]bool{events.EventApprovalRequested: false}
	f := setup(t, opts)
	c := f.contact(t)

	a, err := f.manager.RequestApproval(ctx, SubjectRef{Type: "doc", ID: "1"}, c)
	require.NoError(t, err)
	_, err = f.manager.Reject(ctx, a.ID, f.alice.ID, "no")
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{events.EventContactCreated, events.EventApprovalRejected}, f.publisher.types())

	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Equal(t, a.ID, last.Data["approval_id"])
	assert.Equal(t, "rejected", last.Data["status"])
	assert.Equal(t, "no", last.Data["comment"])

	off := setup(t, Options{EventsEnabled: false})
	off.contact(t)
	assert.Empty(t, off.publisher.types())
}

func TestPublishErrorDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	f.publisher.err = errors.New("backend down")

	_, err := f.manager.CreateContact(ctx, ContactInput{Name: strPtr("Ops")})
	assert.NoError(t, err)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)

	a, err := f.manager.RequestApproval(ctx, SubjectRef{Type: "doc", ID: "1"}, c)
	require.NoError(t, err)
	_, err = f.manager.RequestApproval(ctx, SubjectRef{Type: "doc", ID: "1"}, c)
	require.NoError(t, err)
	record, err := f.manager.Reject(ctx, a.ID, f.alice.ID, "no")
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 2, "reusing a pending approval notifies nobody")
	assert.Equal(t, []string{f.alice.ID}, f.notifier.sent[0].Recipients, "only approvers are notified")
	assert.Nil(t, f.notifier.sent[0].Record)
	assert.Equal(t, record.ID, f.notifier.sent[1].Record.ID)

	quiet := setup(t, Options{EventsEnabled: true, NotificationsEnabled: false})
	qc := quiet.contact(t)
	_, err = quiet.manager.RequestApproval(ctx, SubjectRef{Type: "doc", ID: "1"}, qc)
	require.NoError(t, err)
	assert.Empty(t, quiet.notifier.sent)
}

func TestDeleteContactCascades(t *testing.T) {
	ctx := context.Background()
	f := setup(t, allOn())
	c := f.contact(t)
	subject := SubjectRef{Type: "doc", ID: "1"}

	a, err := f.manager.RequestApproval(ctx, subject, c)
	require.NoError(t, err)
	require.NoError(t, f.manager.DeleteContact(ctx, c))

	_, err = f.manager.GetApproval(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok, err := f.manager.GetApprovalStatus(ctx, subject)
	require.NoError(t, err)
	assert.False(t, ok)
}

type invoice struct {
	ID     string
	Number string
}

func (i invoice) ApprovableType() string { return "invoices" }
func (i invoice) ApprovableID() string   { return i.ID }

func TestSubjectRegistry(t *testing.T) {
	ctx := context.Background()
	registry := NewSubjectRegistry()
	registry.Register("invoices", func(ctx context.Context, id string) (Approvable, error) {
		if id == "broken" {
			return nil, errors.New("load failed")
		}
		return invoice{ID: id, Number: "INV-" + id}, nil
	})
	assert.Equal(t, []string{"invoices"}, registry.Kinds())

	subject, err := registry.Resolve(ctx, "invoices", "9")
	require.NoError(t, err)
	assert.Equal(t, invoice{ID: "9", Number: "INV-9"}, subject)

	subject, err = registry.Resolve(ctx, "orders", "3")
	require.NoError(t, err)
	assert.Equal(t, SubjectRef{Type: "orders", ID: "3"}, subject)

	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)
	users := testutil.MustCreateUsers(t, tdb.Queries, "Dana")
	manager := NewManager(tdb.Queries, nil, nil, registry, Options{}, nil)
	c, err := manager.CreateContactWithUsers(ctx, "AP", UserID(users[0].ID), true, true)
	require.NoError(t, err)

	a, err := manager.RequestApproval(ctx, invoice{ID: "broken"}, c)
	require.NoError(t, err)
	detail, err := manager.GetApproval(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, SubjectRef{Type: "invoices", ID: "broken"}, detail.Subject, "loader failures degrade to a reference")

	pending, err := manager.GetPendingApprovals(ctx, users[0].ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestSubjectName(t *testing.T) {
	assert.Equal(t, "Invoice", SubjectName(`App\Models\Invoice`))
	assert.Equal(t, "Order", SubjectName("shop.Order"))
	assert.Equal(t, "documents", SubjectName("documents"))
}

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	testutil "github.com/neurondb/NeuronApprovals/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testLinks = Links{BaseURL: "https://example.com/", Route: "/contact-approvable"}

func sampleApproval() *db.Approval {
	return &db.Approval{
		ID:             "a-1",
		ApprovableType: `App\Models\Invoice`,
		ApprovableID:   "42",
		ContactID:      "c-1",
		ContactName:    "Finance",
	}
}

type recordingChannel struct {
	name string
	err  error

	mu   sync.Mutex
	sent []string
}

func (r *recordingChannel) Name() string { return r.name }

func (r *recordingChannel) Send(ctx context.Context, recipient db.User, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, recipient.ID+":"+msg.Kind)
	return r.err
}

func (r *recordingChannel) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func TestRequestedMessage(t *testing.T) {
	msg := RequestedMessage(sampleApproval(), testLinks)

	assert.Equal(t, KindApprovalRequested, msg.Kind)
	assert.Equal(t, "Approval Requested: Invoice", msg.Subject)
	assert.Equal(t, []string{"A new approval has been requested for: Invoice", "Contact: Finance"}, msg.Lines)
	assert.Equal(t, "View Approval", msg.ActionText)
	assert.Equal(t, "https://example.com/contact-approvable/approvals/a-1", msg.ActionURL)
	assert.Equal(t, "a-1", msg.Data["approval_id"])
	assert.Equal(t, msg.ActionURL, msg.Data["url"])
}

func TestDecidedMessageRejected(t *testing.T) {
	comment := "missing receipt"
	record := &db.ApprovalRecord{ID: "r-1", UserID: "u-1", UserName: "alice", Comment: &comment}

	msg := DecidedMessage(sampleApproval(), record, testLinks)

	assert.Equal(t, KindApprovalRejected, msg.Kind)
	assert.Equal(t, "Approval Rejected: Invoice", msg.Subject)
	assert.Contains(t, msg.Lines, "Your approval request has been rejected.")
	assert.Contains(t, msg.Lines, "Rejected by: alice")
	assert.Contains(t, msg.Lines, "Comment: missing receipt")
	assert.Equal(t, "View Details", msg.ActionText)
	assert.Equal(t, "alice", msg.Data["rejected_by"])
	assert.Equal(t, "r-1", msg.Data["approval_record_id"])
	assert.NotContains(t, msg.Data, "approved_by")
}

func TestDecidedMessageApprovedWithoutComment(t *testing.T) {
	record := &db.ApprovalRecord{ID: "r-2", UserID: "u-2", IsApproved: true}

	msg := DecidedMessage(sampleApproval(), record, testLinks)

	assert.Equal(t, KindApprovalApproved, msg.Kind)
	assert.Equal(t, "Approval Approved: Invoice", msg.Subject)
	assert.Contains(t, msg.Lines, "Approved by: u-2")
	assert.Len(t, msg.Lines, 2)
	assert.Equal(t, "", msg.Data["comment"])
}

func TestMessageText(t *testing.T) {
	text := RequestedMessage(sampleApproval(), testLinks).Text()
	assert.True(t, strings.HasPrefix(text, "Hello!"))
	assert.Contains(t, text, "View Approval: https://example.com/contact-approvable/approvals/a-1")
}

func TestDispatcherDeliversToEveryRecipientAndChannel(t *testing.T) {
	mail := &recordingChannel{name: "mail"}
	store := &recordingChannel{name: "database"}
	d := NewDispatcher([]Channel{mail, store}, testLinks, nil, nil)

	recipients := []db.User{{ID: "u-1"}, {ID: "u-2"}}
	require.NoError(t, d.NotifyApprovalRequested(context.Background(), recipients, sampleApproval()))

	want := []string{"u-1:approval_requested", "u-2:approval_requested"}
	assert.Equal(t, want, mail.Sent())
	assert.Equal(t, want, store.Sent())
	assert.Equal(t, []string{"mail", "database"}, d.Channels())
}

func TestDispatcherContinuesAfterChannelFailure(t *testing.T) {
	broken := &recordingChannel{name: "webhook", err: errors.New("down")}
	store := &recordingChannel{name: "database"}
	d := NewDispatcher([]Channel{broken, store}, testLinks, nil, nil)

	err := d.NotifyApprovalDecided(context.Background(), []db.User{{ID: "u-1"}}, sampleApproval(),
		&db.ApprovalRecord{ID: "r-1", UserID: "u-1", IsApproved: true})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, []string{"u-1:approval_approved"}, store.Sent())
}

func TestDispatcherNoRecipients(t *testing.T) {
	ch := &recordingChannel{name: "log"}
	d := NewDispatcher([]Channel{ch}, testLinks, nil, nil)

	require.NoError(t, d.NotifyApprovalRequested(context.Background(), nil, sampleApproval()))
	assert.Empty(t, ch.Sent())
}

func TestDispatcherQueued(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := &recordingChannel{name: "log"}
	queue := NewQueue("test", 2, nil)
	queue.Start()
	d := NewDispatcher([]Channel{ch}, testLinks, queue, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.NotifyApprovalRequested(context.Background(), []db.User{{ID: "u-1"}}, sampleApproval()))
	}
	d.Close()

	assert.Len(t, ch.Sent(), 5)
	assert.ErrorIs(t, queue.Enqueue(func(context.Context) error { return nil }), ErrQueueClosed)
}

func TestQueueStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewQueue("idle", 1, nil)
	q.Stop()
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(func(context.Context) error { return nil }), ErrQueueClosed)
}

func TestQueueStopReleasesBlockedEnqueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewQueue("full", 1, nil)
	for i := 0; i < defaultQueueBuffer; i++ {
		require.NoError(t, q.Enqueue(func(context.Context) error { return nil }))
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- q.Enqueue(func(context.Context) error { return nil })
	}()

	select {
	case err := <-blocked:
		t.Fatalf("enqueue on a full buffer returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked enqueue was not released by Stop")
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestQueueLogsJobErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf strings.Builder
	var mu sync.Mutex
	logger := logging.NewWithWriter(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	}), "info", "json")

	var ran int32
	q := NewQueue("errors", 1, logger)
	q.Start()
	require.NoError(t, q.Enqueue(func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return errors.New("boom")
	}))
	q.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "Notification job failed")
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestMailChannel(t *testing.T) {
	ch := NewMailChannel("smtp.example.com", 587, "user", "secret", "approvals@example.com")

	var gotAddr string
	var gotTo []string
	var gotBody string
	ch.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		return nil
	}

	err := ch.Send(context.Background(), db.User{ID: "u-1", Email: "alice@example.com"}, RequestedMessage(sampleApproval(), testLinks))
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, gotBody, "Subject: Approval Requested: Invoice\r\n")
	assert.Contains(t, gotBody, "A new approval has been requested for: Invoice")
}

func TestMailChannelRejectsBadAddressAndMissingHost(t *testing.T) {
	msg := RequestedMessage(sampleApproval(), testLinks)

	unconfigured := NewMailChannel("", 587, "", "", "from@example.com")
	assert.ErrorIs(t, unconfigured.Send(context.Background(), db.User{ID: "u", Email: "a@b.c"}, msg), ErrChannelNotConfigured)

	ch := NewMailChannel("smtp.example.com", 25, "", "", "from@example.com")
	ch.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be attempted")
		return nil
	}
	assert.Error(t, ch.Send(context.Background(), db.User{ID: "u", Email: "not-an-address"}, msg))
}

func TestWebhookChannelSignsPayload(t *testing.T) {
	var gotSig string
	var payload WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		_ = json.Unmarshal(body, &payload)
		assert.Equal(t, Sign("s3cret", body), gotSig)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ch := NewWebhookChannel(server.URL, "s3cret", time.Second)
	err := ch.Send(context.Background(), db.User{ID: "u-1", Name: "alice"}, RequestedMessage(sampleApproval(), testLinks))

	require.NoError(t, err)
	assert.NotEmpty(t, gotSig)
	assert.Equal(t, KindApprovalRequested, payload.Type)
	assert.Equal(t, "u-1", payload.Recipient.ID)
	assert.Equal(t, "a-1", payload.Data["approval_id"])
}

func TestWebhookChannelFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ch := NewWebhookChannel(server.URL, "", time.Second)
	err := ch.Send(context.Background(), db.User{ID: "u-1"}, RequestedMessage(sampleApproval(), testLinks))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status_code=502")
}

func TestDatabaseChannelStoresNotification(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	defer tdb.CleanupTestDB(t)
	ctx := context.Background()

	users := testutil.MustCreateUsers(t, tdb.Queries, "alice")
	ch := NewDatabaseChannel(tdb.Queries)

	require.NoError(t, ch.Send(ctx, *users[0], RequestedMessage(sampleApproval(), testLinks)))

	stored, err := tdb.Queries.ListNotifications(ctx, users[0].ID, true, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, KindApprovalRequested, stored[0].Type)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stored[0].Data), &data))
	assert.Equal(t, "a-1", data["approval_id"])
	assert.Equal(t, "Finance", data["contact_name"])
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Channels = []string{"mail", "database", "log"}

	d, err := FromConfig(cfg, nil, nil)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, []string{"database", "log"}, d.Channels())

	cfg.Notifications.Channels = []string{"webhook"}
	_, err = FromConfig(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrChannelNotConfigured)

	cfg.Notifications.Channels = []string{"pager"}
	_, err = FromConfig(cfg, nil, nil)
	assert.Error(t, err)
}

/*-------------------------------------------------------------------------
 *
 * channels.go
 *    Notification delivery channels
 *
 * mail sends over SMTP, database stores a row in the notifications
 * table, webhook POSTs JSON and log writes to the structured log.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/notifications/channels.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/logging"
)

/* ErrChannelNotConfigured is returned when a channel lacks required settings */
var ErrChannelNotConfigured = errors.New("notification channel not configured")

/* Channel delivers a message to one recipient */
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient db.User, msg *Message) error
}

/* MailChannel sends plain-text mail over SMTP */
type MailChannel struct {
	smtpHost     string
	smtpPort     int
	smtpUser     string
	smtpPassword string
	smtpFrom     string
	sendMail     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

/* NewMailChannel creates a mail channel */
func NewMailChannel(smtpHost string, smtpPort int, smtpUser, smtpPassword, smtpFrom string) *MailChannel {
	return &MailChannel{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		smtpFrom:     smtpFrom,
		sendMail:     smtp.SendMail,
	}
}

func (e *MailChannel) Name() string { return "mail" }

/* IsEnabled returns whether an SMTP server is configured */
func (e *MailChannel) IsEnabled() bool {
	return e.smtpHost != "" && e.smtpPort > 0
}

/* Send mails msg to the recipient's address */
func (e *MailChannel) Send(ctx context.Context, recipient db.User, msg *Message) error {
	if !e.IsEnabled() {
		return fmt.Errorf("mail: %w", ErrChannelNotConfigured)
	}

	to := strings.TrimSpace(recipient.Email)
	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: user_id='%s', email='%s'", recipient.ID, to)
	}

	body := fmt.Sprintf("From: %s\r\n", e.smtpFrom)
	body += fmt.Sprintf("To: %s\r\n", to)
	body += fmt.Sprintf("Subject: %s\r\n", msg.Subject)
	body += "MIME-Version: 1.0\r\n"
	body += "Content-Type: text/plain; charset=UTF-8\r\n"
	body += "\r\n"
	body += msg.Text()

	var auth smtp.Auth
	if e.smtpUser != "" {
		auth = smtp.PlainAuth("", e.smtpUser, e.smtpPassword, e.smtpHost)
	}

	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)
	if err := e.sendMail(addr, auth, e.smtpFrom, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("email send failed: to='%s', subject='%s', error=%w", to, msg.Subject, err)
	}
	return nil
}

/* DatabaseChannel stores notifications for the in-app inbox */
type DatabaseChannel struct {
	queries *db.Queries
}

/* NewDatabaseChannel creates a database channel */
func NewDatabaseChannel(queries *db.Queries) *DatabaseChannel {
	return &DatabaseChannel{queries: queries}
}

func (d *DatabaseChannel) Name() string { return "database" }

func (d *DatabaseChannel) Send(ctx context.Context, recipient db.User, msg *Message) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("notification data encoding failed: kind='%s', error=%w", msg.Kind, err)
	}
	return d.queries.CreateNotification(ctx, &db.Notification{
		Type:         msg.Kind,
		NotifiableID: recipient.ID,
		Data:         string(data),
	})
}

/* WebhookChannel POSTs each notification as JSON */
type WebhookChannel struct {
	url        string
	secret     string
	httpClient *http.Client
}

/* NewWebhookChannel creates a webhook channel; a non-empty secret signs each body */
func NewWebhookChannel(url, secret string, timeout time.Duration) *WebhookChannel {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WebhookChannel{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (w *WebhookChannel) Name() string { return "webhook" }

/* WebhookPayload is the JSON body of a webhook notification */
type WebhookPayload struct {
	Type      string                 `json:"type"`
	Recipient WebhookRecipient       `json:"recipient"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
	SentAt    time.Time              `json:"sent_at"`
}

/* WebhookRecipient identifies the notified user */
type WebhookRecipient struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (w *WebhookChannel) Send(ctx context.Context, recipient db.User, msg *Message) error {
	if w.url == "" {
		return fmt.Errorf("webhook: %w", ErrChannelNotConfigured)
	}

	payloadJSON, err := json.Marshal(WebhookPayload{
		Type:      msg.Kind,
		Recipient: WebhookRecipient{ID: recipient.ID, Name: recipient.Name, Email: recipient.Email},
		Subject:   msg.Subject,
		Data:      msg.Data,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("webhook payload serialization failed: error=%w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payloadJSON))
	if err != nil {
		return fmt.Errorf("webhook request creation failed: url='%s', error=%w", w.url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NeuronApprovals/1.0")
	if w.secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.secret, payloadJSON))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: url='%s', error=%w", w.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed: url='%s', status_code=%d", w.url, resp.StatusCode)
	}
	return nil
}

/* SignatureHeader carries the hex HMAC-SHA256 of the webhook body */
const SignatureHeader = "X-Approvals-Signature"

/* Sign returns the hex HMAC-SHA256 of body under secret */
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

/* LogChannel writes notifications to the structured log */
type LogChannel struct {
	logger *logging.Logger
}

/* NewLogChannel creates a log channel */
func NewLogChannel(logger *logging.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Name() string { return "log" }

func (l *LogChannel) Send(ctx context.Context, recipient db.User, msg *Message) error {
	l.logger.WithContext(ctx).Info("Notification", map[string]interface{}{
		"kind":         msg.Kind,
		"recipient_id": recipient.ID,
		"subject":      msg.Subject,
		"url":          msg.ActionURL,
	})
	return nil
}

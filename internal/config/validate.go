/*-------------------------------------------------------------------------
 *
 * validate.go
 *    Configuration validation
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/config/validate.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neurondb/NeuronApprovals/internal/validation"
)

/* KnownChannels lists the notification channels the dispatcher can build */
var KnownChannels = []string{"mail", "database", "webhook", "log"}

/* KnownBackends lists the event backends the broker can build */
var KnownBackends = []string{"log", "postgres"}

/* KnownMiddleware lists the names admin.middleware may use */
var KnownMiddleware = []string{"requestid", "recovery", "logging", "ratelimit", "auth"}

/* Validate checks the configuration and returns every problem found */
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, validation.NewError("server.port", fmt.Sprintf("port out of range: %d", c.Server.Port)))
	}

	switch c.Database.Driver {
	case "pgx", "postgres", "sqlite":
	default:
		errs = append(errs, validation.NewError("database.driver", fmt.Sprintf("unsupported driver %q", c.Database.Driver)))
	}

	identifiers := map[string]string{
		"tables.contacts":         c.Tables.Contacts,
		"tables.contact_user":     c.Tables.ContactUser,
		"tables.approvals":        c.Tables.Approvals,
		"tables.approval_records": c.Tables.ApprovalRecords,
		"tables.notifications":    c.Tables.Notifications,
		"users.table":             c.Users.Table,
		"users.name_column":       c.Users.NameColumn,
		"users.email_column":      c.Users.EmailColumn,
	}
	for field, name := range identifiers {
		if err := validation.ValidateIdentifier(name, field); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToUpper(c.Users.IDType) {
	case "TEXT", "BIGINT", "INTEGER", "UUID":
	default:
		errs = append(errs, validation.NewError("users.id_type", fmt.Sprintf("unsupported id type %q", c.Users.IDType)))
	}

	if !strings.HasPrefix(c.Admin.Route, "/") {
		errs = append(errs, validation.NewError("admin.route", "route must start with /"))
	}
	for _, name := range c.Admin.Middleware {
		if !contains(KnownMiddleware, name) {
			errs = append(errs, validation.NewError("admin.middleware", fmt.Sprintf("unknown middleware %q", name)))
		}
		if name == "auth" && c.Auth.JWTSecret == "" {
			errs = append(errs, validation.NewError("admin.middleware", "auth middleware requires auth.jwt_secret"))
		}
	}
	if c.Admin.PerPage <= 0 {
		errs = append(errs, validation.NewError("admin.per_page", "per_page must be positive"))
	}

	for _, ch := range c.Notifications.Channels {
		if !contains(KnownChannels, ch) {
			errs = append(errs, validation.NewError("notifications.channels", fmt.Sprintf("unknown channel %q", ch)))
		}
	}
	if c.Notifications.Queue && c.Notifications.Workers <= 0 {
		errs = append(errs, validation.NewError("notifications.workers", "workers must be positive when queue is enabled"))
	}

	for _, b := range c.Events.Backends {
		if !contains(KnownBackends, b) {
			errs = append(errs, validation.NewError("events.backends", fmt.Sprintf("unknown backend %q", b)))
		}
	}

	return errors.Join(errs...)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

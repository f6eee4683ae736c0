/*-------------------------------------------------------------------------
 *
 * schema.go
 *    Table names, SQL dialects and migrations
 *
 * Table names are configurable so the schema can live next to a host
 * application's own tables. The host user table is referenced by foreign
 * key only and is never created here except by EnsureUsersTable.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/schema.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

/* Dialect selects the DDL flavour */
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

/* DialectFor maps a database/sql driver name to a dialect */
func DialectFor(driverName string) Dialect {
	switch driverName {
	case "sqlite", "sqlite3":
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

/* Tables holds the physical table and column names */
type Tables struct {
	Contacts        string
	ContactUser     string
	Approvals       string
	ApprovalRecords string
	Notifications   string
	Users           string
	UserIDType      string
	UserName        string
	UserEmail       string
}

/* DefaultTables returns the default names */
func DefaultTables() Tables {
	return Tables{
		Contacts:        "contacts",
		ContactUser:     "contact_user",
		Approvals:       "approvals",
		ApprovalRecords: "approval_records",
		Notifications:   "approval_notifications",
		Users:           "users",
		UserIDType:      "TEXT",
		UserName:        "name",
		UserEmail:       "email",
	}
}

func (d Dialect) timestamp() string {
	if d == DialectSQLite {
		return "TIMESTAMP"
	}
	return "TIMESTAMPTZ"
}

func (t Tables) userIDType() string {
	if t.UserIDType == "" {
		return "TEXT"
	}
	return strings.ToUpper(t.UserIDType)
}

/* Statements returns the DDL for the approval tables in execution order */
func Statements(t Tables, d Dialect) []string {
	ts := d.timestamp()
	uid := t.userIDType()

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, t.Contacts, ts, ts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_is_active ON %s(is_active)`, t.Contacts, t.Contacts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			contact_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			user_id %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			is_approver BOOLEAN NOT NULL DEFAULT FALSE,
			created_at %s NOT NULL,
			updated_at %s NOT NULL,
			PRIMARY KEY (contact_id, user_id)
		)`, t.ContactUser, t.Contacts, uid, t.Users, ts, ts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_approver ON %s(user_id, is_approver)`, t.ContactUser, t.ContactUser),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			approvable_type TEXT NOT NULL,
			approvable_id TEXT NOT NULL,
			contact_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			pending_key TEXT UNIQUE,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, t.Approvals, t.Contacts, ts, ts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_approvable ON %s(approvable_type, approvable_id)`, t.Approvals, t.Approvals),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_contact_id ON %s(contact_id)`, t.Approvals, t.Approvals),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			approval_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			user_id %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			is_approved BOOLEAN NOT NULL,
			comment TEXT,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, t.ApprovalRecords, t.Approvals, uid, t.Users, ts, ts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_approval_id ON %s(approval_id, is_approved)`, t.ApprovalRecords, t.ApprovalRecords),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s(user_id)`, t.ApprovalRecords, t.ApprovalRecords),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			notifiable_id %s NOT NULL,
			data TEXT NOT NULL,
			read_at %s,
			created_at %s NOT NULL
		)`, t.Notifications, uid, ts, ts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_notifiable ON %s(notifiable_id, read_at)`, t.Notifications, t.Notifications),
	}
}

/* Migrate creates the approval tables if they do not exist */
func Migrate(ctx context.Context, db *sqlx.DB, t Tables) error {
	dialect := DialectFor(db.DriverName())
	for _, stmt := range Statements(t, dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: dialect='%s', error=%w", dialect, err)
		}
	}
	return nil
}

/* EnsureUsersTable creates a minimal user table for standalone and test deployments */
func EnsureUsersTable(ctx context.Context, db *sqlx.DB, t Tables) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id %s PRIMARY KEY,
		%s TEXT NOT NULL DEFAULT '',
		%s TEXT NOT NULL DEFAULT ''
	)`, t.Users, t.userIDType(), t.UserName, t.UserEmail)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("users table creation failed: table='%s', error=%w", t.Users, err)
	}
	return nil
}

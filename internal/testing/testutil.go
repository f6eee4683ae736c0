/*-------------------------------------------------------------------------
 *
 * testutil.go
 *    Test database helpers
 *
 * Each test gets a private in-memory SQLite database migrated with the
 * production schema.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/testing/testutil.go
 *
 *-------------------------------------------------------------------------
 */

package testing

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/neurondb/NeuronApprovals/internal/db"
)

/* TestDB holds test database connection */
type TestDB struct {
	DB      *sqlx.DB
	Queries *db.Queries
	Tables  db.Tables
}

/* SetupTestDB creates a migrated in-memory database */
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithTables(t, db.DefaultTables())
}

/* SetupTestDBWithTables creates a migrated in-memory database using custom table names */
func SetupTestDBWithTables(t *testing.T, tables db.Tables) *TestDB {
	t.Helper()

	/* One connection keeps the :memory: database alive and private to this test */
	testDB, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := testDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		testDB.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := db.EnsureUsersTable(ctx, testDB, tables); err != nil {
		testDB.Close()
		t.Fatalf("Failed to create users table: %v", err)
	}
	if err := db.Migrate(ctx, testDB, tables); err != nil {
		testDB.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDB{
		DB:      testDB,
		Queries: db.NewQueries(testDB, tables),
		Tables:  tables,
	}
}

/* CleanupTestDB closes the test database */
func (tdb *TestDB) CleanupTestDB(t *testing.T) {
	t.Helper()
	if err := tdb.DB.Close(); err != nil {
		t.Errorf("Failed to close test database: %v", err)
	}
}

/* CreateTestUser creates a user in the test database */
func CreateTestUser(ctx context.Context, queries *db.Queries, name string) (*db.User, error) {
	user := &db.User{Name: name, Email: name + "@example.com"}
	if err := queries.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

/* MustCreateUsers creates one user per name or fails the test */
func MustCreateUsers(t *testing.T, queries *db.Queries, names ...string) []*db.User {
	t.Helper()
	users := make([]*db.User, 0, len(names))
	for _, name := range names {
		user, err := CreateTestUser(context.Background(), queries, name)
		if err != nil {
			t.Fatalf("Failed to create test user %s: %v", name, err)
		}
		users = append(users, user)
	}
	return users
}

/* CreateTestContact creates an active contact */
func CreateTestContact(ctx context.Context, queries *db.Queries, name string) (*db.Contact, error) {
	contact := &db.Contact{Name: name, IsActive: true}
	if err := queries.CreateContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

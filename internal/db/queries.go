/*-------------------------------------------------------------------------
 *
 * queries.go
 *    Query layer for the approval schema
 *
 * Queries are written with ? placeholders and rebound for the active
 * driver, so the same statements run on PostgreSQL and SQLite.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

/* Queries provides database operations */
type Queries struct {
	db     *sqlx.DB
	ext    sqlx.ExtContext
	tables Tables
	inTx   bool
}

/* NewQueries creates a new Queries instance */
func NewQueries(db *sqlx.DB, tables Tables) *Queries {
	return &Queries{db: db, ext: db, tables: tables}
}

/* GetDB returns the underlying database connection */
func (q *Queries) GetDB() *sqlx.DB {
	return q.db
}

/* Tables returns the configured table names */
func (q *Queries) Tables() Tables {
	return q.tables
}

/* Dialect returns the SQL dialect of the connection */
func (q *Queries) Dialect() Dialect {
	return DialectFor(q.db.DriverName())
}

/* WithTx runs fn inside a transaction; nested calls reuse the outer one */
func (q *Queries) WithTx(ctx context.Context, fn func(tx *Queries) error) error {
	if q.inTx {
		return fn(q)
	}

	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txq := &Queries{db: q.db, ext: tx, tables: q.tables, inTx: true}
	if err := fn(txq); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (q *Queries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
}

func (q *Queries) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := q.ext.ExecContext(ctx, q.ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

/* in expands IN (?) lists before rebinding */
func (q *Queries) in(query string, args ...interface{}) (string, []interface{}, error) {
	return sqlx.In(query, args...)
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: id='%s': %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("%s lookup failed: id='%s', error=%w", kind, id, err)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

/* Page limits a list query */
type Page struct {
	Limit  int
	Offset int
}

func (p Page) clause() string {
	if p.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

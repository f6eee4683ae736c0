/*-------------------------------------------------------------------------
 *
 * user_queries.go
 *    Read access to the host user table
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/user_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
)

func (q *Queries) userColumns() string {
	return fmt.Sprintf(`id, COALESCE(%s, '') AS name, COALESCE(%s, '') AS email`, q.tables.UserName, q.tables.UserEmail)
}

/* GetUser gets a host user by id */
func (q *Queries) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, q.userColumns(), q.tables.Users)
	if err := q.get(ctx, &user, query, id); err != nil {
		return nil, notFound("user", id, err)
	}
	return &user, nil
}

/* GetUsersByIDs loads the users that exist among ids */
func (q *Queries) GetUsersByIDs(ctx context.Context, ids []string) ([]User, error) {
	users := []User{}
	if len(ids) == 0 {
		return users, nil
	}

	query, args, err := q.in(fmt.Sprintf(`SELECT %s FROM %s WHERE id IN (?) ORDER BY id`, q.userColumns(), q.tables.Users), ids)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if err := q.selectAll(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return users, nil
}

/* CreateUser inserts a row into the user table; used by standalone deployments and tests */
func (q *Queries) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, %s) VALUES (?, ?, ?)`, q.tables.Users, q.tables.UserName, q.tables.UserEmail)
	if _, err := q.exec(ctx, query, user.ID, user.Name, user.Email); err != nil {
		return fmt.Errorf("user creation failed: id='%s', error=%w", user.ID, err)
	}
	return nil
}

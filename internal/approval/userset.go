/*-------------------------------------------------------------------------
 *
 * userset.go
 *    Membership input shapes and their normalization
 *
 * A bare list of users takes the shared approver flag; a map keyed by
 * user id may override it per entry. Anything else is rejected.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/approval/userset.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/neurondb/NeuronApprovals/internal/db"
)

/* Membership is one normalized (user, approver flag) pair */
type Membership struct {
	UserID     string `json:"user_id"`
	IsApprover bool   `json:"is_approver"`
}

/* UserSet is membership input accepted by attach, sync and detach */
type UserSet interface {
	Normalize(markAsApprover bool) ([]Membership, error)
}

/* UserRef is any loaded user entity */
type UserRef interface {
	GetID() string
}

/* UserID is a single user identifier */
type UserID string

/* UserIDs is a list of user identifiers */
type UserIDs []string

/* Users is a list of loaded user entities */
type Users []UserRef

/* MemberOptions carries per-user overrides */
type MemberOptions struct {
	IsApprover *bool `json:"is_approver,omitempty"`
}

/* MemberMap keys per-user options by user id */
type MemberMap map[string]MemberOptions

func (id UserID) Normalize(markAsApprover bool) ([]Membership, error) {
	return normalizeIDs([]string{string(id)}, markAsApprover)
}

func (ids UserIDs) Normalize(markAsApprover bool) ([]Membership, error) {
	return normalizeIDs(ids, markAsApprover)
}

func (users Users) Normalize(markAsApprover bool) ([]Membership, error) {
	ids := make([]string, 0, len(users))
	for i, u := range users {
		if u == nil {
			return nil, invalid("users", fmt.Sprintf("entry %d is nil", i))
		}
		ids = append(ids, u.GetID())
	}
	return normalizeIDs(ids, markAsApprover)
}

func (m MemberMap) Normalize(markAsApprover bool) ([]Membership, error) {
	ids := make([]string, 0, len(m))
	overrides := make(map[string]bool, len(m))
	for raw, opts := range m {
		ids = append(ids, raw)
		if opts.IsApprover == nil {
			continue
		}
		id := strings.TrimSpace(raw)
		if prev, ok := overrides[id]; ok && prev != *opts.IsApprover {
			return nil, invalid("users", fmt.Sprintf("conflicting is_approver values for user %q", id))
		}
		overrides[id] = *opts.IsApprover
	}
	sort.Strings(ids)

	memberships, err := normalizeIDs(ids, markAsApprover)
	if err != nil {
		return nil, err
	}
	for i := range memberships {
		if isApprover, ok := overrides[memberships[i].UserID]; ok {
			memberships[i].IsApprover = isApprover
		}
	}
	return memberships, nil
}

func normalizeIDs(ids []string, markAsApprover bool) ([]Membership, error) {
	seen := make(map[string]bool, len(ids))
	memberships := make([]Membership, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, invalid("users", "user id cannot be empty")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		memberships = append(memberships, Membership{UserID: id, IsApprover: markAsApprover})
	}
	return memberships, nil
}

/* UsersFrom converts dynamic input (decoded JSON, CLI values, entities) into a UserSet */
func UsersFrom(v interface{}) (UserSet, error) {
	switch value := v.(type) {
	case UserSet:
		return value, nil
	case string:
		return UserID(value), nil
	case int, int64, float64:
		id, err := scalarID(value)
		if err != nil {
			return nil, err
		}
		return UserID(id), nil
	case []string:
		return UserIDs(value), nil
	case UserRef:
		return Users{value}, nil
	case []UserRef:
		return Users(value), nil
	case []*db.User:
		users := make(Users, 0, len(value))
		for _, u := range value {
			if u == nil {
				return nil, invalid("users", "nil user in list")
			}
			users = append(users, u)
		}
		return users, nil
	case []db.User:
		ids := make(UserIDs, 0, len(value))
		for _, u := range value {
			ids = append(ids, u.ID)
		}
		return ids, nil
	case []interface{}:
		return listFrom(value)
	case map[string]MemberOptions:
		return MemberMap(value), nil
	case map[string]interface{}:
		return mapFrom(value)
	case nil:
		return nil, invalid("users", "users are required")
	}
	return nil, invalid("users", fmt.Sprintf("unsupported users shape %T", v))
}

func listFrom(items []interface{}) (UserSet, error) {
	ids := make(UserIDs, 0, len(items))
	for i, item := range items {
		switch value := item.(type) {
		case string:
			ids = append(ids, value)
		case int, int64, float64:
			id, err := scalarID(value)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		case UserRef:
			ids = append(ids, value.GetID())
		case map[string]interface{}:
			id, ok := value["id"]
			if !ok {
				return nil, invalid("users", fmt.Sprintf("entry %d has no id", i))
			}
			s, err := scalarID(id)
			if err != nil {
				return nil, err
			}
			ids = append(ids, s)
		default:
			return nil, invalid("users", fmt.Sprintf("entry %d has unsupported type %T", i, item))
		}
	}
	return ids, nil
}

func mapFrom(entries map[string]interface{}) (UserSet, error) {
	members := make(MemberMap, len(entries))
	for id, raw := range entries {
		attrs, ok := raw.(map[string]interface{})
		if !ok {
			return nil, invalid("users", fmt.Sprintf("entry %q must be an object like {\"is_approver\": true}", id))
		}
		var opts MemberOptions
		if flag, present := attrs["is_approver"]; present {
			b, ok := flag.(bool)
			if !ok {
				return nil, invalid("users", fmt.Sprintf("entry %q: is_approver must be a boolean", id))
			}
			opts.IsApprover = &b
		}
		members[id] = opts
	}
	return members, nil
}

func scalarID(v interface{}) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case int:
		return strconv.Itoa(value), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	case float64:
		if value != math.Trunc(value) {
			return "", invalid("users", fmt.Sprintf("user id %v is not an integer", value))
		}
		return strconv.FormatInt(int64(value), 10), nil
	}
	return "", invalid("users", fmt.Sprintf("unsupported user id type %T", v))
}

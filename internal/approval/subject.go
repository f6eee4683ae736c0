/*-------------------------------------------------------------------------
 *
 * subject.go
 *    Approvable subjects and the subject registry
 *
 * A subject is any host entity that can ask for approval. It is stored as
 * a (type, id) pair; the registry turns that pair back into a loaded value
 * for the kinds the host registers.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/approval/subject.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"sort"
	"strings"
	"sync"
)

/* Approvable is implemented by every entity that can request approval */
type Approvable interface {
	ApprovableType() string
	ApprovableID() string
}

/* SubjectRef is a bare (type, id) reference used when no loader is registered */
type SubjectRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (s SubjectRef) ApprovableType() string { return s.Type }
func (s SubjectRef) ApprovableID() string   { return s.ID }

/* SubjectLoader loads a subject of one kind by id */
type SubjectLoader func(ctx context.Context, id string) (Approvable, error)

/* SubjectRegistry maps subject kinds to loaders */
type SubjectRegistry struct {
	mu      sync.RWMutex
	loaders map[string]SubjectLoader
}

/* NewSubjectRegistry creates an empty registry */
func NewSubjectRegistry() *SubjectRegistry {
	return &SubjectRegistry{loaders: make(map[string]SubjectLoader)}
}

/* Register installs the loader for kind, replacing any previous one */
func (r *SubjectRegistry) Register(kind string, loader SubjectLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[kind] = loader
}

/* Kinds lists the registered kinds */
func (r *SubjectRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.loaders))
	for kind := range r.loaders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

/* Resolve loads the subject, falling back to a SubjectRef for unregistered kinds */
func (r *SubjectRegistry) Resolve(ctx context.Context, kind, id string) (Approvable, error) {
	r.mu.RLock()
	loader, ok := r.loaders[kind]
	r.mu.RUnlock()

	if !ok {
		return SubjectRef{Type: kind, ID: id}, nil
	}
	return loader(ctx, id)
}

/* SubjectName returns the short display name of a subject type ("App\Models\Invoice" -> "Invoice") */
func SubjectName(approvableType string) string {
	if i := strings.LastIndexAny(approvableType, `\/.`); i >= 0 {
		return approvableType[i+1:]
	}
	return approvableType
}

func validateSubject(subject Approvable) error {
	if subject == nil {
		return invalid("subject", "subject is required")
	}
	if strings.TrimSpace(subject.ApprovableType()) == "" {
		return invalid("approvable_type", "approvable type is required")
	}
	if strings.TrimSpace(subject.ApprovableID()) == "" {
		return invalid("approvable_id", "approvable id is required")
	}
	return nil
}

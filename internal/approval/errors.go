/*-------------------------------------------------------------------------
 *
 * errors.go
 *    Error taxonomy of the approval workflow
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/approval/errors.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"fmt"

	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/validation"
)

var (
	/* ErrNotFound: a referenced contact, approval, member or user does not exist */
	ErrNotFound = db.ErrNotFound
	/* ErrValidation: malformed input; nothing was written */
	ErrValidation = validation.ErrInvalid
)

func invalid(field, message string) error {
	return validation.NewError(field, message)
}

/* checkID reports a contact or approval id that is not a UUID as not found without querying */
func checkID(kind, id string) error {
	if err := validation.ValidateUUID(id, kind+"_id"); err != nil {
		return fmt.Errorf("%s not found: id='%s', %v: %w", kind, id, err, ErrNotFound)
	}
	return nil
}

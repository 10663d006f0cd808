package places

import (
	"github.com/google/uuid"
)

// AuthorizeOwner is the ownership gate: a pure equality check between a
// resource's recorded owner and the verified caller. It assumes the
// resource has already been loaded and found; existence is checked
// before this ever runs so a missing record surfaces as not-found, not
// as an authorization failure.
func AuthorizeOwner(resourceOwnerID uuid.UUID, callerID string) error {
	caller, err := uuid.Parse(callerID)
	if err != nil {
		return ErrNotAuthorized
	}

	if resourceOwnerID != caller {
		return ErrNotAuthorized
	}

	return nil
}

package airauth

import (
	"context"
	"errors"
	"fmt"
)

// resetSearchOrder is the fixed order credential stores are consulted when
// an operation only has an email to go by. User accounts vastly outnumber
// staff accounts, so they are probed first.
var resetSearchOrder = []Role{RoleUser, RoleAdmin, RoleSuperadmin}

// RoleDirectory maps each [Role] to its [CredentialStore]. Adding a role to
// the system means registering one more entry here; no flow logic changes.
type RoleDirectory struct {
	stores map[Role]CredentialStore
}

// NewRoleDirectory builds a directory over the given stores. Every role in
// [resetSearchOrder] must be present.
func NewRoleDirectory(stores map[Role]CredentialStore) (*RoleDirectory, error) {
	for _, role := range resetSearchOrder {
		if stores[role] == nil {
			return nil, fmt.Errorf("role directory: missing store for role %s", role)
		}
	}
	copied := make(map[Role]CredentialStore, len(stores))
	for r, s := range stores {
		copied[r] = s
	}
	return &RoleDirectory{stores: copied}, nil
}

// Store returns the credential store for a role.
func (d *RoleDirectory) Store(role Role) (CredentialStore, error) {
	s, ok := d.stores[role]
	if !ok {
		return nil, fmt.Errorf("role directory: no store for role %s", role)
	}
	return s, nil
}

// FindByEmail probes the stores in the fixed search order and returns the
// first account matching the email, together with the role it was found
// under. A miss in every store returns [ErrUserNotFound].
func (d *RoleDirectory) FindByEmail(ctx context.Context, email string) (*Account, Role, error) {
	for _, role := range resetSearchOrder {
		acc, err := d.stores[role].FindByEmail(ctx, email)
		if err == nil {
			return acc, role, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, "", fmt.Errorf("role directory: lookup %s: %w", role, err)
		}
	}
	return nil, "", ErrUserNotFound
}

// Package policy maps protected operations to the roles allowed to perform them.
// The table is static so the complete access policy can be read in one place.
package policy

import (
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"

	"github.com/pkg/errors"
)

// Operation names a protected use case.
type Operation string

const (
	OpGetProfile     Operation = "users.profile"
	OpUpdatePassword Operation = "users.update_password"
	OpRegisterAdmin  Operation = "users.register_admin"
	OpListUsers      Operation = "users.list"
	OpUpdateUser     Operation = "users.update"
	OpDeleteUser     Operation = "users.delete"
)

// Table maps each operation to its allowed roles.
type Table map[Operation]entity.Roles

// Default is the access policy of the service.
//
//nolint:gochecknoglobals
var Default = Table{
	OpGetProfile:     {entity.RoleUser, entity.RoleAdmin},
	OpUpdatePassword: {entity.RoleUser, entity.RoleAdmin},
	OpRegisterAdmin:  {entity.RoleAdmin},
	OpListUsers:      {entity.RoleAdmin},
	OpUpdateUser:     {entity.RoleAdmin},
	OpDeleteUser:     {entity.RoleAdmin},
}

// Authorize returns nil when role may perform op. Operations missing from the table are denied.
func (t Table) Authorize(op Operation, role entity.Role) error {
	allowed, ok := t[op]
	if !ok {
		return errors.Wrapf(domainerrors.ErrForbidden, "operation %q has no policy", op)
	}

	if !allowed.Contains(role) {
		return errors.Wrapf(domainerrors.ErrForbidden, "role %q may not perform %q", role, op)
	}

	return nil
}

package gatehouse

import (
	"errors"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/datastore"
)

var (
	// ErrAlreadyAssigned is returned when an action grant already exists.
	ErrAlreadyAssigned = action.ErrAlreadyAssigned

	// ErrNotFound is returned by lookups that must match exactly one row.
	ErrNotFound = datastore.ErrNotFound

	// ErrNoTenant is returned when no tenant can be resolved from the context.
	ErrNoTenant = datastore.ErrNoTenant

	// ErrUnauthenticated is returned when claims are read from a principal
	// that carries none.
	ErrUnauthenticated = errors.New("gatehouse: principal carries no claims")

	// ErrAccessDenied is returned by Enforce when a gate rejects the caller.
	ErrAccessDenied = errors.New("gatehouse: access denied")

	// ErrSessionExpired is returned when a token predates the user's last logout.
	ErrSessionExpired = errors.New("gatehouse: session expired")

	// ErrRoleNotFound is returned when a role cannot be found.
	ErrRoleNotFound = errors.New("gatehouse: role not found")

	// ErrPermissionNotFound is returned when a permission cannot be found.
	ErrPermissionNotFound = errors.New("gatehouse: permission not found")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("gatehouse: user not found")

	// ErrUserExists is returned when a username is already taken.
	ErrUserExists = errors.New("gatehouse: user already exists")

	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("gatehouse: invalid credentials")

	// ErrInvalidName is returned when a role, permission or action name is blank.
	ErrInvalidName = errors.New("gatehouse: invalid name")
)

package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTenantContextMissing means a tenant-scoped query was attempted
	// without an organization set on the DB session. Queries must fail with
	// this rather than silently returning zero rows.
	ErrTenantContextMissing = errors.New("tenant context missing")

	// ErrSessionConflict means an in-progress goal-setting session already
	// exists for the (organization, user, room) triple.
	ErrSessionConflict = errors.New("goal-setting session already in progress")

	// ErrInvalidSessionState means an operation was attempted against a
	// session that is not in the state the operation requires.
	ErrInvalidSessionState = errors.New("invalid session state")
)

package services

import "errors"

// Error taxonomy shared by every service. Handlers map these onto HTTP
// status codes; services wrap them with fmt.Errorf("...: %w", ...) to
// add detail without losing the class.
var (
	// ErrValidation: malformed input or a missing required field.
	ErrValidation = errors.New("validation error")

	// ErrNotFound: the target record is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized: no identity on the request, or the identity lacks
	// the admin role for an admin-only operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict: the write collides with an existing record, e.g. a
	// duplicate (owner, rut) pair or a state transition that already
	// happened.
	ErrConflict = errors.New("conflict")

	// ErrParse: the uploaded spreadsheet could not be read. Raised before
	// any write happens.
	ErrParse = errors.New("parse error")

	// ErrStorage: the database failed mid-operation; transactional work
	// is rolled back before this is returned.
	ErrStorage = errors.New("storage error")
)

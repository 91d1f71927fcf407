package board

import "errors"

// Domain error kinds. The request dispatcher matches on these with
// errors.Is and turns them into plain-text replies; they never reach
// the transport layer as faults.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("access denied")
	ErrWrongCredential   = errors.New("wrong password")
	ErrAlreadyOnline     = errors.New("user already logged in")
)

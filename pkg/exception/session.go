package exception

import "github.com/yanun0323/errors"

// Session errors. Every one of them is local to the call that observed it.
var (
	ErrNotAuthenticated = errors.New("session: not authenticated")
	ErrSendFailed       = errors.New("session: send failed")
	ErrTimedOut         = errors.New("session: timed out waiting for reply")
	ErrDuplicateID      = errors.New("session: duplicate correlation id")
	ErrSessionClosed    = errors.New("session: closed")
	ErrInvalidState     = errors.New("session: invalid state transition")
	ErrAuthRejected     = errors.New("session: authentication rejected")
	ErrUnknownCall      = errors.New("session: unknown correlation id")
)

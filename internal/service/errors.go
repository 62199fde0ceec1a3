package service

import "errors"

var (
	ErrValidation         = errors.New("validation")          // 400
	ErrInvalidCredentials = errors.New("invalid credentials") // 401
	ErrAccessDenied       = errors.New("access denied")       // 403
	ErrNotFound           = errors.New("not found")           // 404
	ErrConflict           = errors.New("conflict")            // 409
	ErrInvalidTransition  = errors.New("invalid transition")  // 409
	ErrInsufficientStock  = errors.New("insufficient stock")  // 409
)

// Error pairs a sentinel kind with a message that is safe to show the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Kind.Error() + ": " + e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// PublicMessage returns the caller-facing message carried by err, if any.
func PublicMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Message, true
	}
	return "", false
}

var errAccessDenied = fail(ErrAccessDenied, "Access denied")

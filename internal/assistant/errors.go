package assistant

import (
	"errors"
	"fmt"
)

// Kind classifies assistant failures.
type Kind string

const (
	// KindConnect means the backend was unreachable or refused the request.
	KindConnect Kind = "connect"
	// KindModel means the backend answered but the result was unusable.
	KindModel Kind = "model"
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("assistant %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindConnect for untyped errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindConnect
}

func errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

package sshexec

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies executor failures so callers can report them without
// inspecting error strings.
type Kind string

const (
	KindAuth    Kind = "auth"    // bad or missing credentials
	KindNetwork Kind = "network" // unreachable host or no live connection
	KindTimeout Kind = "timeout" // no response within the configured bound
	KindExec    Kind = "exec"    // remote command ran but failed
)

// Error is the structured failure returned by every Executor operation.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ssh %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindNetwork for untyped errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNetwork
}

func errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// classifyDial maps an ssh.Dial failure onto the taxonomy. The ssh package
// does not expose typed auth errors, so the handshake message is matched.
func classifyDial(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") ||
		strings.Contains(msg, "permission denied") {
		return &Error{Kind: KindAuth, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}

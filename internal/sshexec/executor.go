// Package sshexec wraps a single remote SSH connection and runs one command
// at a time to completion. Each browser session owns exactly one Executor.
package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/gluk-w/aiterm/internal/logutil"
)

// Target identifies a remote host and the credentials to reach it. Password
// and KeyFile are mutually optional, but at least one must be supplied.
type Target struct {
	Host     string
	Port     int
	Username string
	Password string
	KeyFile  string
}

// Addr returns the dialable host:port form of the target.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, fmt.Sprintf("%d", port))
}

// Result carries the captured output of a completed remote command.
type Result struct {
	Output     string
	ExitStatus int
}

// Executor holds at most one live SSH connection. Connect replaces any
// existing connection; Disconnect is idempotent. Executor methods are safe
// for concurrent use, though each session serializes calls anyway.
type Executor struct {
	mu          sync.Mutex
	client      *ssh.Client
	dialTimeout time.Duration
	runTimeout  time.Duration
}

// New creates an Executor with the given dial and per-command timeouts.
func New(dialTimeout, runTimeout time.Duration) *Executor {
	return &Executor{
		dialTimeout: dialTimeout,
		runTimeout:  runTimeout,
	}
}

// Connect opens a connection to the target. Any existing connection is torn
// down before the dial, so a session never holds two channels and a failed
// reconnect leaves the executor disconnected rather than on the old channel.
// Failures are classified as KindAuth, KindNetwork or KindTimeout.
func (e *Executor) Connect(ctx context.Context, target Target) error {
	e.mu.Lock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
	e.mu.Unlock()

	if target.Host == "" {
		return errorf(KindNetwork, "host is required")
	}
	if target.Username == "" {
		return errorf(KindAuth, "username is required")
	}

	auth, err := authMethods(target)
	if err != nil {
		return err
	}

	cfg := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.dialTimeout,
	}

	addr := target.Addr()

	var client *ssh.Client
	var dialErr error
	dialDone := make(chan struct{})
	go func() {
		defer close(dialDone)
		client, dialErr = ssh.Dial("tcp", addr, cfg)
	}()

	select {
	case <-ctx.Done():
		return &Error{Kind: KindTimeout, Err: fmt.Errorf("connect to %s: %w", logutil.SanitizeForLog(addr), ctx.Err())}
	case <-dialDone:
		if dialErr != nil {
			return classifyDial(fmt.Errorf("connect to %s: %w", logutil.SanitizeForLog(addr), dialErr))
		}
	}

	e.mu.Lock()
	e.client = client
	e.mu.Unlock()

	log.Printf("[ssh] connected to %s@%s", logutil.SanitizeForLog(target.Username), logutil.SanitizeForLog(addr))
	return nil
}

// Run executes one command to completion and captures stdout and stderr.
// A non-zero exit returns a KindExec error alongside the captured output.
// On timeout the wait is abandoned; the remote process is not killed.
func (e *Executor) Run(ctx context.Context, command string) (Result, error) {
	e.mu.Lock()
	client := e.client
	e.mu.Unlock()

	if client == nil {
		return Result{}, errorf(KindNetwork, "not connected")
	}

	sess, err := client.NewSession()
	if err != nil {
		return Result{}, errorf(KindNetwork, "open session: %v", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	runCtx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- sess.Run(command)
	}()

	select {
	case <-runCtx.Done():
		return Result{}, errorf(KindTimeout, "command timed out after %s", e.runTimeout)
	case err = <-runDone:
	}

	res := Result{Output: pickOutput(stdout.String(), stderr.String())}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitStatus()
			return res, errorf(KindExec, "exit status %d", exitErr.ExitStatus())
		}
		return res, errorf(KindNetwork, "run command: %v", err)
	}
	return res, nil
}

// Disconnect releases the connection. It is idempotent and always succeeds.
func (e *Executor) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
		log.Printf("[ssh] disconnected")
	}
}

// Connected reports whether a live connection is held.
func (e *Executor) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client != nil
}

func authMethods(target Target) ([]ssh.AuthMethod, *Error) {
	if target.KeyFile != "" {
		keyData, err := os.ReadFile(target.KeyFile)
		if err != nil {
			return nil, errorf(KindAuth, "read private key %s: %v", logutil.SanitizeForLog(target.KeyFile), err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, errorf(KindAuth, "parse private key: %v", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if target.Password != "" {
		return []ssh.AuthMethod{ssh.Password(target.Password)}, nil
	}
	return nil, errorf(KindAuth, "either a password or a key file is required")
}

// pickOutput mirrors the terminal behavior users expect: stdout when the
// command produced any, otherwise whatever landed on stderr.
func pickOutput(stdout, stderr string) string {
	if stdout != "" {
		return stdout
	}
	return stderr
}

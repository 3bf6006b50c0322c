// Package session provides the CLI session to an edge router: command
// execution, configuration push and the reachability probe used before
// dialing.
package session

import (
	"context"
	"time"
)

// Session is a live CLI session with one device. Implementations must be
// closed by the caller on every path.
type Session interface {
	// Run executes one show command and returns its raw output.
	Run(ctx context.Context, command string) (string, error)
	// Configure enters configuration mode, applies lines in order and exits.
	Configure(ctx context.Context, lines []string) error
	// Close tears the session down.
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, address string, creds Credentials) (Session, error)
}

// Credentials are the operator's device credentials. They are held in memory
// only and never written to disk or logs.
type Credentials struct {
	Username string
	Password string
}

// String hides the password.
func (c Credentials) String() string {
	return c.Username + ":<redacted>"
}

// Options controls how sessions are dialed.
type Options struct {
	Port           int
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	// PingFirst probes the device with ICMP before dialing and reports it
	// unreachable without attempting SSH when no reply arrives.
	PingFirst bool
}

// DefaultOptions returns the dial defaults.
func DefaultOptions() Options {
	return Options{
		Port:           22,
		ConnectTimeout: 15 * time.Second,
		CommandTimeout: 60 * time.Second,
	}
}

// Package remote moves files to and runs commands on the cluster's login
// node. Two implementations are provided: one shelling out to the local ssh
// and scp binaries, one speaking SSH natively. Remote paths are trusted
// input; they are passed to the remote shell unquoted so that forms like
// ~/file keep working.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alcyonehq/alcyone/internal/logger"
)

// Transport kinds accepted by New.
const (
	KindCommand = "command"
	KindSSH     = "ssh"
)

// Transport is a synchronous, round-trip connection to the login node.
// Execute returns the command's combined output; the output is returned
// even when the command exits non-zero, since scheduler errors are printed
// rather than coded.
type Transport interface {
	Execute(ctx context.Context, command string) (string, error)
	Upload(ctx context.Context, localPath, remotePath string) error
	Download(ctx context.Context, remotePath, localPath string) error
	Close() error
}

// Options identify the login node and how to authenticate to it.
type Options struct {
	User           string
	Host           string
	Port           int
	KeyPath        string
	ConnectTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.Port == 0 {
		o.Port = 22
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 10 * time.Second
	}
}

func (o Options) validate() error {
	var missing []string
	if o.User == "" {
		missing = append(missing, "user")
	}
	if o.Host == "" {
		missing = append(missing, "host")
	}
	if len(missing) > 0 {
		return fmt.Errorf("transport options missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// New returns a transport of the requested kind. An empty kind selects the
// command transport, which needs no native key handling.
func New(kind string, opts Options) (Transport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	switch kind {
	case KindCommand, "":
		return NewCommandTransport(opts), nil
	case KindSSH:
		return NewSSHTransport(opts), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", kind)
	}
}

// WaitForReady probes the login node until a trivial command round-trips,
// retrying up to retries times with delay between attempts. Useful before a
// long pipeline when the node may still be coming up.
func WaitForReady(ctx context.Context, t Transport, retries int, delay time.Duration) error {
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		out, err := t.Execute(ctx, "echo SSH_READY")
		if err == nil && strings.Contains(out, "SSH_READY") {
			logger.Debugf("login node ready after %d probe(s)", attempt)
			return nil
		}
		if err == nil {
			err = fmt.Errorf("unexpected probe output %q", strings.TrimSpace(out))
		}
		lastErr = err
		logger.Warnf("login node probe %d/%d failed: %v", attempt, retries, err)

		if attempt < retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("login node not reachable after %d probes: %w", retries, lastErr)
}

package remote

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandTransport reaches the login node through the local ssh and scp
// binaries, so the operator's existing agent, config and known_hosts all
// apply. This is the default transport.
type CommandTransport struct {
	opts Options
}

// NewCommandTransport returns a transport that shells out to ssh and scp.
func NewCommandTransport(opts Options) *CommandTransport {
	opts.setDefaults()
	return &CommandTransport{opts: opts}
}

func (t *CommandTransport) target() string {
	return fmt.Sprintf("%s@%s", t.opts.User, t.opts.Host)
}

// baseArgs are shared by ssh and scp invocations: non-interactive, no host
// key prompt, bounded connect time, optional identity file.
func (t *CommandTransport) baseArgs(portFlag string) []string {
	args := []string{
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=no",
		"-o", fmt.Sprintf("ConnectTimeout=%d", int(t.opts.ConnectTimeout.Seconds())),
	}
	if t.opts.Port != 22 {
		args = append(args, portFlag, fmt.Sprintf("%d", t.opts.Port))
	}
	if t.opts.KeyPath != "" {
		args = append(args, "-i", t.opts.KeyPath)
	}
	return args
}

// Execute runs command on the login node and returns its combined output.
func (t *CommandTransport) Execute(ctx context.Context, command string) (string, error) {
	args := append(t.baseArgs("-p"), t.target(), command)
	out, err := exec.CommandContext(ctx, "ssh", args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("ssh %s %q: %w: %s", t.target(), command, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Upload copies a local file to remotePath via scp.
func (t *CommandTransport) Upload(ctx context.Context, localPath, remotePath string) error {
	args := append(t.baseArgs("-P"), localPath, t.target()+":"+remotePath)
	if out, err := exec.CommandContext(ctx, "scp", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("scp %s to %s:%s: %w: %s", localPath, t.target(), remotePath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Download copies remotePath to a local file via scp.
func (t *CommandTransport) Download(ctx context.Context, remotePath, localPath string) error {
	args := append(t.baseArgs("-P"), t.target()+":"+remotePath, localPath)
	if out, err := exec.CommandContext(ctx, "scp", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("scp %s:%s to %s: %w: %s", t.target(), remotePath, localPath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Close is a no-op; the command transport holds no connection state.
func (t *CommandTransport) Close() error { return nil }

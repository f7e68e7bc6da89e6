package remote

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
)

// SSHTransport speaks SSH natively, with no local client binaries. The
// connection is dialed lazily on first use and reused until Close; each
// operation runs in its own session. Requires a key file, since there is no
// agent or ssh config to fall back on.
type SSHTransport struct {
	opts Options

	mu     sync.RWMutex
	client *ssh.Client
}

// NewSSHTransport returns a transport that dials opts.Host directly.
func NewSSHTransport(opts Options) *SSHTransport {
	opts.setDefaults()
	return &SSHTransport{opts: opts}
}

// ensureConnected returns the live client, dialing on first use. Safe for
// concurrent callers; only one dial happens.
func (t *SSHTransport) ensureConnected() (*ssh.Client, error) {
	t.mu.RLock()
	c := t.client
	t.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client, nil
	}

	if t.opts.KeyPath == "" {
		return nil, fmt.Errorf("ssh transport requires a key file")
	}
	key, err := os.ReadFile(t.opts.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", t.opts.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key %s: %w", t.opts.KeyPath, err)
	}

	config := &ssh.ClientConfig{
		User:            t.opts.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.opts.ConnectTimeout,
	}
	addr := net.JoinHostPort(t.opts.Host, fmt.Sprintf("%d", t.opts.Port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	t.client = client
	return client, nil
}

// session opens a fresh session and arranges for ctx cancellation to tear
// it down mid-run.
func (t *SSHTransport) session(ctx context.Context) (*ssh.Session, func(), error) {
	client, err := t.ensureConnected()
	if err != nil {
		return nil, nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		return nil, nil, fmt.Errorf("open ssh session: %w", err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()
	cleanup := func() {
		close(done)
		session.Close()
	}
	return session, cleanup, nil
}

// Execute runs command on the login node and returns its combined output.
// A non-zero exit comes back as an error carrying the exit status; the
// output is still returned.
func (t *SSHTransport) Execute(ctx context.Context, command string) (string, error) {
	session, cleanup, err := t.session(ctx)
	if err != nil {
		return "", err
	}
	defer cleanup()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out
	if err := session.Run(command); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out.String(), ctxErr
		}
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return out.String(), fmt.Errorf("ssh %q: exit status %d: %s",
				command, exitErr.ExitStatus(), strings.TrimSpace(out.String()))
		}
		return out.String(), fmt.Errorf("ssh %q: %w", command, err)
	}
	return out.String(), nil
}

// Upload streams a local file into remotePath through a remote cat.
func (t *SSHTransport) Upload(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	session, cleanup, err := t.session(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var stderr bytes.Buffer
	session.Stdin = f
	session.Stderr = &stderr
	if err := session.Run(fmt.Sprintf("cat > %s", remotePath)); err != nil {
		return fmt.Errorf("upload %s to %s: %w: %s", localPath, remotePath, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Download copies remotePath into a local file through a remote cat.
func (t *SSHTransport) Download(ctx context.Context, remotePath, localPath string) error {
	session, cleanup, err := t.session(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var out, stderr bytes.Buffer
	session.Stdout = &out
	session.Stderr = &stderr
	if err := session.Run(fmt.Sprintf("cat %s", remotePath)); err != nil {
		return fmt.Errorf("download %s: %w: %s", remotePath, err, strings.TrimSpace(stderr.String()))
	}
	if err := os.WriteFile(localPath, out.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}
	return nil
}

// Close tears down the connection; the next operation re-dials.
func (t *SSHTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

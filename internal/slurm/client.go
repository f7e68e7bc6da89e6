// Package slurm talks to a SLURM scheduler through a login-node transport:
// it renders batch submission scripts, submits them with sbatch, and polls
// sacct accounting output for job completion.
package slurm

import (
	"context"
	"fmt"

	"github.com/alcyonehq/alcyone/internal/logger"
	"github.com/alcyonehq/alcyone/internal/remote"
)

// StageInput names the files one submission needs on both sides of the
// transport. Local paths are read; remote paths are created.
type StageInput struct {
	ScriptLocalPath  string
	ScriptRemotePath string
	SubmitLocalPath  string
	SubmitRemotePath string
}

// Client submits batch jobs through a login-node transport.
type Client struct {
	transport remote.Transport
}

// NewClient returns a Client that moves files and runs scheduler commands
// over t.
func NewClient(t remote.Transport) *Client {
	return &Client{transport: t}
}

// Stage uploads the payload script and the submission script to their
// remote paths.
func (c *Client) Stage(ctx context.Context, in StageInput) error {
	if err := c.transport.Upload(ctx, in.ScriptLocalPath, in.ScriptRemotePath); err != nil {
		return fmt.Errorf("upload payload script: %w", err)
	}
	if err := c.transport.Upload(ctx, in.SubmitLocalPath, in.SubmitRemotePath); err != nil {
		return fmt.Errorf("upload submission script: %w", err)
	}
	return nil
}

// Submit invokes sbatch against a staged submission script and returns the
// scheduler-assigned job id parsed from the acknowledgment. A run that
// exits non-zero or prints no acknowledgment surfaces as a SubmissionError
// carrying the raw output.
func (c *Client) Submit(ctx context.Context, remoteSubmitPath string) (string, error) {
	command := fmt.Sprintf("sbatch %s", remoteSubmitPath)
	logger.Debugf("submitting batch job: %s", command)
	out, err := c.transport.Execute(ctx, command)
	if err != nil {
		return "", &SubmissionError{Output: out, Cause: err}
	}

	id, err := ParseSubmissionAck(out)
	if err != nil {
		return "", err
	}
	logger.Infof("scheduler accepted batch job %s", id)
	return id, nil
}

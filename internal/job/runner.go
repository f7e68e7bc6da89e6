package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alcyonehq/alcyone/internal/events"
	"github.com/alcyonehq/alcyone/internal/logger"
	"github.com/alcyonehq/alcyone/internal/remote"
	"github.com/alcyonehq/alcyone/internal/slurm"
	"github.com/alcyonehq/alcyone/internal/task"
)

// RetrievalError reports an artifact that could not be fetched after the
// scheduler reported the job visible. A COMPLETED job with a missing
// artifact is still a retrieval failure, not a poll failure.
type RetrievalError struct {
	Path  string
	Cause error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve %s: %v", e.Path, e.Cause)
}

func (e *RetrievalError) Unwrap() error { return e.Cause }

// Runner drives jobs through the pipeline over one transport. Each job is
// a strictly sequential chain of blocking round-trips; the only loop is
// the accounting poll.
type Runner struct {
	transport remote.Transport
	client    *slurm.Client

	// sleep paces the settle delay; swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
	// publish announces lifecycle events; swappable in tests.
	publish func(events.Event)
}

// NewRunner returns a Runner that submits through t.
func NewRunner(t remote.Transport) *Runner {
	return &Runner{
		transport: t,
		client:    slurm.NewClient(t),
		sleep:     sleepContext,
		publish:   events.Publish,
	}
}

// NewRunnerWithPublisher returns a Runner whose lifecycle events go through
// publish instead of the package-level bus.
func NewRunnerWithPublisher(t remote.Transport, publish func(events.Event)) *Runner {
	r := NewRunner(t)
	r.publish = publish
	return r
}

// Run drives j from Created to a terminal state and returns the artifact
// bytes on success. Jobs are single-use: terminal states are final, and a
// job that has left Created is never rerun.
func (r *Runner) Run(ctx context.Context, j *Job) ([]byte, error) {
	if j.State != StateCreated {
		return nil, fmt.Errorf("job %s is %s: jobs are single-use", j.ID, j.State)
	}

	logger.InfoWithFields("starting job", map[string]interface{}{
		"job_id": j.ID,
		"host":   j.Host,
		"user":   j.User,
	})

	payload, err := task.Package(j.Task, j.RemoteOutputPath())
	if err != nil {
		return nil, r.fail(j, StateFailed, err)
	}
	script, err := j.Script()
	if err != nil {
		return nil, r.fail(j, StateFailed, err)
	}
	r.transition(j, StatePackaged)

	stageDir, err := os.MkdirTemp("", "alcyone-stage-")
	if err != nil {
		return nil, r.fail(j, StateFailed, fmt.Errorf("create staging dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(stageDir); err != nil {
			logger.Warnf("cannot remove staging dir %s: %v", stageDir, err)
		}
	}()

	localInput := filepath.Join(stageDir, j.InputName())
	localSubmit := filepath.Join(stageDir, j.SubmitName())
	if err := os.WriteFile(localInput, []byte(payload), 0o600); err != nil {
		return nil, r.fail(j, StateFailed, fmt.Errorf("write payload: %w", err))
	}
	if err := os.WriteFile(localSubmit, []byte(script), 0o600); err != nil {
		return nil, r.fail(j, StateFailed, fmt.Errorf("write submission script: %w", err))
	}

	err = r.client.Stage(ctx, slurm.StageInput{
		ScriptLocalPath:  localInput,
		ScriptRemotePath: j.RemoteInputPath(),
		SubmitLocalPath:  localSubmit,
		SubmitRemotePath: j.RemoteSubmitPath(),
	})
	if err != nil {
		return nil, r.fail(j, StateFailed, err)
	}
	r.transition(j, StateUploaded)

	id, err := r.client.Submit(ctx, j.RemoteSubmitPath())
	if err != nil {
		return nil, r.fail(j, StateSubmissionFailed, err)
	}
	j.SchedulerJobID = id
	r.transition(j, StateSubmitted)

	r.transition(j, StatePolling)
	poller := slurm.NewPoller(r.transport, j.PollInterval, j.Timeout)
	row, err := poller.Wait(ctx, j.SchedulerJobID)
	if err != nil {
		var timedOut *slurm.PollTimeoutError
		if errors.As(err, &timedOut) {
			return nil, r.fail(j, StatePollTimedOut, err)
		}
		return nil, r.fail(j, StateFailed, err)
	}
	logger.InfoWithFields("job visible in accounting output", map[string]interface{}{
		"job_id":    j.ID,
		"batch_id":  j.SchedulerJobID,
		"row_id":    row.JobID(),
		"row_state": row.State(),
	})

	artifact, err := r.retrieve(ctx, j)
	if err != nil {
		return nil, r.fail(j, StateRetrievalFailed, err)
	}

	r.transition(j, StateCompleted)
	r.publish(events.Event{
		Type:           events.EventJobCompleted,
		JobID:          j.ID,
		State:          j.State.String(),
		SchedulerJobID: j.SchedulerJobID,
	})
	return artifact, nil
}

// retrieve waits out the settle delay, then fetches the artifact the
// payload trailer wrote.
func (r *Runner) retrieve(ctx context.Context, j *Job) ([]byte, error) {
	if err := r.sleep(ctx, j.SettleDelay); err != nil {
		return nil, &RetrievalError{Path: j.RemoteOutputPath(), Cause: err}
	}
	return r.fetch(ctx, j.RemoteOutputPath())
}

// FetchLog downloads the scheduler's stdout log for a submitted job. It is
// a diagnostic read and does not change job state.
func (r *Runner) FetchLog(ctx context.Context, j *Job) ([]byte, error) {
	if j.SchedulerJobID == "" {
		return nil, fmt.Errorf("job %s has no scheduler id", j.ID)
	}
	return r.fetch(ctx, j.RemoteLogPath())
}

// fetch downloads one remote file through a scoped local temp dir and
// returns its contents.
func (r *Runner) fetch(ctx context.Context, remotePath string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "alcyone-fetch-")
	if err != nil {
		return nil, &RetrievalError{Path: remotePath, Cause: err}
	}
	defer os.RemoveAll(dir)

	localPath := filepath.Join(dir, filepath.Base(remotePath))
	if err := r.transport.Download(ctx, remotePath, localPath); err != nil {
		return nil, &RetrievalError{Path: remotePath, Cause: err}
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, &RetrievalError{Path: remotePath, Cause: err}
	}
	return data, nil
}

// transition advances the job's state and announces it.
func (r *Runner) transition(j *Job, s State) {
	j.State = s
	logger.Infof("job %s: %s", j.ID, s)
	r.publish(events.Event{
		Type:           events.EventJobStateChanged,
		JobID:          j.ID,
		State:          s.String(),
		SchedulerJobID: j.SchedulerJobID,
	})
}

// fail moves the job to a terminal failure state and hands err back for
// the caller to propagate.
func (r *Runner) fail(j *Job, s State, err error) error {
	j.State = s
	j.Error = err.Error()
	logger.ErrorWithFields("job failed", map[string]interface{}{
		"job_id": j.ID,
		"state":  s.String(),
		"error":  err.Error(),
	})
	r.publish(events.Event{
		Type:           events.EventJobStateChanged,
		JobID:          j.ID,
		State:          s.String(),
		SchedulerJobID: j.SchedulerJobID,
	})
	r.publish(events.Event{
		Type:           events.EventJobFailed,
		JobID:          j.ID,
		State:          s.String(),
		SchedulerJobID: j.SchedulerJobID,
		Reason:         err.Error(),
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

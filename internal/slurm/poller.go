package slurm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alcyonehq/alcyone/internal/logger"
)

// Default polling cadence. A job is given three minutes to show up in
// accounting output, checked every five seconds.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 3 * time.Minute
)

// CommandRunner runs one shell command on the scheduler's login node and
// returns its standard output.
type CommandRunner interface {
	Execute(ctx context.Context, command string) (string, error)
}

// PollTimeoutError reports a job that never appeared in accounting output
// within the polling budget.
type PollTimeoutError struct {
	SchedulerJobID string
	Attempts       int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("job %s not visible in accounting output after %d polls", e.SchedulerJobID, e.Attempts)
}

// Poller watches scheduler accounting output for a submitted job.
type Poller struct {
	runner   CommandRunner
	interval time.Duration
	timeout  time.Duration

	// sleep is swappable so tests can count attempts without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller returns a Poller that queries through runner every interval
// until timeout is exhausted.
func NewPoller(runner CommandRunner, interval, timeout time.Duration) *Poller {
	return &Poller{
		runner:   runner,
		interval: interval,
		timeout:  timeout,
		sleep:    sleepContext,
	}
}

// Attempts returns the number of accounting queries Wait will make: the
// timeout divided into interval steps, rounded up, never less than one.
func (p *Poller) Attempts() int {
	if p.interval <= 0 {
		return 1
	}
	n := int((p.timeout + p.interval - 1) / p.interval)
	if n < 1 {
		n = 1
	}
	return n
}

// Wait polls accounting output until at least one row for schedulerJobID
// appears, then returns the last matching row in that response. Sub-step
// rows such as "77.batch" count as matches for job "77"; the last row is
// the convention for the most complete sub-step. Exhausting the budget
// without a match returns a PollTimeoutError. Malformed accounting output
// and transport failures abort the wait immediately.
func (p *Poller) Wait(ctx context.Context, schedulerJobID string) (StatusRow, error) {
	attempts := p.Attempts()
	command := fmt.Sprintf("sacct -j %s", schedulerJobID)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.interval); err != nil {
				return nil, err
			}
		}

		out, err := p.runner.Execute(ctx, command)
		if err != nil {
			return nil, fmt.Errorf("query accounting for job %s: %w", schedulerJobID, err)
		}
		rows, err := ParseTable(out)
		if err != nil {
			return nil, err
		}

		var match StatusRow
		for _, row := range rows {
			if baseJobID(row.JobID()) == schedulerJobID {
				match = row
			}
		}
		if match != nil {
			logger.Debugf("job %s visible in accounting output after %d of %d polls, state %s",
				schedulerJobID, attempt, attempts, match.State())
			return match, nil
		}
		logger.Debugf("job %s not yet in accounting output, poll %d of %d", schedulerJobID, attempt, attempts)
	}
	return nil, &PollTimeoutError{SchedulerJobID: schedulerJobID, Attempts: attempts}
}

func baseJobID(id string) string {
	return strings.SplitN(id, ".", 2)[0]
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

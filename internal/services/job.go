// Package services coordinates job runs for the server surfaces: an
// in-memory registry of every job this process has handled, one goroutine
// per run, and the optional submission history write. Jobs are independent;
// the service adds no cross-job coordination.
package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alcyonehq/alcyone/internal/db/models"
	"github.com/alcyonehq/alcyone/internal/db/repos"
	"github.com/alcyonehq/alcyone/internal/events"
	"github.com/alcyonehq/alcyone/internal/job"
	"github.com/alcyonehq/alcyone/internal/logger"
	"github.com/alcyonehq/alcyone/internal/remote"
)

// JobView is a read-only snapshot of one job, safe to serve while the run
// goroutine mutates the live Job.
type JobView struct {
	ID             string    `json:"id"`
	State          string    `json:"state"`
	SchedulerJobID string    `json:"scheduler_job_id,omitempty"`
	User           string    `json:"user"`
	Host           string    `json:"host"`
	Entrypoint     string    `json:"entrypoint"`
	Error          string    `json:"error,omitempty"`
	ArtifactBytes  int       `json:"artifact_bytes"`
	CreatedAt      time.Time `json:"created_at"`
}

// Options configures a JobService.
type Options struct {
	// Bus carries lifecycle events. Nil means the package-level default bus.
	Bus *events.Bus
	// History records one row per terminal run. Nil disables history.
	History *repos.SubmissionRepository
	// NewTransport opens the transport for one run. Nil means remote.New.
	NewTransport func(kind string, opts remote.Options) (remote.Transport, error)
}

// JobService owns every job submitted through this process. Intermediate
// lifecycle states reach the registry through bus events; the terminal
// snapshot is written directly by the run goroutine, and stale events can
// never regress it.
type JobService struct {
	mu        sync.RWMutex
	views     map[string]*JobView
	artifacts map[string][]byte

	bus          *events.Bus
	history      *repos.SubmissionRepository
	newTransport func(kind string, opts remote.Options) (remote.Transport, error)
	wg           sync.WaitGroup
}

// NewJobService creates a new job service instance and subscribes it to
// lifecycle events.
func NewJobService(opts Options) *JobService {
	s := &JobService{
		views:        make(map[string]*JobView),
		artifacts:    make(map[string][]byte),
		bus:          opts.Bus,
		history:      opts.History,
		newTransport: opts.NewTransport,
	}
	if s.bus == nil {
		s.bus = events.Default()
	}
	if s.newTransport == nil {
		s.newTransport = remote.New
	}
	s.bus.Subscribe(events.EventJobStateChanged, s.onStateChanged)
	s.bus.Subscribe(events.EventJobFailed, s.onFailed)
	return s
}

// Start starts the event processing loop feeding the registry.
func (s *JobService) Start(ctx context.Context) {
	s.bus.Start(ctx)
}

// Submit registers a new job and launches its run. It returns as soon as
// the job is registered; progress is observable through Get and List.
func (s *JobService) Submit(ctx context.Context, m *job.Manifest) (*JobView, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	j := job.New(m.Params())
	kind, topts := m.TransportOptions()

	s.mu.Lock()
	s.views[j.ID] = &JobView{
		ID:         j.ID,
		State:      j.State.String(),
		User:       j.User,
		Host:       j.Host,
		Entrypoint: j.Task.Entrypoint,
		CreatedAt:  j.CreatedAt,
	}
	view := *s.views[j.ID]
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, j, kind, topts)
	return &view, nil
}

// Get returns a snapshot of one job.
func (s *JobService) Get(id string) (*JobView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	if !ok {
		return nil, false
	}
	view := *v
	return &view, true
}

// List returns snapshots of every registered job, newest first.
func (s *JobService) List() []*JobView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*JobView, 0, len(s.views))
	for _, v := range s.views {
		view := *v
		out = append(out, &view)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Artifact returns the retrieved output artifact of a completed job.
func (s *JobService) Artifact(id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.artifacts[id]
	return data, ok
}

// Wait blocks until every launched run goroutine has finished.
func (s *JobService) Wait() {
	s.wg.Wait()
}

// run drives one job to a terminal state in its own goroutine.
func (s *JobService) run(ctx context.Context, j *job.Job, kind string, topts remote.Options) {
	defer s.wg.Done()

	transport, err := s.newTransport(kind, topts)
	if err != nil {
		j.State = job.StateFailed
		j.Error = err.Error()
		s.finish(ctx, j, nil)
		s.bus.Publish(events.Event{
			Type:  events.EventJobStateChanged,
			JobID: j.ID,
			State: j.State.String(),
		})
		s.bus.Publish(events.Event{
			Type:   events.EventJobFailed,
			JobID:  j.ID,
			State:  j.State.String(),
			Reason: err.Error(),
		})
		return
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logger.Warnf("close transport for job %s: %v", j.ID, err)
		}
	}()

	runner := job.NewRunnerWithPublisher(transport, s.bus.Publish)
	artifact, err := runner.Run(ctx, j)
	if err != nil {
		logger.Errorf("job %s ended %s: %v", j.ID, j.State, err)
	}
	s.finish(ctx, j, artifact)
}

// finish writes the authoritative terminal snapshot and the history row.
func (s *JobService) finish(ctx context.Context, j *job.Job, artifact []byte) {
	s.mu.Lock()
	if v, ok := s.views[j.ID]; ok {
		v.State = j.State.String()
		v.SchedulerJobID = j.SchedulerJobID
		v.Error = j.Error
		v.ArtifactBytes = len(artifact)
	}
	if len(artifact) > 0 {
		s.artifacts[j.ID] = artifact
	}
	s.mu.Unlock()

	s.writeHistory(ctx, j, len(artifact))
}

func (s *JobService) writeHistory(ctx context.Context, j *job.Job, artifactBytes int) {
	if s.history == nil {
		return
	}
	sub := &models.Submission{
		JobID:          j.ID,
		SchedulerJobID: j.SchedulerJobID,
		User:           j.User,
		Host:           j.Host,
		Entrypoint:     j.Task.Entrypoint,
		State:          j.State.String(),
		Error:          j.Error,
		ArtifactBytes:  int64(artifactBytes),
		StartedAt:      j.CreatedAt,
	}
	if err := s.history.Create(ctx, sub); err != nil {
		logger.Warnf("cannot record submission history for job %s: %v", j.ID, err)
	}
}

// onStateChanged mirrors intermediate lifecycle transitions into the
// registry. Terminal view states are final: late events are ignored.
func (s *JobService) onStateChanged(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[e.JobID]
	if !ok {
		return nil
	}
	if current, err := job.ParseState(v.State); err == nil && current.IsTerminal() {
		return nil
	}
	v.State = e.State
	if e.SchedulerJobID != "" {
		v.SchedulerJobID = e.SchedulerJobID
	}
	return nil
}

// onFailed records the failure reason for display.
func (s *JobService) onFailed(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[e.JobID]; ok && v.Error == "" {
		v.Error = e.Reason
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/alcyonehq/alcyone/internal/db/models"
	"github.com/alcyonehq/alcyone/internal/db/repos"
	"github.com/alcyonehq/alcyone/internal/events"
	"github.com/alcyonehq/alcyone/internal/job"
	"github.com/alcyonehq/alcyone/internal/remote"
	"github.com/alcyonehq/alcyone/internal/slurm"
	"github.com/alcyonehq/alcyone/internal/task"
)

const (
	ackOutput = "Submitted batch job 77\n"

	accountingHeader = "       JobID      State\n------------ ----------\n"
	matchTable       = accountingHeader + "77            COMPLETED\n"
)

// scriptedTransport replays queued command outputs (the last one repeats)
// and serves a fixed artifact on Download.
type scriptedTransport struct {
	mu       sync.Mutex
	replies  []string
	calls    int
	artifact []byte
}

func (f *scriptedTransport) Execute(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return "", nil
	}
	i := f.calls
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	f.calls++
	return f.replies[i], nil
}

func (f *scriptedTransport) Upload(_ context.Context, _, _ string) error { return nil }

func (f *scriptedTransport) Download(_ context.Context, _, localPath string) error {
	return os.WriteFile(localPath, f.artifact, 0o600)
}

func (f *scriptedTransport) Close() error { return nil }

func testManifest() *job.Manifest {
	return &job.Manifest{
		Task: task.Definition{
			Source:     "def compute():\n    return b'ok'\n",
			Entrypoint: "compute",
		},
		Remote: job.RemoteConfig{
			User: "alger",
			Host: "miasma",
		},
		Resources:    slurm.BatchParams{GPUs: 1},
		Timeout:      job.Duration(10 * time.Millisecond),
		PollInterval: job.Duration(time.Millisecond),
		SettleDelay:  job.Duration(time.Millisecond),
	}
}

func startedBus(t *testing.T) *events.Bus {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	bus := events.NewBus(events.EventChannelSize)
	bus.Start(ctx)
	return bus
}

func newTestService(t *testing.T, tr remote.Transport, history *repos.SubmissionRepository) *JobService {
	t.Helper()
	return NewJobService(Options{
		Bus:     startedBus(t),
		History: history,
		NewTransport: func(_ string, _ remote.Options) (remote.Transport, error) {
			return tr, nil
		},
	})
}

func historyRepo(t *testing.T) *repos.SubmissionRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_json=1"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Submission{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repos.NewSubmissionRepository(db)
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	artifact := []byte("service artifact")
	tr := &scriptedTransport{
		replies:  []string{ackOutput, matchTable},
		artifact: artifact,
	}
	s := newTestService(t, tr, nil)

	view, err := s.Submit(context.Background(), testManifest())
	require.NoError(t, err)
	assert.Equal(t, "created", view.State)
	assert.Equal(t, "alger", view.User)
	assert.Equal(t, "compute", view.Entrypoint)

	s.Wait()

	final, ok := s.Get(view.ID)
	require.True(t, ok)
	assert.Equal(t, "completed", final.State)
	assert.Equal(t, "77", final.SchedulerJobID)
	assert.Empty(t, final.Error)
	assert.Equal(t, len(artifact), final.ArtifactBytes)

	got, ok := s.Artifact(view.ID)
	require.True(t, ok)
	assert.Equal(t, artifact, got)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, view.ID, list[0].ID)
}

func TestSubmitRejectsInvalidManifest(t *testing.T) {
	s := newTestService(t, &scriptedTransport{}, nil)

	_, err := s.Submit(context.Background(), &job.Manifest{})
	require.Error(t, err)
	assert.Empty(t, s.List(), "nothing registers for a rejected manifest")
}

func TestSubmitTransportFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	s := NewJobService(Options{
		Bus: startedBus(t),
		NewTransport: func(_ string, _ remote.Options) (remote.Transport, error) {
			return nil, dialErr
		},
	})

	view, err := s.Submit(context.Background(), testManifest())
	require.NoError(t, err)
	s.Wait()

	final, ok := s.Get(view.ID)
	require.True(t, ok)
	assert.Equal(t, "failed", final.State)
	assert.Contains(t, final.Error, "connection refused")

	_, ok = s.Artifact(view.ID)
	assert.False(t, ok)
}

func TestSubmitRecordsHistory(t *testing.T) {
	repo := historyRepo(t)
	tr := &scriptedTransport{
		replies:  []string{ackOutput, matchTable},
		artifact: []byte("history artifact"),
	}
	s := newTestService(t, tr, repo)

	view, err := s.Submit(context.Background(), testManifest())
	require.NoError(t, err)
	s.Wait()

	sub, err := repo.GetByJobID(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", sub.State)
	assert.Equal(t, "77", sub.SchedulerJobID)
	assert.Equal(t, "alger", sub.User)
	assert.Equal(t, "miasma", sub.Host)
	assert.Equal(t, "compute", sub.Entrypoint)
	assert.EqualValues(t, len("history artifact"), sub.ArtifactBytes)
}

func TestGetUnknownJob(t *testing.T) {
	s := newTestService(t, &scriptedTransport{}, nil)
	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestRegistryMirrorsLifecycleEvents(t *testing.T) {
	s := NewJobService(Options{
		Bus: events.NewBus(8),
		NewTransport: func(_ string, _ remote.Options) (remote.Transport, error) {
			return &scriptedTransport{}, nil
		},
	})
	s.views["abc"] = &JobView{ID: "abc", State: "created"}

	require.NoError(t, s.onStateChanged(context.Background(), events.Event{
		Type:           events.EventJobStateChanged,
		JobID:          "abc",
		State:          "polling",
		SchedulerJobID: "77",
	}))
	assert.Equal(t, "polling", s.views["abc"].State)
	assert.Equal(t, "77", s.views["abc"].SchedulerJobID)

	// Terminal view states are final.
	s.views["abc"].State = "completed"
	require.NoError(t, s.onStateChanged(context.Background(), events.Event{
		Type:  events.EventJobStateChanged,
		JobID: "abc",
		State: "polling",
	}))
	assert.Equal(t, "completed", s.views["abc"].State)

	require.NoError(t, s.onFailed(context.Background(), events.Event{
		Type:   events.EventJobFailed,
		JobID:  "abc",
		Reason: "boom",
	}))
	assert.Equal(t, "boom", s.views["abc"].Error)

	// Events for jobs this process never registered are ignored.
	require.NoError(t, s.onStateChanged(context.Background(), events.Event{
		Type:  events.EventJobStateChanged,
		JobID: "stranger",
		State: "polling",
	}))
	_, ok := s.Get("stranger")
	assert.False(t, ok)
}

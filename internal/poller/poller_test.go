package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rgallego/genstudio-api/internal/job"
)

// stubService records reconcile calls with overridable behavior per id.
type stubService struct {
	mu          sync.Mutex
	activeIDs   []string
	activeErr   error
	reconciled  map[string]int
	reconcileFn func(id string) (*job.Record, error)
}

func newStubService(ids ...string) *stubService {
	return &stubService{
		activeIDs:  ids,
		reconciled: make(map[string]int),
	}
}

func (s *stubService) ActiveJobs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	return append([]string(nil), s.activeIDs...), nil
}

func (s *stubService) Reconcile(_ context.Context, id string) (*job.Record, error) {
	s.mu.Lock()
	s.reconciled[id]++
	s.mu.Unlock()
	if s.reconcileFn != nil {
		return s.reconcileFn(id)
	}
	return &job.Record{ID: id}, nil
}

func (s *stubService) calls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciled[id]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPoller_ReconcilesActiveJobs(t *testing.T) {
	svc := newStubService("job-1", "job-2")
	p := New(svc, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		return svc.calls("job-1") >= 2 && svc.calls("job-2") >= 2
	}, time.Second, 5*time.Millisecond, "every active job is reconciled on each tick")
}

func TestPoller_OneFailureDoesNotBlockOthers(t *testing.T) {
	svc := newStubService("job-bad", "job-good")
	svc.reconcileFn = func(id string) (*job.Record, error) {
		if id == "job-bad" {
			return nil, errors.New("provider exploded")
		}
		return &job.Record{ID: id}, nil
	}
	p := New(svc, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		return svc.calls("job-good") >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestPoller_PanicDoesNotKillLoop(t *testing.T) {
	svc := newStubService("job-panics", "job-ok")
	svc.reconcileFn = func(id string) (*job.Record, error) {
		if id == "job-panics" {
			panic("adapter bug")
		}
		return &job.Record{ID: id}, nil
	}
	p := New(svc, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		return svc.calls("job-ok") >= 2
	}, time.Second, 5*time.Millisecond, "the loop survives a panicking reconcile")
}

func TestPoller_ListErrorSkipsTick(t *testing.T) {
	svc := newStubService("job-1")
	svc.activeErr = errors.New("store unavailable")
	p := New(svc, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	cancel()

	assert.Zero(t, svc.calls("job-1"), "no reconciliation when listing fails")
}

func TestPoller_StopsOnContextCancel(t *testing.T) {
	svc := newStubService("job-1")
	p := New(svc, time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(newStubService(), 0, nil)
	assert.Equal(t, 5*time.Second, p.interval)
	assert.NotNil(t, p.logger)
}

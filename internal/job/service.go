package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/rgallego/genstudio-api/internal/provider"
	"github.com/rgallego/genstudio-api/internal/storage"
)

// ErrUnsupportedKind is returned when no adapter is registered for the
// requested job kind.
var ErrUnsupportedKind = errors.New("job: unsupported kind")

// errAlreadyTerminal signals inside an Update mutator that the record reached
// a terminal state concurrently. The update becomes a no-op, never a second
// terminal write.
var errAlreadyTerminal = errors.New("job: record already terminal")

// ServiceConfig holds the orchestration policy knobs.
type ServiceConfig struct {
	// MaxSubmitRetries bounds automatic resubmission after transport errors.
	MaxSubmitRetries int
	// SubmitBackoffBase is the initial backoff, doubled per attempt.
	SubmitBackoffBase time.Duration
	// ProviderTimeout bounds each remote provider call.
	ProviderTimeout time.Duration
}

// DefaultServiceConfig returns the default orchestration policy.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSubmitRetries:  2,
		SubmitBackoffBase: 1 * time.Second,
		ProviderTimeout:   30 * time.Second,
	}
}

// SubmitInput contains the input for submitting a generation job.
type SubmitInput struct {
	Kind        Kind
	Parameters  map[string]any
	OwnerID     string
	WorkspaceID string
}

// Service orchestrates the job lifecycle: it validates submissions, delegates
// remote work to provider adapters, and owns the state machine advancing a
// record from submission to a terminal state. It also serves the read path.
type Service struct {
	repo     Repository
	adapters map[Kind]provider.Adapter
	archiver storage.Archiver
	cfg      ServiceConfig
	logger   *slog.Logger

	// lifecycle bounds detached submissions; Close cancels it so shutdown
	// drives in-flight submissions to failed(SubmissionAborted) instead of
	// leaving records pending with no handle to reconcile.
	lifecycle context.Context
	stop      context.CancelFunc
	inflight  sync.WaitGroup
}

// NewService creates the job orchestration service.
// The adapter mapping is resolved once at construction; archiver may be nil
// to disable result mirroring.
func NewService(repo Repository, adapters map[Kind]provider.Adapter, archiver storage.Archiver, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSubmitRetries < 0 {
		cfg.MaxSubmitRetries = 0
	}
	if cfg.SubmitBackoffBase <= 0 {
		cfg.SubmitBackoffBase = time.Second
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 30 * time.Second
	}
	lifecycle, stop := context.WithCancel(context.Background())
	return &Service{
		repo:      repo,
		adapters:  adapters,
		archiver:  archiver,
		cfg:       cfg,
		logger:    logger,
		lifecycle: lifecycle,
		stop:      stop,
	}
}

// Close aborts in-flight remote submissions and waits for them to resolve.
// Each unfinished submission fails its record with SubmissionAborted.
func (s *Service) Close() {
	s.stop()
	s.inflight.Wait()
}

// Submit validates the request, persists a pending record, and starts remote
// work. For asynchronous kinds it returns immediately; the remote submission
// proceeds in the background with bounded retries. For synchronous kinds the
// record is completed or failed before returning and generation errors are
// returned directly.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*Record, error) {
	if !input.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, input.Kind)
	}
	adapter, ok := s.adapters[input.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, input.Kind)
	}

	// Fail fast before any record exists.
	if err := adapter.Validate(input.Parameters); err != nil {
		return nil, err
	}

	rec := New(input.Kind, input.Parameters, input.OwnerID, input.WorkspaceID)
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("job: create record: %w", err)
	}

	s.logger.Info("job submitted",
		slog.String("job_id", rec.ID),
		slog.String("kind", string(rec.Kind)),
		slog.String("owner_id", rec.OwnerID),
	)

	if syncAdapter, ok := adapter.(provider.Synchronous); ok {
		return s.runSynchronous(ctx, rec, syncAdapter)
	}

	// Detach from the request context so the submission survives the
	// response being written; the service lifecycle bounds it instead.
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.submitRemote(s.lifecycle, adapter, rec.ID, input.Parameters)
	}()

	return rec, nil
}

// runSynchronous executes a single call-and-complete kind: pending moves
// directly to completed or failed with no polling phase.
func (s *Service) runSynchronous(ctx context.Context, rec *Record, syncAdapter provider.Synchronous) (*Record, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	result, genErr := syncAdapter.Generate(callCtx, rec.Parameters)
	if genErr != nil {
		failed, err := s.repo.Update(ctx, rec.ID, func(r *Record) error {
			return r.Fail(failureFrom(FailureProvider, genErr))
		})
		if err != nil {
			return nil, err
		}
		return failed, genErr
	}

	return s.repo.Update(ctx, rec.ID, func(r *Record) error {
		return r.Complete(resultFromProvider(result))
	})
}

// submitRemote performs the remote submission with bounded retry and
// exponential backoff on transport errors. It runs detached from the
// originating request.
func (s *Service) submitRemote(ctx context.Context, adapter provider.Adapter, id string, params map[string]any) {
	// Record writes must land even after the lifecycle is cancelled.
	writeCtx := context.WithoutCancel(ctx)
	backoff := s.cfg.SubmitBackoffBase
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxSubmitRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				s.failSubmission(writeCtx, id, FailureSubmissionAborted, ctx.Err())
				return
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
		handle, err := adapter.Submit(callCtx, params)
		cancel()

		if err == nil {
			s.attachHandle(writeCtx, adapter, id, handle)
			return
		}

		if ctx.Err() != nil {
			// Cancelled before a handle was obtained: the record must not be
			// silently dropped.
			s.failSubmission(writeCtx, id, FailureSubmissionAborted, ctx.Err())
			return
		}
		if !provider.IsTransport(err) {
			s.failSubmission(writeCtx, id, FailureProvider, err)
			return
		}

		lastErr = err
		s.logger.Warn("job submission attempt failed",
			slog.String("job_id", id),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	s.failSubmission(writeCtx, id, FailureSubmissionExhausted, lastErr)
}

// attachHandle stores the provider handle and advances pending to processing.
// If the record reached a terminal state while the submission was in flight,
// the handle is still persisted so the remote job always has a local record
// pointing at it, then remote cancellation is attempted best-effort.
func (s *Service) attachHandle(ctx context.Context, adapter provider.Adapter, id string, handle provider.Handle) {
	var wasTerminal bool
	rec, err := s.repo.Update(ctx, id, func(r *Record) error {
		r.ProviderJobID = handle.ProviderJobID
		if r.IsTerminal() {
			wasTerminal = true
			return nil
		}
		return r.TransitionTo(StatusProcessing)
	})
	if err == nil && wasTerminal {
		s.logger.Info("job finished before remote handle arrived, cancelling remote work",
			slog.String("job_id", id),
			slog.String("provider_job_id", handle.ProviderJobID),
		)
		if cerr := adapter.Cancel(ctx, handle); cerr != nil {
			s.logger.Warn("remote cancellation failed",
				slog.String("job_id", id),
				slog.String("error", cerr.Error()),
			)
		}
		return
	}
	if err != nil {
		s.logger.Error("failed to store provider handle",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("job accepted by provider",
		slog.String("job_id", rec.ID),
		slog.String("provider_job_id", rec.ProviderJobID),
	)
}

// failSubmission marks the record failed with the given failure kind.
// A record that reached a terminal state concurrently is left untouched.
func (s *Service) failSubmission(ctx context.Context, id, kind string, cause error) {
	_, err := s.repo.Update(ctx, id, func(r *Record) error {
		if r.IsTerminal() {
			return errAlreadyTerminal
		}
		return r.Fail(failureFrom(kind, cause))
	})
	if err != nil && !errors.Is(err, errAlreadyTerminal) {
		s.logger.Error("failed to mark job as failed",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Warn("job submission failed",
		slog.String("job_id", id),
		slog.String("failure_kind", kind),
		slog.String("error", errString(cause)),
	)
}

// Reconcile refreshes local job state from provider-reported state. It is
// idempotent: terminal records are returned unchanged, and the poller and
// inbound webhooks may invoke it concurrently or redundantly for the same id.
func (s *Service) Reconcile(ctx context.Context, id string) (*Record, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsTerminal() {
		return rec, nil
	}
	if rec.ProviderJobID == "" {
		// Submission still in flight; nothing to poll yet.
		return rec, nil
	}

	adapter, ok := s.adapters[rec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, rec.Kind)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	status, pollErr := adapter.Poll(callCtx, provider.Handle{ProviderJobID: rec.ProviderJobID})
	cancel()
	if pollErr != nil {
		switch provider.KindOf(pollErr) {
		case provider.ErrorKindAuth, provider.ErrorKindNotFound:
			// Fatal to the job: the provider will never report progress.
			return s.applyUpdate(ctx, id, func(r *Record) error {
				return r.Fail(failureFrom(FailureProvider, pollErr))
			})
		default:
			// Transient: leave the record as is and let the next cycle retry.
			s.logger.Warn("reconcile poll failed",
				slog.String("job_id", id),
				slog.String("error", pollErr.Error()),
			)
			return rec, nil
		}
	}

	switch status.State {
	case provider.StateSucceeded:
		result := status.Result
		if result == nil {
			fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
			result, err = adapter.FetchResult(fetchCtx, provider.Handle{ProviderJobID: rec.ProviderJobID})
			cancel()
			if err != nil {
				s.logger.Warn("fetching result failed",
					slog.String("job_id", id),
					slog.String("error", err.Error()),
				)
				return rec, nil
			}
		}
		jobResult := resultFromProvider(result)
		s.archiveResult(ctx, id, jobResult)
		return s.applyUpdate(ctx, id, func(r *Record) error {
			return r.Complete(jobResult)
		})

	case provider.StateFailed:
		failure := &Failure{Kind: FailureProvider}
		if status.Failure != nil {
			failure.Code = status.Failure.Code
			failure.Message = status.Failure.Message
		}
		return s.applyUpdate(ctx, id, func(r *Record) error {
			return r.Fail(failure)
		})

	default:
		// queued / running: record stays processing, touch updated_at only.
		return s.applyUpdate(ctx, id, func(r *Record) error {
			r.UpdatedAt = time.Now().UTC()
			return nil
		})
	}
}

// applyUpdate runs the mutator under the record lock, treating a concurrent
// terminal transition as a no-op: the second writer observes "already
// terminal" and returns the record unchanged.
func (s *Service) applyUpdate(ctx context.Context, id string, fn func(*Record) error) (*Record, error) {
	rec, err := s.repo.Update(ctx, id, func(r *Record) error {
		if r.IsTerminal() {
			return errAlreadyTerminal
		}
		return fn(r)
	})
	if errors.Is(err, errAlreadyTerminal) {
		return s.repo.FindByID(ctx, id)
	}
	return rec, err
}

// Cancel marks the job cancelled and, best-effort, requests provider-side
// cancellation. Local state is authoritative: a failed remote cancel does not
// block the local transition. Returns ErrConflict if the record is terminal.
func (s *Service) Cancel(ctx context.Context, id string) (*Record, error) {
	rec, err := s.repo.Update(ctx, id, func(r *Record) error {
		if r.IsTerminal() {
			return ErrConflict
		}
		return r.Cancel()
	})
	if err != nil {
		return nil, err
	}

	if rec.ProviderJobID != "" {
		if adapter, ok := s.adapters[rec.Kind]; ok {
			cancelCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
			defer cancel()
			if cerr := adapter.Cancel(cancelCtx, provider.Handle{ProviderJobID: rec.ProviderJobID}); cerr != nil {
				s.logger.Warn("remote cancellation failed",
					slog.String("job_id", id),
					slog.String("error", cerr.Error()),
				)
			}
		}
	}

	s.logger.Info("job cancelled", slog.String("job_id", id))
	return rec, nil
}

// Get returns the current record for the given id.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns records matching the filter, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Record, error) {
	return s.repo.List(ctx, f)
}

// ActiveJobs returns the ids of all non-terminal records, for the poller.
func (s *Service) ActiveJobs(ctx context.Context) ([]string, error) {
	return s.repo.ListActive(ctx)
}

// archiveResult mirrors result assets into owned storage, rewriting each URL
// that archives successfully. Failures are logged and leave the provider URL
// in place; completion is never blocked on archiving.
func (s *Service) archiveResult(ctx context.Context, id string, result *Result) {
	if s.archiver == nil || result == nil {
		return
	}
	for i, srcURL := range result.URLs {
		key := fmt.Sprintf("jobs/%s/%d%s", id, i, urlExt(srcURL))
		archived, err := s.archiver.Archive(ctx, key, srcURL)
		if err != nil {
			s.logger.Warn("archiving result asset failed",
				slog.String("job_id", id),
				slog.String("src_url", srcURL),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.URLs[i] = archived
	}
}

// urlExt extracts the file extension from a URL path, if any.
func urlExt(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}

// resultFromProvider maps a provider result onto the job record shape.
func resultFromProvider(r *provider.Result) *Result {
	if r == nil {
		return &Result{}
	}
	return &Result{
		URLs:        append([]string(nil), r.URLs...),
		DurationSec: r.DurationSec,
		Width:       r.Width,
		Height:      r.Height,
		Text:        r.Text,
	}
}

// failureFrom converts an adapter error into the record's failure shape.
func failureFrom(kind string, err error) *Failure {
	pf := provider.AsFailure(err)
	return &Failure{Kind: kind, Code: pf.Code, Message: pf.Message}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

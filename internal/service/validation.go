package service

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/validator"
	"github.com/data-validator/data-validator/pkg/metrics"
	"github.com/data-validator/data-validator/pkg/result"
)

const (
	DefaultPollInitial     = 250 * time.Millisecond
	DefaultPollMaxInterval = 2 * time.Second
	DefaultPollTimeout     = 30 * time.Second
)

// ValidationAPI is the part of the validation resource client the service
// drives.
type ValidationAPI interface {
	CreateCheck(ctx context.Context, check api.NewValidationCheck) result.Result[api.ValidationCheck]
	StartRun(ctx context.Context, checkID string) result.Result[api.RunAck]
	ListResults(ctx context.Context) result.Result[[]api.ValidationResult]
}

// PollOptions bound the wait for the result of a run. The first fetch
// happens after Initial; the interval then doubles up to MaxInterval. Timeout
// covers the whole wait.
type PollOptions struct {
	Initial     time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
}

func DefaultPollOptions() PollOptions {
	return PollOptions{
		Initial:     DefaultPollInitial,
		MaxInterval: DefaultPollMaxInterval,
		Timeout:     DefaultPollTimeout,
	}
}

func (p PollOptions) withDefaults() PollOptions {
	d := DefaultPollOptions()
	if p.Initial <= 0 {
		p.Initial = d.Initial
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	return p
}

// ValidationService runs checks and waits for their results.
type ValidationService struct {
	api       ValidationAPI
	poll      PollOptions
	validator *validator.Validator
}

func NewValidationService(validationAPI ValidationAPI, poll PollOptions) *ValidationService {
	return &ValidationService{
		api:       validationAPI,
		poll:      poll.withDefaults(),
		validator: validator.NewCheckValidator(),
	}
}

// CheckRun is the outcome of creating a check and running it. Result may be
// a failure even though the check was created.
type CheckRun struct {
	Check  api.ValidationCheck
	Result result.Result[api.ValidationResult]
}

// Run triggers checkID and returns the newest result recorded for it by
// this run. A failed trigger is returned as is, without polling.
func (s *ValidationService) Run(ctx context.Context, checkID string) result.Result[api.ValidationResult] {
	logger := zap.S().Named("validation_service").With("check_id", checkID)

	base := s.baseline(ctx, checkID)

	ack := s.api.StartRun(ctx, checkID)
	runAck, ok := ack.Value()
	if !ok {
		logger.Infow("failed to trigger run", "error", ack.Message())
		metrics.IncreaseValidationRunsMetric(metrics.OutcomeTriggerFailed)
		return result.Forward[api.ValidationResult](ack)
	}
	logger.Debugw("run triggered", "result_id", runAck.ResultId, "message", runAck.Message)

	found, err := s.await(ctx, checkID, runAck.ResultId, base)
	if err != nil {
		var notFound *ErrResultNotFound
		switch {
		case errors.As(err, &notFound):
			logger.Infow("no result before timeout", "timeout", s.poll.Timeout)
			metrics.IncreaseValidationRunsMetric(metrics.OutcomeNotFound)
			return result.Fail[api.ValidationResult](ResultNotFoundMessage)
		default:
			logger.Infow("failed to fetch results", "error", err)
			metrics.IncreaseValidationRunsMetric(metrics.OutcomeFetchFailed)
			return result.Fail[api.ValidationResult](err.Error())
		}
	}

	logger.Infow("run completed", "result_id", found.Id, "status", found.Status, "failed_records", found.Metrics.FailedRecords)
	recordResult(found)
	return result.Ok(found)
}

// runBaseline tells the results of a run apart from those recorded before
// it was triggered.
type runBaseline struct {
	// seen holds the ids listed for the check before the trigger. It is nil
	// when that listing failed.
	seen  map[string]struct{}
	since time.Time
}

// baseline lists the results of checkID before a run is triggered. A failed
// listing is not fatal: results created at or after the trigger time are
// then taken as new.
func (s *ValidationService) baseline(ctx context.Context, checkID string) runBaseline {
	base := runBaseline{since: time.Now()}

	res := s.api.ListResults(ctx)
	results, ok := res.Value()
	if !ok || results == nil {
		zap.S().Named("validation_service").Debugw("no result baseline", "check_id", checkID, "error", res.Message())
		return base
	}
	base.seen = make(map[string]struct{})
	for _, r := range results {
		if r.CheckId == checkID {
			base.seen[r.Id] = struct{}{}
		}
	}
	return base
}

func (b runBaseline) isNew(r api.ValidationResult) bool {
	if b.seen == nil {
		return !r.CreatedAt.Before(b.since)
	}
	_, old := b.seen[r.Id]
	return !old
}

// CreateAndRun validates and creates check, then runs it.
func (s *ValidationService) CreateAndRun(ctx context.Context, check api.NewValidationCheck) result.Result[CheckRun] {
	if err := s.validator.ValidateNewCheck(check); err != nil {
		return result.Fail[CheckRun](err.Error())
	}

	created := s.api.CreateCheck(ctx, check)
	c, ok := created.Value()
	if !ok {
		return result.Forward[CheckRun](created)
	}
	zap.S().Named("validation_service").Infow("check created", "check_id", c.Id, "check_type", c.CheckType)

	return result.Ok(CheckRun{Check: c, Result: s.Run(ctx, c.Id)})
}

// Latest returns the newest result of checkID without triggering a run.
func (s *ValidationService) Latest(ctx context.Context, checkID string) result.Result[api.ValidationResult] {
	r, err := s.fetchLatest(ctx, checkID, "", nil)
	if err != nil {
		var notFound *ErrResultNotFound
		if errors.As(err, &notFound) {
			return result.Fail[api.ValidationResult](ResultNotFoundMessage)
		}
		return result.Fail[api.ValidationResult](err.Error())
	}
	return result.Ok(r)
}

// await polls the result list until a result of checkID that is not part of
// base shows up. Fetch failures end the wait immediately.
func (s *ValidationService) await(ctx context.Context, checkID, resultID string, base runBaseline) (api.ValidationResult, error) {
	backoff := retry.NewExponential(s.poll.Initial)
	backoff = retry.WithCappedDuration(s.poll.MaxInterval, backoff)
	backoff = retry.WithMaxDuration(s.poll.Timeout, backoff)

	timer := time.NewTimer(s.poll.Initial)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return api.ValidationResult{}, ctx.Err()
	case <-timer.C:
	}

	var (
		found    api.ValidationResult
		attempts int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		r, err := s.fetchLatest(ctx, checkID, resultID, base.isNew)
		if err != nil {
			var notFound *ErrResultNotFound
			if errors.As(err, &notFound) {
				zap.S().Named("validation_service").Debugw("result not available yet", "check_id", checkID, "attempt", attempts)
				return retry.RetryableError(err)
			}
			return err
		}
		found = r
		return nil
	})
	return found, err
}

// fetchLatest lists the results and picks the latest of checkID among those
// accepted by keep. A nil keep accepts every result.
func (s *ValidationService) fetchLatest(ctx context.Context, checkID, resultID string, keep func(api.ValidationResult) bool) (api.ValidationResult, error) {
	res := s.api.ListResults(ctx)
	results, ok := res.Value()
	if !ok {
		return api.ValidationResult{}, NewErrFetchResults(res.Message())
	}
	if results == nil {
		return api.ValidationResult{}, NewErrFetchResults("")
	}
	if keep != nil {
		kept := make([]api.ValidationResult, 0, len(results))
		for _, r := range results {
			if keep(r) {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	latest, ok := LatestFor(results, checkID, resultID)
	if !ok {
		return api.ValidationResult{}, NewErrResultNotFound(checkID)
	}
	return latest, nil
}

// LatestFor returns the result of checkID with the greatest createdAt. Among
// equal timestamps the one appearing last in results wins. When resultID is
// set only that result is considered.
func LatestFor(results []api.ValidationResult, checkID, resultID string) (api.ValidationResult, bool) {
	var (
		latest api.ValidationResult
		found  bool
	)
	for _, r := range results {
		if r.CheckId != checkID {
			continue
		}
		if resultID != "" && r.Id != resultID {
			continue
		}
		if !found || !r.CreatedAt.Before(latest.CreatedAt.Time) {
			latest = r
			found = true
		}
	}
	return latest, found
}

func recordResult(r api.ValidationResult) {
	outcome, status := metrics.OutcomeFailed, 0.0
	if r.Status == api.ResultStatusPassed {
		outcome, status = metrics.OutcomePassed, 1.0
	}
	metrics.IncreaseValidationRunsMetric(outcome)
	metrics.UpdateCheckStatusMetric(r.CheckId, status, r.Metrics.FailedRecords)
}

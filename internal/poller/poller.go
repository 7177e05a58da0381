// Package poller drives a submitted remote job to a terminal state through
// repeated status checks. It knows nothing about the provider it polls.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/providers"
)

const (
	DefaultInterval           = 2 * time.Second
	DefaultTimeout            = 10 * time.Minute
	DefaultMaxTransientErrors = 3
)

// StatusFunc fetches the current status of one remote job.
type StatusFunc func(ctx context.Context, jobID string) (providers.Status, error)

// Options tunes a single Poll call. Zero values take the package defaults.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	// StartedAt is when the job was submitted; the timeout runs from here.
	StartedAt          time.Time
	MaxTransientErrors int
	OnProgress         func(providers.Status)
	// Retryable decides whether a failed status check is retried.
	Retryable func(error) bool
}

// Result is the terminal outcome of a poll.
type Result struct {
	State         domain.JobState
	Output        []string
	FailureReason string
	FailureCode   string
	Attempts      int
	Last          providers.Status
}

// Poller runs poll loops. It holds no per-job state, so one Poller serves any
// number of concurrent polls.
type Poller struct {
	clock  Clock
	logger *infra.Logger
}

func New(clock Clock, logger *infra.Logger) *Poller {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Poller{clock: clock, logger: infra.LoggerOrDiscard(logger)}
}

// Clock returns the clock the poller waits on.
func (p *Poller) Clock() Clock { return p.clock }

// Poll calls statusFn until the job reaches a terminal state, the timeout
// elapses, or ctx is canceled. Cancellation is observed between attempts; an
// attempt already in flight runs to completion.
func (p *Poller) Poll(ctx context.Context, jobID string, statusFn StatusFunc, opts Options) (*Result, error) {
	opts = withDefaults(opts)
	start := opts.StartedAt
	if start.IsZero() {
		start = p.clock.Now()
	}
	deadline := start.Add(opts.Timeout)
	log := p.logger.With().Str("provider_job_id", jobID).Logger()

	var (
		attempts    int
		consecutive int
		lastErr     error
	)
	for {
		if err := ctx.Err(); err != nil {
			log.Info().Int("attempts", attempts).Msg("poll canceled")
			return nil, &domain.CanceledError{ProviderJobID: jobID, Err: err}
		}

		attempts++
		status, err := statusFn(context.WithoutCancel(ctx), jobID)
		now := p.clock.Now()

		if err != nil {
			if !opts.Retryable(err) {
				log.Warn().Err(err).Int("attempt", attempts).Msg("status check failed permanently")
				return nil, asProviderError(err)
			}
			consecutive++
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempts).Int("consecutive", consecutive).Msg("status check failed, retrying")
			if consecutive > opts.MaxTransientErrors {
				if !now.Before(deadline) {
					return nil, &domain.TimeoutError{ProviderJobID: jobID, Timeout: opts.Timeout, Attempts: attempts}
				}
				return nil, fmt.Errorf("poller: %d consecutive status failures: %w", consecutive, asProviderError(lastErr))
			}
		} else {
			consecutive = 0
			p.notify(&log, opts.OnProgress, status)
			if status.State.Terminal() {
				log.Debug().Str("state", string(status.State)).Int("attempts", attempts).Msg("poll finished")
				return &Result{
					State:         status.State,
					Output:        status.Output,
					FailureReason: status.FailureReason,
					FailureCode:   status.FailureCode,
					Attempts:      attempts,
					Last:          status,
				}, nil
			}
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			log.Warn().Int("attempts", attempts).Dur("timeout", opts.Timeout).Msg("poll timed out")
			return nil, &domain.TimeoutError{ProviderJobID: jobID, Timeout: opts.Timeout, Attempts: attempts}
		}
		wait := opts.Interval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			log.Info().Int("attempts", attempts).Msg("poll canceled")
			return nil, &domain.CanceledError{ProviderJobID: jobID, Err: ctx.Err()}
		case <-p.clock.After(wait):
		}
	}
}

func (p *Poller) notify(log *infra.Logger, fn func(providers.Status), status providers.Status) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("progress callback panicked")
		}
	}()
	fn(status)
}

func withDefaults(opts Options) Options {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxTransientErrors <= 0 {
		opts.MaxTransientErrors = DefaultMaxTransientErrors
	}
	if opts.Retryable == nil {
		opts.Retryable = providers.IsTransient
	}
	return opts
}

func asProviderError(err error) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &domain.ProviderError{Message: err.Error(), Err: err}
}

package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mediastudio/internal/domain"
	"mediastudio/internal/orchestrator"
)

// jobRunner is the part of the orchestrator the worker drives.
type jobRunner interface {
	Run(ctx context.Context, kind domain.JobKind, input domain.JobInput, lc domain.LineageContext) (*orchestrator.Result, error)
	RetryPersist(ctx context.Context, res *orchestrator.Result) (*orchestrator.Result, error)
}

type jobWorker struct {
	requests    domain.RequestRepository
	runner      jobRunner
	logger      zerolog.Logger
	concurrency int
	idle        time.Duration
}

// Run starts one claim loop per concurrency slot and blocks until ctx is done.
func (w *jobWorker) Run(ctx context.Context) error {
	n := w.concurrency
	if n < 1 {
		n = 1
	}
	w.logger.Info().Int("concurrency", n).Msg("worker: started")

	g, ctx := errgroup.WithContext(ctx)
	for slot := 0; slot < n; slot++ {
		slot := slot
		g.Go(func() error {
			w.loop(ctx, slot)
			return nil
		})
	}
	return g.Wait()
}

func (w *jobWorker) loop(ctx context.Context, slot int) {
	log := w.logger.With().Int("slot", slot).Logger()
	for ctx.Err() == nil {
		worked, err := w.step(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("worker: claim failed")
		}
		if worked {
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(w.idle):
		}
	}
}

// step claims and processes at most one request. It reports whether a request
// was claimed.
func (w *jobWorker) step(ctx context.Context) (bool, error) {
	req, err := w.requests.Claim(ctx)
	if errors.Is(err, domain.ErrQueueEmpty) {
		return false, nil
	}
	if err != nil && req == nil {
		return false, err
	}

	log := w.logger.With().
		Str("request_id", req.ID).
		Str("job_kind", string(req.Kind)).
		Str("lineage_id", req.Lineage.LineageID).
		Logger()

	var outcome domain.RequestOutcome
	if err != nil {
		outcome = outcomeFor(nil, &domain.ValidationError{Field: "request", Message: err.Error()})
	} else {
		log.Info().Msg("worker: picked request")
		outcome = w.process(ctx, req)
	}

	// The outcome is recorded even when shutdown interrupted the run.
	if err := w.requests.Complete(context.WithoutCancel(ctx), req.ID, outcome); err != nil {
		log.Error().Err(err).Msg("worker: complete request failed")
		return true, nil
	}
	log.Info().
		Str("status", string(outcome.Status)).
		Str("error_kind", string(outcome.ErrorKind)).
		Str("result_id", outcome.ResultID).
		Msg("worker: request finished")
	return true, nil
}

func (w *jobWorker) process(ctx context.Context, req *domain.GenerationRequest) domain.RequestOutcome {
	res, err := w.runner.Run(ctx, req.Kind, req.Input, req.Lineage)

	var pe *domain.PersistenceError
	if errors.As(err, &pe) && res != nil && res.State == orchestrator.StatePersistedPartially {
		w.logger.Warn().Err(err).Str("request_id", req.ID).Msg("worker: retrying persistence")
		res, err = w.runner.RetryPersist(ctx, res)
	}
	return outcomeFor(res, err)
}

func outcomeFor(res *orchestrator.Result, err error) domain.RequestOutcome {
	var out domain.RequestOutcome
	if res != nil {
		out.ProviderJobID = res.Job.ProviderJobID
		if id := res.NodeID(); id != "" {
			out.ResultKind = res.NodeKind()
			out.ResultID = id
		}
	}

	switch {
	case err == nil:
		out.Status = domain.RequestStatusDone
		return out
	case res != nil && res.State == orchestrator.StatePersistedPartially:
		out.Status = domain.RequestStatusPersistedPartially
	default:
		out.Status = domain.RequestStatusFailed
	}
	out.ErrorKind = domain.KindOf(err)
	out.ErrorMessage = err.Error()
	return out
}

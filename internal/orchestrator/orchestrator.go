// Package orchestrator sequences one generation request end to end:
// validation, submission, polling, persistence and lineage placement.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/lineage"
	"mediastudio/internal/poller"
	"mediastudio/internal/providers"
)

// Options wires the orchestrator's collaborators.
type Options struct {
	Providers          *providers.Registry
	Store              domain.LineageStore
	Poller             *poller.Poller
	Logger             *infra.Logger
	Observer           Observer
	PollInterval       time.Duration
	PollTimeout        time.Duration
	MaxTransientErrors int
	// OnProgress receives the job after every status check.
	OnProgress func(job domain.GenerationJob)
	// PersistBackoff builds the retry policy of RetryPersist.
	PersistBackoff func() backoff.BackOff
}

// Orchestrator runs generation requests. Runs share no state, so one
// Orchestrator can serve concurrent callers.
type Orchestrator struct {
	providers      *providers.Registry
	store          domain.LineageStore
	poller         *poller.Poller
	logger         *infra.Logger
	observer       Observer
	builder        *lineage.Builder
	pollInterval   time.Duration
	pollTimeout    time.Duration
	maxTransient   int
	onProgress     func(domain.GenerationJob)
	persistBackoff func() backoff.BackOff
}

// Result is the outcome of a run. It is returned for every run that got past
// input decoding, successful or not.
type Result struct {
	State   State
	Kind    domain.JobKind
	Job     domain.GenerationJob
	Lineage domain.LineageContext

	EditedImage *domain.EditedImage
	Video       *domain.GeneratedVideo
	// RecordSaved is false while EditedImage or Video is an unsaved draft.
	RecordSaved bool
	Sources     []domain.VideoSource
	// PendingSources are video source links not yet written.
	PendingSources []domain.VideoSource
	// Position is the index of the new node in its lineage timeline, or -1
	// when it could not be determined.
	Position int
}

// NodeKind returns the kind of lineage node the run produces.
func (r *Result) NodeKind() domain.NodeKind {
	if r.Video != nil {
		return domain.NodeKindGeneratedVideo
	}
	return domain.NodeKindEditedImage
}

// NodeID returns the id of the saved record, or "".
func (r *Result) NodeID() string {
	switch {
	case !r.RecordSaved:
		return ""
	case r.Video != nil:
		return r.Video.ID
	case r.EditedImage != nil:
		return r.EditedImage.ID
	default:
		return ""
	}
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Providers == nil {
		return nil, errors.New("orchestrator: providers are required")
	}
	if opts.Store == nil {
		return nil, errors.New("orchestrator: store is required")
	}
	logger := infra.LoggerOrDiscard(opts.Logger)
	p := opts.Poller
	if p == nil {
		p = poller.New(poller.SystemClock{}, logger)
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	persistBackoff := opts.PersistBackoff
	if persistBackoff == nil {
		persistBackoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = 15 * time.Second
			return b
		}
	}
	return &Orchestrator{
		providers:      opts.Providers,
		store:          opts.Store,
		poller:         p,
		logger:         logger,
		observer:       observer,
		builder:        lineage.NewBuilder(logger),
		pollInterval:   opts.PollInterval,
		pollTimeout:    opts.PollTimeout,
		maxTransient:   opts.MaxTransientErrors,
		onProgress:     opts.OnProgress,
		persistBackoff: persistBackoff,
	}, nil
}

// run tracks the state machine of one Run call.
type run struct {
	o       *Orchestrator
	res     *Result
	log     zerolog.Logger
	started time.Time
}

func (r *run) to(next State) {
	prev := r.res.State
	if !canTransition(prev, next) {
		r.log.Error().Str("from", string(prev)).Str("to", string(next)).Msg("invalid state transition")
	}
	r.res.State = next
	r.log.Debug().Str("from", string(prev)).Str("state", string(next)).Msg("run transition")
	r.o.observer.OnTransition(r.res.Kind, prev, next)
	if next.Final() {
		r.o.observer.OnFinish(r.res.Kind, next, time.Since(r.started))
	}
}

func (r *run) fail(err error, msg string) (*Result, error) {
	r.res.Job.ErrorDetail = &domain.ErrorDetail{Kind: domain.KindOf(err), Message: err.Error()}
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.StatusCode > 0 {
		r.res.Job.ErrorDetail.Code = fmt.Sprint(pe.StatusCode)
	}
	r.log.Error().Err(err).Str("error_kind", string(domain.KindOf(err))).Msg(msg)
	r.to(StateFailed)
	return r.res, err
}

// Run validates input, submits it to the provider serving kind, polls the job
// to a terminal state and persists the output into the lineage described by
// lc. The returned Result is non-nil whenever err is non-nil too, except when
// kind has no provider. Identical calls create independent jobs.
func (o *Orchestrator) Run(ctx context.Context, kind domain.JobKind, input domain.JobInput, lc domain.LineageContext) (*Result, error) {
	r := &run{
		o: o,
		res: &Result{
			State:    StateIdle,
			Kind:     kind,
			Job:      domain.GenerationJob{Kind: kind, Input: input},
			Lineage:  lc,
			Position: -1,
		},
		log: o.logger.With().
			Str("job_kind", string(kind)).
			Str("lineage_id", lc.LineageID).
			Fields(input.Summary()).
			Logger(),
		started: time.Now(),
	}

	r.to(StateValidating)
	client, err := o.providers.Client(kind)
	if err != nil {
		return r.fail(err, "unsupported job kind")
	}
	if err := providers.Validate(kind, input); err != nil {
		return r.fail(err, "generation input rejected")
	}
	if err := lc.Validate(); err != nil {
		return r.fail(err, "generation input rejected")
	}

	r.to(StateSubmitting)
	r.log = r.log.With().Str("provider", client.Name()).Logger()
	jobID, err := client.Submit(ctx, input)
	if err != nil {
		return r.fail(err, "provider submit failed")
	}
	job := &r.res.Job
	job.ProviderJobID = jobID
	job.State = domain.JobStateSubmitted
	job.SubmittedAt = o.poller.Clock().Now()
	r.log = r.log.With().Str("provider_job_id", jobID).Logger()
	r.log.Info().Msg("generation submitted")

	r.to(StatePolling)
	polled, err := o.poller.Poll(ctx, jobID, client.Status, poller.Options{
		Interval:           o.pollInterval,
		Timeout:            o.pollTimeout,
		StartedAt:          job.SubmittedAt,
		MaxTransientErrors: o.maxTransient,
		OnProgress: func(st providers.Status) {
			job.State = st.State
			job.Progress = st.Progress
			job.LastPolledAt = o.poller.Clock().Now()
			if o.onProgress != nil {
				o.onProgress(*job)
			}
		},
	})
	if err != nil {
		job.State = domain.JobStateFailed
		var cerr *domain.CanceledError
		if errors.As(err, &cerr) {
			job.State = domain.JobStateCanceled
		}
		return r.fail(err, "polling stopped")
	}
	job.State = polled.State
	job.Output = polled.Output
	job.CompletedAt = o.poller.Clock().Now()

	switch polled.State {
	case domain.JobStateFailed:
		return r.fail(&domain.ProviderError{
			Provider: client.Name(),
			Message:  polled.FailureReason,
		}, "generation failed remotely")
	case domain.JobStateCanceled:
		return r.fail(&domain.CanceledError{ProviderJobID: jobID}, "generation canceled remotely")
	}
	if len(polled.Output) == 0 || strings.TrimSpace(polled.Output[0]) == "" {
		return r.fail(&domain.ProviderError{Provider: client.Name(), Message: "job succeeded without output"}, "generation returned no output")
	}

	r.to(StatePersisting)
	o.draft(r.res, client, polled.Output[0])
	if err := o.persist(ctx, r.res); err != nil {
		r.log.Error().Err(err).
			Bool("record_saved", r.res.RecordSaved).
			Int("pending_sources", len(r.res.PendingSources)).
			Str("output", polled.Output[0]).
			Msg("generation succeeded but saving failed")
		r.to(StatePersistedPartially)
		return r.res, err
	}
	r.res.Position = o.position(ctx, r.res)
	r.log.Info().Str("node_id", r.res.NodeID()).Int("position", r.res.Position).Msg("generation persisted")
	r.to(StateDone)
	return r.res, nil
}

// RetryPersist repeats only the persistence steps that failed in res, with
// exponential backoff. It never contacts the provider.
func (o *Orchestrator) RetryPersist(ctx context.Context, res *Result) (*Result, error) {
	if res == nil || res.State != StatePersistedPartially {
		return res, &domain.ValidationError{Field: "state", Message: "only partially persisted results can be retried"}
	}
	r := &run{
		o:   o,
		res: res,
		log: o.logger.With().
			Str("job_kind", string(res.Kind)).
			Str("lineage_id", res.Lineage.LineageID).
			Str("provider_job_id", res.Job.ProviderJobID).
			Logger(),
		started: time.Now(),
	}
	r.to(StatePersisting)

	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			o.observer.OnPersistRetry(res.Kind)
		}
		err := o.persist(ctx, res)
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warn().Err(err).Dur("retry_in", wait).Msg("saving generation result failed")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(o.persistBackoff(), ctx), notify); err != nil {
		r.to(StatePersistedPartially)
		return res, err
	}
	res.Position = o.position(ctx, res)
	r.log.Info().Str("node_id", res.NodeID()).Int("attempts", attempt).Msg("generation persisted on retry")
	r.to(StateDone)
	return res, nil
}

// draft builds the unsaved record for a successful job.
func (o *Orchestrator) draft(res *Result, client providers.JobClient, outputURL string) {
	in := res.Job.Input
	lc := res.Lineage
	sourceID, sourceType := lc.SourceID, lc.SourceType
	if sourceID == "" && len(lc.Sources) > 0 {
		sourceID, sourceType = lc.Sources[0].ID, lc.Sources[0].Type
	}
	var src *string
	if sourceID != "" {
		src = &sourceID
	}

	if in.ProducesImage(res.Kind) {
		prompt, ratio := in.Prompt, in.AspectRatio
		if res.Kind == domain.JobKindVideoGenerate {
			prompt, ratio = in.PromptText, in.Ratio
		}
		res.EditedImage = &domain.EditedImage{
			ProjectID:     lc.ProjectID,
			LineageID:     lc.LineageID,
			SourceID:      src,
			SourceType:    sourceType,
			Prompt:        prompt,
			Provider:      client.Name(),
			ProviderJobID: res.Job.ProviderJobID,
			ImageURL:      outputURL,
			AspectRatio:   ratio,
		}
		return
	}

	model := in.Model
	if m, ok := client.(interface{ ModelFor(domain.JobInput) string }); ok {
		model = m.ModelFor(in)
	}
	res.Video = &domain.GeneratedVideo{
		ProjectID:     lc.ProjectID,
		LineageID:     lc.LineageID,
		SourceID:      src,
		Prompt:        in.PromptText,
		Provider:      client.Name(),
		ProviderJobID: res.Job.ProviderJobID,
		Status:        domain.VideoStatusCompleted,
		VideoURL:      outputURL,
		Ratio:         in.Ratio,
		Model:         model,
	}
	for i, s := range lc.Sources {
		res.PendingSources = append(res.PendingSources, domain.VideoSource{
			SourceType: s.Type,
			SourceID:   s.ID,
			SortOrder:  i,
		})
	}
}

// persist writes whatever part of res is not yet saved. Video and video
// source writes are independent; progress is recorded in res so a later call
// resumes where this one stopped.
func (o *Orchestrator) persist(ctx context.Context, res *Result) error {
	if !res.RecordSaved {
		switch {
		case res.EditedImage != nil:
			saved, err := o.store.CreateEditedImage(ctx, res.EditedImage)
			if err != nil {
				return &domain.PersistenceError{Op: "create edited image", Err: err}
			}
			res.EditedImage = saved
		case res.Video != nil:
			saved, err := o.store.CreateGeneratedVideo(ctx, res.Video)
			if err != nil {
				return &domain.PersistenceError{Op: "create generated video", Err: err}
			}
			res.Video = saved
		default:
			return &domain.ValidationError{Field: "result", Message: "no record to persist"}
		}
		res.RecordSaved = true
	}

	for len(res.PendingSources) > 0 {
		next := res.PendingSources[0]
		saved, err := o.store.CreateVideoSource(ctx, res.Video.ID, next.SourceType, next.SourceID, next.SortOrder)
		if err != nil {
			return &domain.PersistenceError{Op: fmt.Sprintf("create video source %d", next.SortOrder), Err: err}
		}
		res.Sources = append(res.Sources, *saved)
		res.PendingSources = res.PendingSources[1:]
	}
	return nil
}

// position rebuilds the lineage timeline and locates the new node in it.
func (o *Orchestrator) position(ctx context.Context, res *Result) int {
	nodes, err := o.store.ListByLineage(ctx, res.Lineage.LineageID)
	if err != nil {
		o.logger.Warn().Err(err).Str("lineage_id", res.Lineage.LineageID).Msg("lineage reload failed")
		return -1
	}
	graph, err := o.builder.Build(res.Lineage.LineageID, nodes)
	if err != nil {
		o.logger.Warn().Err(err).Str("lineage_id", res.Lineage.LineageID).Msg("lineage rebuilt with integrity warning")
	}
	return graph.IndexOf(res.NodeID())
}

package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"xqtimeline/pkg/accounts"
	"xqtimeline/pkg/logger"
	"xqtimeline/pkg/pacer"
	"xqtimeline/pkg/timeline"
)

// FailureHook is called after an account fails, before the run moves on or
// aborts. The CLI uses it to capture a screenshot.
type FailureHook func(ctx context.Context, account accounts.Account, err error)

// Options configures a Runner
type Options struct {
	// FailFast stops the batch at the first failing account
	FailFast  bool
	Pacer     pacer.Waiter
	OnFailure FailureHook
	Logger    logger.Logger
}

// Runner walks the account list one account at a time: wait, fetch, load,
// merge, save.
type Runner struct {
	fetcher   TimelineFetcher
	store     TimelineStore
	pacer     pacer.Waiter
	failFast  bool
	onFailure FailureHook
	logger    logger.Logger
}

// New creates a runner. A nil pacer defaults to the 3s..10s window.
func New(fetcher TimelineFetcher, store TimelineStore, opts Options) *Runner {
	if opts.Pacer == nil {
		opts.Pacer = pacer.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return &Runner{
		fetcher:   fetcher,
		store:     store,
		pacer:     opts.Pacer,
		failFast:  opts.FailFast,
		onFailure: opts.OnFailure,
		logger:    opts.Logger,
	}
}

// Run processes accounts in order. In fail-fast mode the first account error
// is returned and later accounts are not touched. Otherwise every account is
// attempted and the joined failures are returned. A cancelled context always
// stops the run. The report covers every account that was attempted.
func (r *Runner) Run(ctx context.Context, list []accounts.Account) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	log := r.logger.WithField("run_id", report.RunID)

	log.InfoWithFields("Run started", map[string]interface{}{
		"accounts":  len(list),
		"fail_fast": r.failFast,
	})

	finish := func(err error) (*Report, error) {
		report.Duration = time.Since(report.Started)
		log.InfoWithFields("Run finished", map[string]interface{}{
			"succeeded": report.Succeeded(),
			"failed":    len(report.Failed()),
			"duration":  report.Duration,
		})
		return report, err
	}

	for i, account := range list {
		delay, err := r.pacer.Wait(ctx)
		if err != nil {
			log.WarnWithFields("Run interrupted", map[string]interface{}{
				"remaining": len(list) - i,
			})
			return finish(err)
		}
		log.DebugWithFields("Waited before account", map[string]interface{}{
			"account_id": account.ID,
			"delay":      delay,
		})

		outcome := r.process(ctx, log, account)
		report.Outcomes = append(report.Outcomes, outcome)
		logger.LogAccountOutcome(log, account.ID, outcome.Fetched, outcome.Stored, outcome.Err)

		if outcome.Err == nil {
			continue
		}
		if r.onFailure != nil {
			r.onFailure(ctx, account, outcome.Err)
		}
		if r.failFast || ctx.Err() != nil {
			return finish(outcome.Err)
		}
	}

	return finish(report.Err())
}

// process fetches and stores one account. Nothing is written unless the
// fetch succeeded.
func (r *Runner) process(ctx context.Context, log logger.Logger, account accounts.Account) Outcome {
	start := time.Now()
	outcome := Outcome{AccountID: account.ID, Label: account.Label()}

	resp, err := r.fetcher.FetchUserTimeline(ctx, account.ID, account.Timestamp.String(), account.MD5)
	if err != nil {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		return outcome
	}
	outcome.Fetched = len(resp.Statuses)

	existing, err := r.store.Load(account.ID)
	if err != nil {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		return outcome
	}

	merged := r.store.Merge(existing, resp.Statuses)
	outcome.Added = len(timeline.NewIDs(existing, resp.Statuses))

	if err := r.store.Save(account.ID, merged); err != nil {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		return outcome
	}
	outcome.Stored = len(merged)
	outcome.Duration = time.Since(start)

	log.DebugWithFields("Timeline merged", map[string]interface{}{
		"account_id": account.ID,
		"existing":   len(existing),
		"added":      outcome.Added,
	})
	return outcome
}

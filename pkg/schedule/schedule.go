package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/oklog/run"
	errs "xqtimeline/pkg/errors"
	"xqtimeline/pkg/logger"
)

// JobName identifies the batch job in scheduler logs
const JobName = "timeline-fetch"

// Job is one scheduled batch
type Job func(ctx context.Context) error

type options struct {
	runOnStart  bool
	withSeconds bool
	location    *time.Location
	stopTimeout time.Duration
	signals     []os.Signal
	logger      logger.Logger
}

// Option configures Watch
type Option func(*options)

// WithRunOnStart runs the job once immediately before following the schedule
func WithRunOnStart(enabled bool) Option {
	return func(o *options) { o.runOnStart = enabled }
}

// WithSeconds accepts six-field cron expressions with a leading seconds field
func WithSeconds() Option {
	return func(o *options) { o.withSeconds = true }
}

// WithLocation sets the time zone the expression is evaluated in
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithStopTimeout bounds how long shutdown waits for a running job
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) { o.stopTimeout = d }
}

// WithSignals replaces the signals that stop the watcher
func WithSignals(signals ...os.Signal) Option {
	return func(o *options) { o.signals = signals }
}

// WithLogger sets the logger, defaults to the global logger
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Watch runs job on the cron schedule expr until ctx is done or a stop
// signal arrives. Runs never overlap: a tick that fires while a run is in
// progress is skipped. A run in progress when Watch stops sees its context
// cancelled. Stopping by signal or context is not an error.
func Watch(ctx context.Context, expr string, job Job, opts ...Option) error {
	o := options{
		location:    time.Local,
		stopTimeout: 30 * time.Second,
		signals:     []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.GetLogger()
	}
	log := o.logger.WithField("component", "scheduler")

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(o.location),
		gocron.WithStopTimeout(o.stopTimeout),
		gocron.WithLogger(gocronLogger{log}),
	)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeConfig, "create scheduler")
	}

	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	jobOpts := []gocron.JobOption{
		gocron.WithName(JobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.BeforeJobRuns(func(jobID uuid.UUID, jobName string) {
				log.InfoWithFields("Scheduled run starting", map[string]interface{}{"job": jobName})
			}),
			gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
				log.WithError(err).WithField("job", jobName).Error("Scheduled run failed")
			}),
		),
	}
	if o.runOnStart {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	j, err := scheduler.NewJob(
		gocron.CronJob(expr, o.withSeconds),
		gocron.NewTask(func() error {
			return job(runCtx)
		}),
		jobOpts...,
	)
	if err != nil {
		scheduler.Shutdown()
		return errs.Wrap(fmt.Errorf("cron %q: %w", expr, err), errs.ErrorTypeConfig, "schedule job")
	}

	var g run.Group
	g.Add(run.SignalHandler(ctx, o.signals...))
	g.Add(func() error {
		scheduler.Start()
		if next, err := j.NextRun(); err == nil {
			log.InfoWithFields("Watching", map[string]interface{}{
				"cron":     expr,
				"next_run": next,
			})
		}
		<-runCtx.Done()
		return runCtx.Err()
	}, func(error) {
		cancelRuns()
	})

	runErr := g.Run()

	shutdownErr := scheduler.Shutdown()
	logger.LogComponentStop(o.logger, "scheduler", stopReason(runErr))

	if shutdownErr != nil {
		return errs.Wrap(shutdownErr, errs.ErrorTypeUnknown, "stop scheduler")
	}
	if isStop(runErr) {
		return nil
	}
	return runErr
}

func isStop(err error) bool {
	return err == nil || errors.Is(err, run.ErrSignal) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func stopReason(err error) string {
	var sig *run.SignalError
	if errors.As(err, &sig) && sig != nil && sig.Signal != nil {
		return "signal " + sig.Signal.String()
	}
	if errors.Is(err, run.ErrSignal) {
		return "signal"
	}
	if err != nil {
		return err.Error()
	}
	return "stopped"
}

// gocronLogger forwards scheduler diagnostics to our logger. gocron passes
// key/value pairs after the message.
type gocronLogger struct {
	l logger.Logger
}

func (g gocronLogger) Debug(msg string, args ...any) { g.l.DebugWithFields(msg, pairs(args)) }
func (g gocronLogger) Info(msg string, args ...any)  { g.l.InfoWithFields(msg, pairs(args)) }
func (g gocronLogger) Warn(msg string, args ...any)  { g.l.WarnWithFields(msg, pairs(args)) }
func (g gocronLogger) Error(msg string, args ...any) { g.l.ErrorWithFields(msg, pairs(args)) }

func pairs(args []any) map[string]interface{} {
	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	if len(args)%2 == 1 {
		fields["extra"] = args[len(args)-1]
	}
	return fields
}

// Package scheduler runs the periodic maintenance jobs: the reservation
// status sweep, the blacklist release and the soft-delete purge.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/studyroom-seat-reservation/internal/config"
	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// Job names, also used as log categories.
const (
	JobStatusSweep      = "status-sweep"
	JobBlacklistRelease = "blacklist-release"
	JobPurgeDeleted     = "purge-deleted"
)

type ReservationSweeper interface {
	SweepExpired(ctx context.Context) (service.SweepResult, error)
	PurgeDeleted(ctx context.Context, retention time.Duration) (int64, error)
}

type BlacklistReleaser interface {
	ReleaseExpiredBlacklists(ctx context.Context) (int, error)
}

// Jobs are the services the scheduler drives.
type Jobs struct {
	Reservations ReservationSweeper
	Users        BlacklistReleaser
}

type job struct {
	spec string
	run  func(ctx context.Context) (string, error)
}

type Scheduler struct {
	cron    *cron.Cron
	log     *logger.Logger
	timeout time.Duration
	jobs    map[string]job
}

// New registers the three jobs.  Overlapping runs of the same job are
// skipped rather than queued.
func New(cfg config.SchedulerConfig, jobs Jobs, log *logger.Logger) (*Scheduler, error) {
	cl := cronLogger{log}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		log:     log,
		timeout: cfg.JobTimeout,
		jobs: map[string]job{
			JobStatusSweep: {cfg.StatusSpec, func(ctx context.Context) (string, error) {
				res, err := jobs.Reservations.SweepExpired(ctx)
				return fmt.Sprintf("no_show=%d completed=%d blacklisted=%d", res.NoShow, res.Completed, res.Blacklisted), err
			}},
			JobBlacklistRelease: {cfg.BlacklistSpec, func(ctx context.Context) (string, error) {
				n, err := jobs.Users.ReleaseExpiredBlacklists(ctx)
				return fmt.Sprintf("released=%d", n), err
			}},
			JobPurgeDeleted: {cfg.PurgeSpec, func(ctx context.Context) (string, error) {
				n, err := jobs.Reservations.PurgeDeleted(ctx, cfg.PurgeRetention)
				return fmt.Sprintf("purged=%d", n), err
			}},
		},
	}
	for _, name := range s.Names() {
		name := name
		if _, err := s.cron.AddFunc(s.jobs[name].spec, func() { _ = s.Run(name) }); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", name, s.jobs[name].spec, err)
		}
	}
	return s, nil
}

// Names lists the registered jobs in a stable order.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes one job synchronously with a bounded context.
func (s *Scheduler) Run(name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 50 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	summary, err := j.run(ctx)
	took := time.Since(started).Round(time.Millisecond)
	if err != nil {
		s.log.Error("JOB", fmt.Sprintf("[%s] failed after %s: %s: %v", name, took, summary, err))
		return err
	}
	s.log.LogJob(name, fmt.Sprintf("%s in %s", summary, took))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("JOB", "scheduler started: "+strings.Join(s.Names(), ", "))
}

// Stop prevents new runs and waits for running jobs, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("JOB", "scheduler stop timed out with jobs still running")
	}
}

// cronLogger routes robfig/cron's own messages into the category logger.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug("CRON", formatKV(msg, kv))
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("CRON", formatKV(msg, kv)+": "+err.Error())
}

func formatKV(msg string, kv []interface{}) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}

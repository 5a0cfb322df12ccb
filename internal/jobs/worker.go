package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	domjobs "github.com/soulkun/soulkun-backend/internal/domain/jobs"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

// WorkerConfig sizes the claim loop.
type WorkerConfig struct {
	Concurrency       int
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	StaleRunning      time.Duration
	JobTimeout        time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Minute
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 5 * time.Minute
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 10 * time.Minute
	}
	return c
}

// Worker claims JobRun rows and dispatches them to registered handlers.
// Claiming uses SKIP LOCKED, so any number of workers (and replicas) can run
// against the same table without stepping on each other.
type Worker struct {
	log      *logger.Logger
	cfg      WorkerConfig
	runs     repos.JobRunRepo
	registry *Registry
}

func NewWorker(baseLog *logger.Logger, cfg WorkerConfig, runs repos.JobRunRepo, registry *Registry) *Worker {
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		cfg:      cfg.withDefaults(),
		runs:     runs,
		registry: registry,
	}
}

// Run blocks until ctx is cancelled, running cfg.Concurrency claim loops.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Job worker starting",
		"concurrency", w.cfg.Concurrency,
		"poll_interval", w.cfg.PollInterval.String(),
		"job_types", w.registry.Types(),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			return w.loop(gctx)
		})
	}
	err := g.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func (w *Worker) loop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		claimed, err := w.claimAndRun(ctx)
		if err != nil {
			w.log.Error("Claim loop error", "error", err)
		}
		if claimed {
			// Drain the queue before sleeping again.
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) claimAndRun(ctx context.Context) (bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	run, err := w.runs.ClaimNextRunnable(dbc, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if run == nil {
		return false, nil
	}
	w.execute(ctx, run)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, run *types.JobRun) {
	log := w.log.With("job_id", run.ID, "job_type", run.JobType, "attempt", run.Attempts)

	handler, err := w.registry.Get(run.JobType)
	if err != nil {
		// An unknown type can never succeed on retry. Fail it terminally by
		// burning the remaining attempts.
		log.Error("Unknown job type", "error", err)
		w.finishFailed(ctx, run, err, true)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	hbDone := make(chan struct{})
	go w.heartbeatLoop(jobCtx, run, hbDone)

	started := time.Now()
	result, err := w.runHandler(jobCtx, handler, run)
	close(hbDone)

	if err != nil {
		log.Error("Job failed", "error", err, "elapsed", time.Since(started).String())
		w.finishFailed(ctx, run, err, false)
		return
	}

	updates := map[string]interface{}{
		"status": domjobs.StatusSucceeded,
		"error":  "",
	}
	if result != nil {
		if raw, mErr := json.Marshal(result); mErr == nil {
			updates["result"] = raw
		}
	}
	if uErr := w.runs.UpdateFields(dbctx.Context{Ctx: ctx}, run.ID, updates); uErr != nil {
		log.Error("Failed to mark job succeeded", "error", uErr)
		return
	}
	log.Info("Job succeeded", "elapsed", time.Since(started).String())
}

// runHandler isolates one handler invocation. A panic becomes a job failure
// instead of escaping the claim loop and taking down the process.
func (w *Worker) runHandler(ctx context.Context, h Handler, run *types.JobRun) (result map[string]interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, run)
}

func (w *Worker) finishFailed(ctx context.Context, run *types.JobRun, jobErr error, terminal bool) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":        domjobs.StatusFailed,
		"error":         jobErr.Error(),
		"last_error_at": now,
	}
	if terminal {
		updates["attempts"] = w.cfg.MaxAttempts
	}
	if err := w.runs.UpdateFields(dbctx.Context{Ctx: ctx}, run.ID, updates); err != nil {
		w.log.Error("Failed to mark job failed", "job_id", run.ID, "error", err)
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context, run *types.JobRun, done <-chan struct{}) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.runs.Heartbeat(dbctx.Context{Ctx: ctx}, run.ID); err != nil {
				w.log.Warn("Heartbeat failed", "job_id", run.ID, "error", err)
			}
		}
	}
}

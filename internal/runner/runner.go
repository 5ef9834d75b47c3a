package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/queue"
	"github.com/brightloop/geoscore-backend/internal/types"
)

const shutdownReason = "runner shutdown"

type Config struct {
	PollInterval      time.Duration
	MaxBatchSize      int
	HeartbeatInterval time.Duration
	HealthInterval    time.Duration
	ShutdownGrace     time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 5
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = 30 * time.Second
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 30 * time.Second
	}
	return c
}

type execution struct {
	job       *types.Job
	startedAt time.Time
}

type Snapshot struct {
	ShuttingDown bool              `json:"shutting_down"`
	ActiveTotal  int               `json:"active_total"`
	ActiveByType map[string]int    `json:"active_by_type"`
	Degraded     map[string]bool   `json:"degraded,omitempty"`
	LastErrors   map[string]string `json:"last_errors,omitempty"`
}

/*
Runner is the worker orchestrator. One process may run one Runner; multiple
processes may run Runners concurrently against the same job store — the
store's atomic claim is the only cross-instance synchronization.

Everything in here (active set, attempt counters, degraded flags) is
instance-local bookkeeping and is never authoritative: on a crash the stale
heartbeat reclaim in the claim predicate recovers the rows.
*/
type Runner struct {
	log      *logger.Logger
	queue    *queue.Manager
	registry *runtime.Registry
	cfg      Config
	policies map[string]StagePolicy

	mu           sync.Mutex
	active       map[uuid.UUID]*execution
	activeByType map[string]int
	failStreak   map[string]int
	degraded     map[string]bool
	lastErr      map[string]string
	shuttingDown bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(baseLog *logger.Logger, q *queue.Manager, registry *runtime.Registry, cfg Config, policies map[string]StagePolicy) *Runner {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Runner{
		log:          baseLog.With("component", "JobRunner"),
		queue:        q,
		registry:     registry,
		cfg:          cfg.withDefaults(),
		policies:     policies,
		active:       make(map[uuid.UUID]*execution),
		activeByType: make(map[string]int),
		failStreak:   make(map[string]int),
		degraded:     make(map[string]bool),
		lastErr:      make(map[string]string),
	}
}

// Start launches the polling and health loops. Returns immediately.
func (r *Runner) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go r.pollLoop(runCtx)
	go r.healthLoop(runCtx)
	r.log.Info("Runner started", "poll_interval", r.cfg.PollInterval, "max_batch", r.cfg.MaxBatchSize)
}

func (r *Runner) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.claimBatch(ctx)
		}
	}
}

// claimBatch claims up to min(free slots, max batch) jobs and dispatches each
// on its own goroutine. The loop itself never waits on an execution.
func (r *Runner) claimBatch(ctx context.Context) {
	for i := 0; i < r.cfg.MaxBatchSize; i++ {
		claimable := r.claimableTypes()
		if len(claimable) == 0 {
			return
		}
		job, err := r.queue.ClaimNext(ctx, claimable)
		if err != nil {
			r.log.Warn("ClaimNext failed", "error", err)
			return
		}
		if job == nil {
			return
		}
		r.dispatch(ctx, job)
	}
}

// claimableTypes returns the registered job types that still have a free
// concurrency slot in this instance.
func (r *Runner) claimableTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shuttingDown {
		return nil
	}
	var out []string
	for _, t := range r.registry.Types() {
		p, ok := r.policies[t]
		if !ok {
			continue
		}
		if r.activeByType[t] < p.MaxConcurrency {
			out = append(out, t)
		}
	}
	return out
}

func (r *Runner) dispatch(ctx context.Context, job *types.Job) {
	r.mu.Lock()
	r.active[job.ID] = &execution{job: job, startedAt: time.Now()}
	r.activeByType[job.JobType]++
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.finish(job)
		r.execute(ctx, job)
	}()
}

func (r *Runner) finish(job *types.Job) {
	r.mu.Lock()
	delete(r.active, job.ID)
	if r.activeByType[job.JobType] > 0 {
		r.activeByType[job.JobType]--
	}
	r.mu.Unlock()
}

/*
execute drives one claimed job through the per-execution state machine:

	running -> completed
	running -> retrying -> running   (in-process backoff, attempt < ceiling)
	running -> failed                (terminal error or attempts exhausted)

The attempt counter here is local to this execution lifecycle; the persisted
retry_count tracks operator-level retries across executions.
*/
func (r *Runner) execute(ctx context.Context, job *types.Job) {
	policy, ok := r.policies[job.JobType]
	if !ok {
		r.failJob(job, fmt.Errorf("no policy for job type %s", job.JobType))
		return
	}
	handler, ok := r.registry.Get(job.JobType)
	if !ok {
		r.failJob(job, fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go r.heartbeatLoop(hbCtx, job.ID)

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := r.runOnce(ctx, handler, job, policy.Timeout)
		if err == nil {
			r.noteSuccess(job.JobType)
			r.log.Info("Job completed", "job_id", job.ID, "job_type", job.JobType, "attempt", attempt)
			return
		}
		lastErr = err
		r.noteFailure(job.JobType, err)

		if isTerminal(err) {
			r.log.Warn("Job failed terminally", "job_id", job.ID, "job_type", job.JobType, "error", err)
			break
		}
		if attempt >= policy.MaxAttempts {
			r.log.Warn("Job attempts exhausted", "job_id", job.ID, "job_type", job.JobType, "attempts", attempt, "error", err)
			break
		}

		delay := Backoff(policy, attempt)
		r.log.Info("Job retrying", "job_id", job.ID, "job_type", job.JobType, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			// Shutdown during backoff: the grace-period sweep will fail it.
			return
		}
	}
	r.failJob(job, lastErr)
}

// runOnce bounds a single handler call with the stage timeout and converts a
// panic into an error so one bad execution cannot take the runner down.
func (r *Runner) runOnce(ctx context.Context, handler runtime.Handler, job *types.Job, timeout time.Duration) (err error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", rec)
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	jc := runtime.NewContext(execCtx, r.log, job, r.queue)
	if err := handler.Run(jc); err != nil {
		return err
	}
	// A timeout that the handler swallowed still counts as a failure.
	if execCtx.Err() != nil && job.Status != types.JobStatusComplete {
		return execCtx.Err()
	}
	return nil
}

func (r *Runner) heartbeatLoop(ctx context.Context, jobID uuid.UUID) {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.queue.Heartbeat(ctx, jobID); err != nil {
				r.log.Debug("Heartbeat failed", "job_id", jobID, "error", err)
			}
		}
	}
}

func (r *Runner) failJob(job *types.Job, cause error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	// Detached context: the final failure must be recorded even when the
	// runner context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r.queue.Update(ctx, job.ID, queue.UpdateParams{
		Status:       types.JobStatusFailed,
		ErrorMessage: msg,
	}); err != nil {
		r.log.Error("Failed to mark job failed", "job_id", job.ID, "error", err)
	}
}

// isTerminal reports errors that retrying cannot fix. Everything else
// (provider hiccups, timeouts) re-enters the backoff loop.
func isTerminal(err error) bool {
	return errors.Is(err, errs.ErrInvalidArgument) || errors.Is(err, errs.ErrNotFound)
}

func (r *Runner) noteSuccess(jobType string) {
	r.mu.Lock()
	r.failStreak[jobType] = 0
	delete(r.lastErr, jobType)
	r.mu.Unlock()
}

func (r *Runner) noteFailure(jobType string, err error) {
	r.mu.Lock()
	r.failStreak[jobType]++
	r.lastErr[jobType] = err.Error()
	r.mu.Unlock()
}

// healthLoop flips per-type degraded flags. Observability only: a degraded
// stage keeps dispatching.
func (r *Runner) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			for _, t := range r.registry.Types() {
				degraded := r.failStreak[t] >= 3
				if degraded && !r.degraded[t] {
					r.log.Warn("Stage degraded", "job_type", t, "fail_streak", r.failStreak[t], "last_error", r.lastErr[t])
				}
				r.degraded[t] = degraded
			}
			r.mu.Unlock()
		}
	}
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	byType := make(map[string]int, len(r.activeByType))
	for t, n := range r.activeByType {
		if n > 0 {
			byType[t] = n
		}
	}
	degraded := make(map[string]bool)
	for t, d := range r.degraded {
		if d {
			degraded[t] = true
		}
	}
	lastErrs := make(map[string]string, len(r.lastErr))
	for t, e := range r.lastErr {
		lastErrs[t] = e
	}
	return Snapshot{
		ShuttingDown: r.shuttingDown,
		ActiveTotal:  len(r.active),
		ActiveByType: byType,
		Degraded:     degraded,
		LastErrors:   lastErrs,
	}
}

// Shutdown stops claiming, waits up to the grace period for in-flight
// executions, then force-fails whatever is still active.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	if r.shuttingDown {
		r.mu.Unlock()
		return
	}
	r.shuttingDown = true
	r.mu.Unlock()

	r.log.Info("Runner shutting down", "grace", r.cfg.ShutdownGrace)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(r.cfg.ShutdownGrace):
	}

	if r.cancel != nil {
		r.cancel()
	}

	r.mu.Lock()
	stragglers := make([]*types.Job, 0, len(r.active))
	for _, exec := range r.active {
		stragglers = append(stragglers, exec.job)
	}
	r.mu.Unlock()

	for _, job := range stragglers {
		r.log.Warn("Force-failing execution at shutdown", "job_id", job.ID, "job_type", job.JobType)
		r.failJob(job, errors.New(shutdownReason))
	}
	r.log.Info("Runner stopped", "forced_failures", len(stragglers))
}

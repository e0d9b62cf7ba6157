// Package jobs runs the asynchronous scan/print pipeline: a bounded worker
// pool executes device operations and hands finished artifacts to delivery.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/raspscan/raspscan/internal/delivery"
	devicedomain "github.com/raspscan/raspscan/internal/domain/device"
	jobdomain "github.com/raspscan/raspscan/internal/domain/job"
	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/model"
	"github.com/raspscan/raspscan/internal/probe"
)

const canceledMessage = "canceled"

// Orchestrator implements job.Service. Submissions return immediately; the
// pool picks queued jobs up and walks them through the state machine.
type Orchestrator struct {
	repo       jobdomain.Repository
	devices    devicedomain.Service
	targets    targetdomain.Service
	operator   probe.Operator
	dispatcher *delivery.Dispatcher
	sem        *semaphore.Weighted
	logger     *slog.Logger
	notify     func(model.Job)

	mu      sync.Mutex
	running map[string]context.CancelFunc
	devLock map[string]*sync.Mutex
	baseCtx context.Context
	wg      sync.WaitGroup
}

// New creates a stopped Orchestrator with a pool of the given size.
func New(repo jobdomain.Repository, devices devicedomain.Service, targets targetdomain.Service,
	operator probe.Operator, dispatcher *delivery.Dispatcher, poolSize int, logger *slog.Logger) *Orchestrator {
	if poolSize <= 0 {
		poolSize = 2
	}
	return &Orchestrator{
		repo:       repo,
		devices:    devices,
		targets:    targets,
		operator:   operator,
		dispatcher: dispatcher,
		sem:        semaphore.NewWeighted(int64(poolSize)),
		logger:     logger,
		running:    map[string]context.CancelFunc{},
		devLock:    map[string]*sync.Mutex{},
	}
}

// OnJobUpdate registers a hook called after every persisted status change.
// Must be set before Start.
func (o *Orchestrator) OnJobUpdate(fn func(model.Job)) { o.notify = fn }

// Start binds the worker pool to ctx. Jobs in flight when ctx is canceled
// transition to failed through the normal cancellation path.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.baseCtx = ctx
	o.mu.Unlock()
}

// Stop waits for in-flight workers to drain. Callers cancel the Start context
// first.
func (o *Orchestrator) Stop() {
	o.wg.Wait()
}

// Submit validates the request, persists a queued job and schedules it.
func (o *Orchestrator) Submit(ctx context.Context, req jobdomain.SubmitRequest) (string, error) {
	switch req.Kind {
	case model.JobKindScan, model.JobKindPrint, model.JobKindBatch:
	default:
		return "", fmt.Errorf("%w: unknown job kind %q", jobdomain.ErrValidation, req.Kind)
	}
	if req.Kind == model.JobKindPrint && req.Params.SourceDocument == "" {
		return "", fmt.Errorf("%w: print job requires a source document", jobdomain.ErrValidation)
	}

	if _, err := o.devices.Get(ctx, req.DeviceID); err != nil {
		if errors.Is(err, devicedomain.ErrNotFound) {
			return "", fmt.Errorf("%w: device %s not registered", jobdomain.ErrValidation, req.DeviceID)
		}
		return "", err
	}
	if req.TargetID != nil {
		tgt, err := o.targets.Get(ctx, *req.TargetID)
		if err != nil {
			if errors.Is(err, targetdomain.ErrNotFound) {
				return "", fmt.Errorf("%w: target %s not found", jobdomain.ErrValidation, *req.TargetID)
			}
			return "", err
		}
		if !tgt.Enabled {
			return "", fmt.Errorf("%w: target %s", targetdomain.ErrDisabled, *req.TargetID)
		}
	}

	now := time.Now().UTC()
	j := model.Job{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		DeviceID:  req.DeviceID,
		TargetID:  req.TargetID,
		Params:    req.Params,
		Status:    model.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.repo.InsertJob(ctx, j); err != nil {
		return "", err
	}
	o.publish(j)
	o.logger.Info("job queued", "id", j.ID, "kind", j.Kind, "device", j.DeviceID)

	o.wg.Add(1)
	go o.execute(j.ID)
	return j.ID, nil
}

// Get returns one job.
func (o *Orchestrator) Get(ctx context.Context, id string) (model.Job, error) {
	return o.repo.GetJob(ctx, id)
}

// List returns jobs matching the filter, newest first.
func (o *Orchestrator) List(ctx context.Context, filter jobdomain.ListFilter) ([]model.Job, error) {
	return o.repo.ListJobs(ctx, filter)
}

// Cancel stops a queued or running job. Terminal jobs reject the request.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	o.mu.Lock()
	cancel, isRunning := o.running[id]
	o.mu.Unlock()
	if isRunning {
		cancel()
		o.logger.Info("job cancellation requested", "id", id)
		return nil
	}

	// Not executing yet: flip the queued row before a worker picks it up.
	// The guarded update keeps a worker that claims the job mid-call from
	// being overwritten.
	j, err := o.repo.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if j.Status != model.JobQueued {
		return fmt.Errorf("%w: cannot cancel job in state %q", jobdomain.ErrInvalidState, j.Status)
	}
	if err := o.transitionFrom(ctx, &j, model.JobQueued, model.JobFailed, strPtr(canceledMessage)); err != nil {
		if !errors.Is(err, jobdomain.ErrStateChanged) {
			return err
		}
		// A worker claimed the job between the read and the flip; cancel it
		// through its context instead.
		o.mu.Lock()
		cancel, isRunning = o.running[id]
		o.mu.Unlock()
		if isRunning {
			cancel()
			o.logger.Info("job cancellation requested", "id", id)
			return nil
		}
		j, err = o.repo.GetJob(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: cannot cancel job in state %q", jobdomain.ErrInvalidState, j.Status)
	}
	o.logger.Info("queued job canceled", "id", id)
	return nil
}

// RetryDelivery re-enters delivering for a job whose delivery failed. The
// device is never touched again; only the stored artifact is re-sent.
func (o *Orchestrator) RetryDelivery(ctx context.Context, id string) error {
	j, err := o.repo.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if j.Status != model.JobDeliveryFailed {
		return fmt.Errorf("%w: retry requires delivery_failed, job is %q", jobdomain.ErrInvalidState, j.Status)
	}
	if j.TargetID == nil || j.ArtifactPath == nil {
		return fmt.Errorf("%w: job %s has no deliverable artifact", jobdomain.ErrInvalidState, id)
	}
	if _, err := os.Stat(*j.ArtifactPath); err != nil {
		return fmt.Errorf("%w: %s", jobdomain.ErrArtifactExpired, *j.ArtifactPath)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.deliver(o.workerCtx(), j)
	}()
	return nil
}

// execute runs one job through the pool. The device lock serializes jobs that
// address the same hardware.
func (o *Orchestrator) execute(id string) {
	defer o.wg.Done()
	ctx := o.workerCtx()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.failQueued(ctx, id, canceledMessage)
		return
	}
	defer o.sem.Release(1)

	j, err := o.repo.GetJob(ctx, id)
	if err != nil {
		o.logger.Error("job vanished before execution", "id", id, "err", err)
		return
	}

	lock := o.deviceLock(j.DeviceID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read after waiting: the job may have been canceled in the meantime.
	j, err = o.repo.GetJob(ctx, j.ID)
	if err != nil || j.Status != model.JobQueued {
		return
	}
	dev, err := o.devices.Get(ctx, j.DeviceID)
	if err != nil {
		if terr := o.transitionFrom(ctx, &j, model.JobQueued, model.JobFailed, strPtr(err.Error())); terr != nil && !errors.Is(terr, jobdomain.ErrStateChanged) {
			o.logger.Error("job update failed", "id", j.ID, "err", terr)
		}
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.running[j.ID] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.running, j.ID)
		o.mu.Unlock()
	}()

	// Claim the job with a guarded transition. Losing the claim means a
	// cancel flipped the row after the re-read above; the job is already
	// terminal and must stay that way.
	j.Attempts++
	if err := o.transitionFrom(ctx, &j, model.JobQueued, model.JobRunning, nil); err != nil {
		if !errors.Is(err, jobdomain.ErrStateChanged) {
			o.logger.Error("job claim failed", "id", j.ID, "err", err)
		}
		return
	}
	o.logger.Info("job running", "id", j.ID, "device", dev.Name)

	artifact, err := o.operator.Execute(jobCtx, dev, j.Kind, j.Params)
	wasCanceled := jobCtx.Err() != nil

	// The cancellable window ends with the device operation; a cancel during
	// delivery is an invalid-state request, not a job abort.
	cancel()
	o.mu.Lock()
	delete(o.running, j.ID)
	o.mu.Unlock()

	if err != nil {
		msg := err.Error()
		if wasCanceled {
			msg = canceledMessage
		}
		// Device failures surface verbatim and are never retried on their own.
		o.transition(ctx, &j, model.JobFailed, strPtr(msg))
		o.logger.Warn("job failed", "id", j.ID, "err", msg)
		return
	}

	if artifact != "" {
		j.ArtifactPath = &artifact
	}
	o.transition(ctx, &j, model.JobCompleted, nil)
	o.logger.Info("job completed", "id", j.ID, "artifact", artifact)

	if j.TargetID != nil && j.ArtifactPath != nil {
		o.deliver(ctx, j)
	}
}

// deliver walks completed or delivery_failed jobs through the delivery leg.
func (o *Orchestrator) deliver(ctx context.Context, j model.Job) {
	o.transition(ctx, &j, model.JobDelivering, nil)

	tgt, err := o.targets.Resolve(ctx, *j.TargetID)
	if err != nil {
		o.transition(ctx, &j, model.JobDeliveryFailed, strPtr(err.Error()))
		return
	}
	attempts, err := o.dispatcher.Deliver(ctx, *j.ArtifactPath, tgt)
	if err != nil {
		o.transition(ctx, &j, model.JobDeliveryFailed, strPtr(err.Error()))
		o.logger.Warn("job delivery failed", "id", j.ID, "attempts", attempts, "err", err)
		return
	}
	o.transition(ctx, &j, model.JobDelivered, nil)
	o.logger.Info("job delivered", "id", j.ID, "target", tgt.ID, "attempts", attempts)
}

// failQueued marks a still-queued job failed, used when the pool shuts down
// before the job ran.
func (o *Orchestrator) failQueued(ctx context.Context, id, msg string) {
	j, err := o.repo.GetJob(context.WithoutCancel(ctx), id)
	if err != nil || j.Status != model.JobQueued {
		return
	}
	if err := o.transitionFrom(ctx, &j, model.JobQueued, model.JobFailed, strPtr(msg)); err != nil && !errors.Is(err, jobdomain.ErrStateChanged) {
		o.logger.Error("job update failed", "id", id, "err", err)
	}
}

// transitionFrom persists a status change only while the stored row is still
// in the expected state. Contended transitions (queued jobs fought over by a
// worker and a cancel) must go through here so the loser backs off instead of
// resurrecting a terminal job.
func (o *Orchestrator) transitionFrom(ctx context.Context, j *model.Job, from, status model.JobStatus, errMsg *string) error {
	j.Status = status
	j.Error = errMsg
	j.UpdatedAt = time.Now().UTC()
	if err := o.repo.UpdateJobIf(context.WithoutCancel(ctx), *j, from); err != nil {
		return err
	}
	o.publish(*j)
	return nil
}

// transition persists a status change and notifies listeners. Only the worker
// that owns the job writes post-claim states, so no guard is needed here.
func (o *Orchestrator) transition(ctx context.Context, j *model.Job, status model.JobStatus, errMsg *string) {
	j.Status = status
	j.Error = errMsg
	j.UpdatedAt = time.Now().UTC()
	if err := o.repo.UpdateJob(context.WithoutCancel(ctx), *j); err != nil {
		o.logger.Error("job update failed", "id", j.ID, "status", status, "err", err)
		return
	}
	o.publish(*j)
}

func (o *Orchestrator) publish(j model.Job) {
	if o.notify != nil {
		o.notify(j)
	}
}

func (o *Orchestrator) workerCtx() context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.baseCtx != nil {
		return o.baseCtx
	}
	return context.Background()
}

func (o *Orchestrator) deviceLock(deviceID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.devLock[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		o.devLock[deviceID] = lock
	}
	return lock
}

func strPtr(s string) *string { return &s }

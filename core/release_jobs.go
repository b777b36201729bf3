package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	releaseParamWithdrawalID    = "withdrawal_id"
	releaseParamExternalChain   = "external_chain"
	releaseParamExternalAddress = "external_address"
	releaseParamAmount          = "amount"
	releaseParamRequester       = "requester"
	releaseParamRequestedAt     = "requested_at"

	releaseDedupPolicy = "drop"
)

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

// WithdrawalJobParameters encodes a withdrawal as string job parameters.
func WithdrawalJobParameters(req WithdrawalRequest) map[string]any {
	return map[string]any{
		releaseParamWithdrawalID:    req.ID,
		releaseParamExternalChain:   req.ExternalChain,
		releaseParamExternalAddress: req.ExternalAddress,
		releaseParamAmount:          req.Amount.String(),
		releaseParamRequester:       req.Requester.Hex(),
		releaseParamRequestedAt:     req.RequestedAt.UTC().Format(time.RFC3339Nano),
	}
}

func WithdrawalFromJobParameters(params map[string]any) (WithdrawalRequest, error) {
	read := func(key string) string {
		value, _ := params[key].(string)
		return strings.TrimSpace(value)
	}
	req := WithdrawalRequest{
		ID:              read(releaseParamWithdrawalID),
		ExternalChain:   read(releaseParamExternalChain),
		ExternalAddress: read(releaseParamExternalAddress),
	}
	if req.ID == "" || req.ExternalAddress == "" {
		return WithdrawalRequest{}, fmt.Errorf("%w: withdrawal id and external address are required", ErrInvalidInput)
	}
	amount, err := ParseAmount(read(releaseParamAmount))
	if err != nil {
		return WithdrawalRequest{}, err
	}
	requester, err := ParseAddress(read(releaseParamRequester))
	if err != nil {
		return WithdrawalRequest{}, err
	}
	req.Amount = amount
	req.Requester = requester
	if raw := read(releaseParamRequestedAt); raw != "" {
		requestedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return WithdrawalRequest{}, fmt.Errorf("%w: requested_at: %v", ErrInvalidInput, err)
		}
		req.RequestedAt = requestedAt.UTC()
	}
	return req, nil
}

// JobReleaseNotifier enqueues one release job per committed unwrap. The
// withdrawal id doubles as idempotency key so redelivery cannot release twice.
type JobReleaseNotifier struct {
	enqueuer JobEnqueuer
	jobID    string
}

func NewJobReleaseNotifier(enqueuer JobEnqueuer, jobID string) *JobReleaseNotifier {
	if strings.TrimSpace(jobID) == "" {
		jobID = DefaultReleaseJobID
	}
	return &JobReleaseNotifier{enqueuer: enqueuer, jobID: strings.TrimSpace(jobID)}
}

func (n *JobReleaseNotifier) NotifyRelease(ctx context.Context, req WithdrawalRequest) error {
	if n == nil || n.enqueuer == nil {
		return fmt.Errorf("core: release job enqueuer is required")
	}
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: withdrawal id is required", ErrInvalidInput)
	}
	return n.enqueuer.Enqueue(ctx, &JobExecutionMessage{
		JobID:          n.jobID,
		ScriptPath:     n.jobID,
		Parameters:     WithdrawalJobParameters(req),
		IdempotencyKey: req.ID,
		DedupPolicy:    releaseDedupPolicy,
	})
}

// ReleaseHandler releases the external asset for a withdrawal. It must be
// idempotent on WithdrawalRequest.ID.
type ReleaseHandler interface {
	Release(ctx context.Context, req WithdrawalRequest) error
}

type ReleaseHandlerFunc func(ctx context.Context, req WithdrawalRequest) error

func (f ReleaseHandlerFunc) Release(ctx context.Context, req WithdrawalRequest) error {
	if f == nil {
		return nil
	}
	return f(ctx, req)
}

// attemptNacker is implemented by deliveries that bound retries per attempt.
type attemptNacker interface {
	NackForAttempt(ctx context.Context, opts JobNackOptions, attempt int) error
}

// ReleaseWorker drains release jobs on the relayer side.
type ReleaseWorker struct {
	dequeuer    JobDequeuer
	handler     ReleaseHandler
	hook        JobWorkerHook
	logger      Logger
	retryDelay  time.Duration
	maxAttempts int

	mu       sync.Mutex
	attempts map[string]int
}

type ReleaseWorkerOption func(*ReleaseWorker)

func WithReleaseWorkerHook(hook JobWorkerHook) ReleaseWorkerOption {
	return func(w *ReleaseWorker) { w.hook = hook }
}

func WithReleaseWorkerLogger(logger Logger) ReleaseWorkerOption {
	return func(w *ReleaseWorker) { w.logger = glog.Ensure(logger) }
}

func WithReleaseRetryDelay(delay time.Duration) ReleaseWorkerOption {
	return func(w *ReleaseWorker) { w.retryDelay = delay }
}

// WithReleaseMaxAttempts dead-letters a withdrawal once its handler has
// failed max times. Zero retries forever.
func WithReleaseMaxAttempts(attempts int) ReleaseWorkerOption {
	return func(w *ReleaseWorker) { w.maxAttempts = attempts }
}

func NewReleaseWorker(dequeuer JobDequeuer, handler ReleaseHandler, opts ...ReleaseWorkerOption) (*ReleaseWorker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("core: release job dequeuer is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("core: release handler is required")
	}
	worker := &ReleaseWorker{
		dequeuer:   dequeuer,
		handler:    handler,
		logger:     glog.Nop(),
		retryDelay: 30 * time.Second,
		attempts:   map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(worker)
		}
	}
	return worker, nil
}

// ProcessNext handles one delivery. Malformed payloads are dead-lettered,
// handler failures are requeued until the attempt bound, success is acked.
func (w *ReleaseWorker) ProcessNext(ctx context.Context) error {
	if w == nil || w.dequeuer == nil {
		return fmt.Errorf("core: release worker is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}
	msg := delivery.Message()
	startedAt := time.Now().UTC()
	event := JobWorkerEvent{Message: msg, StartedAt: startedAt}

	if msg == nil {
		return delivery.Nack(ctx, JobNackOptions{DeadLetter: true, Reason: "empty release message"})
	}
	req, err := WithdrawalFromJobParameters(msg.Parameters)
	if err != nil {
		event.Err = err
		w.emit(ctx, JobWorkerHook.OnFailure, event)
		w.logger.Error("release job rejected", "job_id", msg.JobID, "idempotency_key", msg.IdempotencyKey, "error", err)
		return delivery.Nack(ctx, JobNackOptions{DeadLetter: true, Reason: err.Error()})
	}

	attempt := w.nextAttempt(req.ID)
	event.Attempt = attempt
	w.emit(ctx, JobWorkerHook.OnStart, event)

	if err := w.handler.Release(ctx, req); err != nil {
		event.Err = err
		event.Duration = time.Since(startedAt)
		if w.maxAttempts > 0 && attempt >= w.maxAttempts {
			w.clearAttempts(req.ID)
			w.emit(ctx, JobWorkerHook.OnFailure, event)
			w.logger.Error("release failed, attempts exhausted", "withdrawal_id", req.ID, "attempt", attempt, "error", err)
			return w.nack(ctx, delivery, JobNackOptions{DeadLetter: true, Reason: err.Error()}, attempt)
		}
		event.Delay = w.retryDelay
		w.emit(ctx, JobWorkerHook.OnRetry, event)
		w.logger.Warn("release failed, requeueing", "withdrawal_id", req.ID, "attempt", attempt, "error", err)
		return w.nack(ctx, delivery, JobNackOptions{Delay: w.retryDelay, Requeue: true, Reason: err.Error()}, attempt)
	}

	if err := delivery.Ack(ctx); err != nil {
		return err
	}
	w.clearAttempts(req.ID)
	event.Duration = time.Since(startedAt)
	w.emit(ctx, JobWorkerHook.OnSuccess, event)
	w.logger.Info("release completed", "withdrawal_id", req.ID, "attempt", attempt)
	return nil
}

func (w *ReleaseWorker) nack(ctx context.Context, delivery JobDelivery, opts JobNackOptions, attempt int) error {
	if nacker, ok := delivery.(attemptNacker); ok {
		return nacker.NackForAttempt(ctx, opts, attempt)
	}
	return delivery.Nack(ctx, opts)
}

func (w *ReleaseWorker) nextAttempt(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[id]++
	return w.attempts[id]
}

func (w *ReleaseWorker) clearAttempts(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, id)
}

func (w *ReleaseWorker) emit(ctx context.Context, fn func(JobWorkerHook, context.Context, JobWorkerEvent), event JobWorkerEvent) {
	if w.hook == nil {
		return
	}
	fn(w.hook, ctx, event)
}

// Package gojob carries ledger release jobs over go-job queues.
package gojob

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-bridge-ledger/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

// JobIDBridgeRelease is the go-job id release workers subscribe to.
const JobIDBridgeRelease = core.DefaultReleaseJobID

// RetryPolicy bounds release retries so a stuck withdrawal ends up in the
// dead letter queue instead of looping.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     8,
		MaxDelay:        15 * time.Minute,
		DeadLetterOnMax: true,
	}
}

// Apply returns the nack options for the given attempt. A nack always either
// requeues or dead-letters.
func (p RetryPolicy) Apply(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	opts.Reason = strings.TrimSpace(opts.Reason)
	opts.Delay = max(opts.Delay, 0)
	if p.MaxDelay > 0 {
		opts.Delay = min(opts.Delay, p.MaxDelay)
	}
	exhausted := p.MaxAttempts > 0 && attempt >= p.MaxAttempts
	switch {
	case opts.DeadLetter:
		opts.Requeue = false
	case exhausted && p.DeadLetterOnMax:
		opts.Requeue = false
		opts.DeadLetter = true
	}
	if !opts.Requeue && !opts.DeadLetter {
		opts.Requeue = true
	}
	return opts
}

// Queue adapts a go-job enqueuer/dequeuer pair to the ledger job contracts.
// Either side may be nil when the process only produces or only consumes.
type Queue struct {
	enqueuer queue.Enqueuer
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewQueue(enqueuer queue.Enqueuer, dequeuer queue.Dequeuer, policy RetryPolicy) *Queue {
	return &Queue{enqueuer: enqueuer, dequeuer: dequeuer, policy: policy}
}

func (q *Queue) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if q == nil || q.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	return q.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
}

// Dequeue returns nil, nil when the underlying queue has nothing ready.
func (q *Queue) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if q == nil || q.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	raw, err := q.dequeuer.Dequeue(ctx)
	if err != nil || raw == nil {
		return nil, err
	}
	return &Delivery{raw: raw, policy: q.policy}, nil
}

// Delivery wraps one go-job delivery. NackForAttempt lets the release worker
// apply the retry policy with its own attempt count.
type Delivery struct {
	raw    queue.Delivery
	policy RetryPolicy
}

func NewDelivery(raw queue.Delivery, policy RetryPolicy) *Delivery {
	return &Delivery{raw: raw, policy: policy}
}

func (d *Delivery) Message() *core.JobExecutionMessage {
	if d == nil || d.raw == nil {
		return nil
	}
	return FromExecutionMessage(d.raw.Message())
}

func (d *Delivery) Ack(ctx context.Context) error {
	if d == nil || d.raw == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.raw.Ack(ctx)
}

func (d *Delivery) Nack(ctx context.Context, opts core.JobNackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *Delivery) NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error {
	if d == nil || d.raw == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	opts = d.policy.Apply(opts, attempt)
	return d.raw.Nack(ctx, queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	})
}

func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     cloneParameters(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     cloneParameters(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// HookAdapter lets a core.JobWorkerHook observe a go-job worker.
type HookAdapter struct {
	hook core.JobWorkerHook
}

func NewHookAdapter(hook core.JobWorkerHook) *HookAdapter {
	return &HookAdapter{hook: hook}
}

func (a *HookAdapter) OnStart(ctx context.Context, event worker.Event) {
	a.forward(ctx, core.JobWorkerHook.OnStart, event)
}

func (a *HookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	a.forward(ctx, core.JobWorkerHook.OnSuccess, event)
}

func (a *HookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	a.forward(ctx, core.JobWorkerHook.OnFailure, event)
}

func (a *HookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	a.forward(ctx, core.JobWorkerHook.OnRetry, event)
}

func (a *HookAdapter) forward(
	ctx context.Context,
	fn func(core.JobWorkerHook, context.Context, core.JobWorkerEvent),
	event worker.Event,
) {
	if a == nil || a.hook == nil {
		return
	}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fn(a.hook, ctx, core.JobWorkerEvent{
		Message:   FromExecutionMessage(message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	})
}

// NewReleaseNotifier publishes committed unwraps as go-job release jobs.
func NewReleaseNotifier(enqueuer queue.Enqueuer) *core.JobReleaseNotifier {
	return core.NewJobReleaseNotifier(NewQueue(enqueuer, nil, RetryPolicy{}), JobIDBridgeRelease)
}

// NewReleaseWorker drains go-job release deliveries into handler. With
// DeadLetterOnMax it stops retrying a withdrawal after policy.MaxAttempts
// failures.
func NewReleaseWorker(
	dequeuer queue.Dequeuer,
	policy RetryPolicy,
	handler core.ReleaseHandler,
	opts ...core.ReleaseWorkerOption,
) (*core.ReleaseWorker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if policy.DeadLetterOnMax && policy.MaxAttempts > 0 {
		opts = append([]core.ReleaseWorkerOption{core.WithReleaseMaxAttempts(policy.MaxAttempts)}, opts...)
	}
	return core.NewReleaseWorker(NewQueue(nil, dequeuer, policy), handler, opts...)
}

func cloneParameters(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	maps.Copy(out, in)
	return out
}

var (
	_ core.JobEnqueuer = (*Queue)(nil)
	_ core.JobDequeuer = (*Queue)(nil)
	_ core.JobDelivery = (*Delivery)(nil)
	_ worker.Hook      = (*HookAdapter)(nil)
)

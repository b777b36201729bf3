package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type ReleaseStatus string

const (
	ReleaseStatusPending    ReleaseStatus = "pending"
	ReleaseStatusProcessing ReleaseStatus = "processing"
	ReleaseStatusDelivered  ReleaseStatus = "delivered"
	ReleaseStatusFailed     ReleaseStatus = "failed"
)

// PendingRelease is a committed withdrawal tracked until the release
// notifier accepts it. Attempts counts failed notifications.
type PendingRelease struct {
	Request       WithdrawalRequest
	Status        ReleaseStatus
	Attempts      int
	NextAttemptAt time.Time
	ClaimedAt     time.Time
	LastError     string
}

// ReleaseOutbox stages a withdrawal in the unit of work that burned its
// credits. The row starts claimed by the committing caller at claimedAt.
type ReleaseOutbox interface {
	Stage(ctx context.Context, req WithdrawalRequest, claimedAt time.Time) error
}

// ReleaseOutboxStore hands staged withdrawals to the dispatcher.
//
// ClaimBatch returns pending rows due at now plus processing rows whose claim
// is older than staleBefore, and marks them processing. Retry with a zero
// nextAttemptAt marks the row failed.
type ReleaseOutboxStore interface {
	ClaimBatch(ctx context.Context, limit int, now time.Time, staleBefore time.Time) ([]PendingRelease, error)
	Ack(ctx context.Context, withdrawalID string) error
	Retry(ctx context.Context, withdrawalID string, cause error, nextAttemptAt time.Time) error
	GetRelease(ctx context.Context, withdrawalID string) (PendingRelease, error)
}

// ReleaseOutboxProvider is implemented by store providers that persist the
// release outbox next to the ledger.
type ReleaseOutboxProvider interface {
	ReleaseOutbox() ReleaseOutboxStore
}

type ReleaseDispatcherConfig struct {
	BatchSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// ClaimLease is how long a claimed row may stay processing before
	// another dispatcher takes it over.
	ClaimLease time.Duration
}

func DefaultReleaseDispatcherConfig() ReleaseDispatcherConfig {
	return ReleaseDispatcherConfig{
		BatchSize:      50,
		MaxAttempts:    10,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     5 * time.Minute,
		ClaimLease:     time.Minute,
	}
}

func (c ReleaseDispatcherConfig) withDefaults() ReleaseDispatcherConfig {
	defaults := DefaultReleaseDispatcherConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.ClaimLease <= 0 {
		c.ClaimLease = defaults.ClaimLease
	}
	return c
}

type ReleaseDispatchStats struct {
	Claimed   int
	Delivered int
	Retried   int
	Failed    int
}

// ReleaseDispatcher moves staged withdrawals from the outbox to the release
// notifier, backing off between failed attempts.
type ReleaseDispatcher struct {
	store    ReleaseOutboxStore
	notifier ReleaseNotifier
	config   ReleaseDispatcherConfig
	now      func() time.Time
}

func NewReleaseDispatcher(store ReleaseOutboxStore, notifier ReleaseNotifier, config ReleaseDispatcherConfig) (*ReleaseDispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("core: release outbox store is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("core: release notifier is required")
	}
	return &ReleaseDispatcher{
		store:    store,
		notifier: notifier,
		config:   config.withDefaults(),
		now:      utcNow,
	}, nil
}

// DispatchPending claims up to batchSize due releases and notifies each one.
// Every notification failure is recorded on its row and joined into the
// returned error.
func (d *ReleaseDispatcher) DispatchPending(ctx context.Context, batchSize int) (ReleaseDispatchStats, error) {
	if d == nil || d.store == nil {
		return ReleaseDispatchStats{}, fmt.Errorf("core: release dispatcher is not configured")
	}
	limit := batchSize
	if limit <= 0 {
		limit = d.config.BatchSize
	}
	now := d.now()
	claimed, err := d.store.ClaimBatch(ctx, limit, now, now.Add(-d.config.ClaimLease))
	if err != nil {
		return ReleaseDispatchStats{}, err
	}

	stats := ReleaseDispatchStats{Claimed: len(claimed)}
	var dispatchErr error
	for _, release := range claimed {
		err := d.Deliver(ctx, release)
		switch {
		case err == nil:
			stats.Delivered++
		case release.Attempts+1 >= d.config.MaxAttempts:
			stats.Failed++
		default:
			stats.Retried++
		}
		dispatchErr = errors.Join(dispatchErr, err)
	}
	return stats, dispatchErr
}

// Deliver notifies one claimed release and records the outcome on its row.
func (d *ReleaseDispatcher) Deliver(ctx context.Context, release PendingRelease) error {
	if d == nil || d.store == nil {
		return fmt.Errorf("core: release dispatcher is not configured")
	}
	id := strings.TrimSpace(release.Request.ID)
	if id == "" {
		return fmt.Errorf("%w: withdrawal id is required", ErrInvalidInput)
	}
	if err := d.notifier.NotifyRelease(ctx, release.Request); err != nil {
		cause := fmt.Errorf("core: release notification for %q failed: %w", id, err)
		if retryErr := d.store.Retry(ctx, id, err, d.nextAttemptAt(release.Attempts)); retryErr != nil {
			return errors.Join(cause, retryErr)
		}
		return cause
	}
	return d.store.Ack(ctx, id)
}

// nextAttemptAt is zero once the release is out of attempts.
func (d *ReleaseDispatcher) nextAttemptAt(previousAttempts int) time.Time {
	attempt := previousAttempts + 1
	if attempt >= d.config.MaxAttempts {
		return time.Time{}
	}
	return d.now().Add(d.backoff(attempt))
}

func (d *ReleaseDispatcher) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	next := time.Duration(float64(d.config.InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if next <= 0 || next > d.config.MaxBackoff {
		return d.config.MaxBackoff
	}
	return next
}

// claimable reports whether a release may be claimed at now.
func (r PendingRelease) claimable(now time.Time, staleBefore time.Time) bool {
	switch r.Status {
	case ReleaseStatusPending:
		return r.NextAttemptAt.IsZero() || !r.NextAttemptAt.After(now)
	case ReleaseStatusProcessing:
		return !r.ClaimedAt.After(staleBefore)
	default:
		return false
	}
}

package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-bridge-ledger/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// txReleaseOutbox stages withdrawals in the transaction that burned them.
// The (ledger_id, withdrawal_id) unique index rejects a second stage.
type txReleaseOutbox struct {
	tx       bun.Tx
	ledgerID string
	readOnly bool
	repo     repository.Repository[*releaseOutboxRecord]
}

func (o *txReleaseOutbox) Stage(ctx context.Context, req core.WithdrawalRequest, claimedAt time.Time) error {
	if o.readOnly {
		return core.ErrReadOnly
	}
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: withdrawal id is required", core.ErrInvalidInput)
	}
	_, err := o.repo.CreateTx(ctx, o.tx, newReleaseOutboxRecord(o.ledgerID, req, claimedAt))
	return err
}

// ReleaseOutboxStore claims and settles staged withdrawals for one ledger.
type ReleaseOutboxStore struct {
	db       *bun.DB
	ledgerID string
	repo     repository.Repository[*releaseOutboxRecord]
}

func NewReleaseOutboxStore(db *bun.DB, ledgerID string) (*ReleaseOutboxStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*releaseOutboxRecord](db, releaseOutboxHandlers())
	if err := validateRepository(repo, "release outbox"); err != nil {
		return nil, err
	}
	return &ReleaseOutboxStore{db: db, ledgerID: strings.TrimSpace(ledgerID), repo: repo}, nil
}

const claimReleasesQuery = `
WITH claimed AS (
	SELECT id
	FROM ledger_release_outbox
	WHERE ledger_id = ?
	  AND ((status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
	    OR (status = ? AND claimed_at <= ?))
	ORDER BY requested_at ASC
	LIMIT ?
)
UPDATE ledger_release_outbox
SET status = ?, claimed_at = ?, updated_at = ?
WHERE id IN (SELECT id FROM claimed)
  AND ((status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
    OR (status = ? AND claimed_at <= ?))
RETURNING
	id,
	ledger_id,
	withdrawal_id,
	external_chain,
	external_address,
	amount,
	requester,
	requested_at,
	status,
	attempts,
	next_attempt_at,
	claimed_at,
	last_error,
	created_at,
	updated_at
`

func (s *ReleaseOutboxStore) ClaimBatch(ctx context.Context, limit int, now time.Time, staleBefore time.Time) ([]core.PendingRelease, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: release outbox store is not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	now = now.UTC()
	staleBefore = staleBefore.UTC()
	pending := string(core.ReleaseStatusPending)
	processing := string(core.ReleaseStatusProcessing)

	var records []releaseOutboxRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(
			claimReleasesQuery,
			s.ledgerID,
			pending, now,
			processing, staleBefore,
			limit,
			processing, now, now,
			pending, now,
			processing, staleBefore,
		).Scan(ctx, &records)
	})
	if err != nil {
		return nil, err
	}

	releases := make([]core.PendingRelease, 0, len(records))
	for _, record := range records {
		release, err := record.toDomain()
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}
	return releases, nil
}

func (s *ReleaseOutboxStore) Ack(ctx context.Context, withdrawalID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: release outbox store is not configured")
	}
	withdrawalID = strings.TrimSpace(withdrawalID)
	if withdrawalID == "" {
		return fmt.Errorf("%w: withdrawal id is required", core.ErrInvalidInput)
	}
	return s.settle(ctx, withdrawalID, s.db.NewUpdate().
		Model((*releaseOutboxRecord)(nil)).
		Set("status = ?", string(core.ReleaseStatusDelivered)).
		Set("last_error = ?", "").
		Set("next_attempt_at = NULL"))
}

// Retry records a failed notification. A zero nextAttemptAt marks the
// release failed; it is never claimed again.
func (s *ReleaseOutboxStore) Retry(ctx context.Context, withdrawalID string, cause error, nextAttemptAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: release outbox store is not configured")
	}
	withdrawalID = strings.TrimSpace(withdrawalID)
	if withdrawalID == "" {
		return fmt.Errorf("%w: withdrawal id is required", core.ErrInvalidInput)
	}
	status := core.ReleaseStatusPending
	var next *time.Time
	if nextAttemptAt.IsZero() {
		status = core.ReleaseStatusFailed
	} else {
		value := nextAttemptAt.UTC()
		next = &value
	}
	lastError := ""
	if cause != nil {
		lastError = strings.TrimSpace(cause.Error())
	}
	return s.settle(ctx, withdrawalID, s.db.NewUpdate().
		Model((*releaseOutboxRecord)(nil)).
		Set("status = ?", string(status)).
		Set("attempts = attempts + 1").
		Set("next_attempt_at = ?", next).
		Set("last_error = ?", lastError))
}

func (s *ReleaseOutboxStore) settle(ctx context.Context, withdrawalID string, query *bun.UpdateQuery) error {
	result, err := query.
		Set("updated_at = ?", time.Now().UTC()).
		Where("ledger_id = ?", s.ledgerID).
		Where("withdrawal_id = ?", withdrawalID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrReleaseNotFound, withdrawalID)
	}
	return nil
}

func (s *ReleaseOutboxStore) GetRelease(ctx context.Context, withdrawalID string) (core.PendingRelease, error) {
	if s == nil || s.repo == nil {
		return core.PendingRelease{}, fmt.Errorf("sqlstore: release outbox store is not configured")
	}
	withdrawalID = strings.TrimSpace(withdrawalID)
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("ledger_id", "=", s.ledgerID),
		repository.SelectBy("withdrawal_id", "=", withdrawalID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.PendingRelease{}, err
	}
	if len(records) == 0 {
		return core.PendingRelease{}, fmt.Errorf("%w: %s", core.ErrReleaseNotFound, withdrawalID)
	}
	return records[0].toDomain()
}

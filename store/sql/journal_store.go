package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-bridge-ledger/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type txJournalWriter struct {
	tx       bun.Tx
	ledgerID string
	readOnly bool
	repo     repository.Repository[*journalRecord]
	now      func() time.Time
}

func (w *txJournalWriter) AppendJournal(ctx context.Context, entry core.JournalEntry) (core.JournalEntry, error) {
	if w.readOnly {
		return core.JournalEntry{}, core.ErrReadOnly
	}
	var last int64
	if err := w.tx.NewSelect().
		Model((*journalRecord)(nil)).
		ColumnExpr("COALESCE(MAX(sequence), 0)").
		Where("ledger_id = ?", w.ledgerID).
		Scan(ctx, &last); err != nil {
		return core.JournalEntry{}, err
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = w.now()
	}
	entry.Sequence = last + 1
	if _, err := w.repo.CreateTx(ctx, w.tx, newJournalRecord(w.ledgerID, entry)); err != nil {
		return core.JournalEntry{}, err
	}
	return entry, nil
}

// JournalStore pages through the audit journal in sequence order.
type JournalStore struct {
	ledgerID string
	repo     repository.Repository[*journalRecord]
}

func NewJournalStore(db *bun.DB, ledgerID string) (*JournalStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*journalRecord](db, journalHandlers())
	if err := validateRepository(repo, "journal"); err != nil {
		return nil, err
	}
	return &JournalStore{ledgerID: ledgerID, repo: repo}, nil
}

func (s *JournalStore) ListJournal(ctx context.Context, filter core.JournalFilter) (core.JournalPage, error) {
	if s == nil || s.repo == nil {
		return core.JournalPage{}, fmt.Errorf("sqlstore: journal store is not configured")
	}
	page, perPage, offset := core.NormalizePage(filter.Page, filter.PerPage)
	criteria := []repository.SelectCriteria{
		repository.SelectBy("ledger_id", "=", s.ledgerID),
	}
	if filter.Operation != "" {
		criteria = append(criteria, repository.SelectBy("operation", "=", string(filter.Operation)))
	}
	if filter.Address != nil {
		key := addressKey(*filter.Address)
		criteria = append(criteria, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("caller = ?", key).
					WhereOr("from_address = ?", key).
					WhereOr("to_address = ?", key)
			})
		}))
	}
	criteria = append(criteria,
		repository.OrderBy("sequence ASC"),
		repository.SelectPaginate(perPage, offset),
	)
	records, total, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return core.JournalPage{}, err
	}
	items := make([]core.JournalEntry, 0, len(records))
	for _, record := range records {
		entry, err := record.toDomain()
		if err != nil {
			return core.JournalPage{}, err
		}
		items = append(items, entry)
	}
	return core.JournalPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

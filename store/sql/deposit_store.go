package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-bridge-ledger/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// txDepositRegistry is the BridgeRegistry bound to one bun transaction. The
// (ledger_id, external_tx_id) unique index backs the duplicate check.
type txDepositRegistry struct {
	tx       bun.Tx
	ledgerID string
	readOnly bool
	repo     repository.Repository[*depositRecord]
}

func (r *txDepositRegistry) IsProcessed(ctx context.Context, externalTxID string) (bool, error) {
	return r.tx.NewSelect().
		Model((*depositRecord)(nil)).
		Where("ledger_id = ?", r.ledgerID).
		Where("external_tx_id = ?", strings.TrimSpace(externalTxID)).
		Exists(ctx)
}

func (r *txDepositRegistry) Record(ctx context.Context, deposit core.BridgeDeposit) error {
	if r.readOnly {
		return core.ErrReadOnly
	}
	if strings.TrimSpace(deposit.ExternalTxID) == "" {
		return fmt.Errorf("%w: external tx id is required", core.ErrInvalidInput)
	}
	processed, err := r.IsProcessed(ctx, deposit.ExternalTxID)
	if err != nil {
		return err
	}
	if processed {
		return core.ErrDuplicateDeposit
	}
	if _, err := r.repo.CreateTx(ctx, r.tx, newDepositRecord(r.ledgerID, deposit)); err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicateDeposit
		}
		return err
	}
	return nil
}

// DepositStore serves processed deposits outside a unit of work.
type DepositStore struct {
	ledgerID string
	repo     repository.Repository[*depositRecord]
}

func NewDepositStore(db *bun.DB, ledgerID string) (*DepositStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*depositRecord](db, depositHandlers())
	if err := validateRepository(repo, "bridge deposit"); err != nil {
		return nil, err
	}
	return &DepositStore{ledgerID: ledgerID, repo: repo}, nil
}

func (s *DepositStore) IsProcessed(ctx context.Context, externalTxID string) (bool, error) {
	if s == nil || s.repo == nil {
		return false, fmt.Errorf("sqlstore: deposit store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("ledger_id", "=", s.ledgerID),
		repository.SelectBy("external_tx_id", "=", strings.TrimSpace(externalTxID)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

func (s *DepositStore) GetDeposit(ctx context.Context, externalTxID string) (core.BridgeDeposit, error) {
	if s == nil || s.repo == nil {
		return core.BridgeDeposit{}, fmt.Errorf("sqlstore: deposit store is not configured")
	}
	externalTxID = strings.TrimSpace(externalTxID)
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("ledger_id", "=", s.ledgerID),
		repository.SelectBy("external_tx_id", "=", externalTxID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.BridgeDeposit{}, err
	}
	if len(records) == 0 {
		return core.BridgeDeposit{}, fmt.Errorf("%w: %s", core.ErrDepositNotFound, externalTxID)
	}
	return records[0].toDomain()
}

func (s *DepositStore) ListDeposits(ctx context.Context, filter core.DepositFilter) (core.DepositPage, error) {
	if s == nil || s.repo == nil {
		return core.DepositPage{}, fmt.Errorf("sqlstore: deposit store is not configured")
	}
	page, perPage, offset := core.NormalizePage(filter.Page, filter.PerPage)
	criteria := []repository.SelectCriteria{
		repository.SelectBy("ledger_id", "=", s.ledgerID),
	}
	if filter.Recipient != nil {
		criteria = append(criteria, repository.SelectBy("recipient", "=", addressKey(*filter.Recipient)))
	}
	criteria = append(criteria,
		repository.OrderBy("processed_at ASC"),
		repository.OrderBy("created_at ASC"),
		repository.SelectPaginate(perPage, offset),
	)
	records, total, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return core.DepositPage{}, err
	}
	items := make([]core.BridgeDeposit, 0, len(records))
	for _, record := range records {
		deposit, err := record.toDomain()
		if err != nil {
			return core.DepositPage{}, err
		}
		items = append(items, deposit)
	}
	return core.DepositPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

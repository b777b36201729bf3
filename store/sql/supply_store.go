package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-bridge-ledger/core"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// txSupplyStore owns the ledger_states row: total supply and owner slot.
type txSupplyStore struct {
	tx       bun.Tx
	ledgerID string
	readOnly bool
	now      func() time.Time
}

// ensureRow creates the state row and, on postgres, locks it for the rest
// of the transaction so concurrent writers queue behind it.
func (s *txSupplyStore) ensureRow(ctx context.Context) error {
	now := s.now()
	record := &ledgerStateRecord{
		LedgerID:    s.ledgerID,
		TotalSupply: "0",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.tx.NewInsert().
		Model(record).
		On("CONFLICT (ledger_id) DO NOTHING").
		Exec(ctx); err != nil {
		return err
	}
	if s.tx.Dialect().Name() != dialect.PG {
		return nil
	}
	var locked ledgerStateRecord
	return s.tx.NewSelect().
		Model(&locked).
		Where("ledger_id = ?", s.ledgerID).
		For("UPDATE").
		Scan(ctx)
}

func (s *txSupplyStore) load(ctx context.Context) (*ledgerStateRecord, error) {
	var record ledgerStateRecord
	err := s.tx.NewSelect().
		Model(&record).
		Where("ledger_id = ?", s.ledgerID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *txSupplyStore) TotalSupply(ctx context.Context) (core.Amount, error) {
	record, err := s.load(ctx)
	if err != nil || record == nil {
		return core.Amount{}, err
	}
	return parseStoredAmount(record.TotalSupply)
}

func (s *txSupplyStore) Increase(ctx context.Context, amount core.Amount) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	current, err := s.TotalSupply(ctx)
	if err != nil {
		return err
	}
	next, err := current.Add(amount)
	if err != nil {
		return err
	}
	return s.setSupply(ctx, next)
}

func (s *txSupplyStore) Decrease(ctx context.Context, amount core.Amount) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	current, err := s.TotalSupply(ctx)
	if err != nil {
		return err
	}
	next, err := current.Sub(amount)
	if err != nil {
		return err
	}
	return s.setSupply(ctx, next)
}

func (s *txSupplyStore) setSupply(ctx context.Context, supply core.Amount) error {
	_, err := s.tx.NewUpdate().
		Model((*ledgerStateRecord)(nil)).
		Set("total_supply = ?", supply.String()).
		Set("updated_at = ?", s.now()).
		Where("ledger_id = ?", s.ledgerID).
		Exec(ctx)
	return err
}

func (s *txSupplyStore) Owner(ctx context.Context) (core.Address, error) {
	record, err := s.load(ctx)
	if err != nil || record == nil {
		return core.ZeroAddress, err
	}
	return parseStoredAddress(record.Owner)
}

func (s *txSupplyStore) SetOwner(ctx context.Context, owner core.Address) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	_, err := s.tx.NewUpdate().
		Model((*ledgerStateRecord)(nil)).
		Set("owner = ?", addressKey(owner)).
		Set("updated_at = ?", s.now()).
		Where("ledger_id = ?", s.ledgerID).
		Exec(ctx)
	return err
}

func (s *txSupplyStore) Initialized(ctx context.Context) (bool, error) {
	record, err := s.load(ctx)
	if err != nil || record == nil {
		return false, err
	}
	return record.Owner != "", nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-bridge-ledger/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const accountListPageSize = 500

// txAccountStore is the AccountStore bound to one bun transaction.
type txAccountStore struct {
	tx       bun.Tx
	ledgerID string
	readOnly bool
	now      func() time.Time
}

func (s *txAccountStore) Balance(ctx context.Context, addr core.Address) (core.Amount, error) {
	var record accountRecord
	err := s.tx.NewSelect().
		Model(&record).
		Where("ledger_id = ?", s.ledgerID).
		Where("address = ?", addressKey(addr)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Amount{}, nil
	}
	if err != nil {
		return core.Amount{}, err
	}
	return parseStoredAmount(record.Balance)
}

func (s *txAccountStore) Credit(ctx context.Context, addr core.Address, amount core.Amount) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	current, err := s.Balance(ctx, addr)
	if err != nil {
		return err
	}
	next, err := current.Add(amount)
	if err != nil {
		return err
	}
	return s.put(ctx, addr, next)
}

func (s *txAccountStore) Debit(ctx context.Context, addr core.Address, amount core.Amount) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	current, err := s.Balance(ctx, addr)
	if err != nil {
		return err
	}
	if current.LessThan(amount) {
		return core.ErrInsufficientBalance
	}
	next, err := current.Sub(amount)
	if err != nil {
		return err
	}
	return s.put(ctx, addr, next)
}

// ListAccounts reads every account of the ledger inside the transaction.
func (s *txAccountStore) ListAccounts(ctx context.Context) ([]core.Account, error) {
	var records []accountRecord
	if err := s.tx.NewSelect().
		Model(&records).
		Where("ledger_id = ?", s.ledgerID).
		OrderExpr("address ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	accounts := make([]core.Account, 0, len(records))
	for _, record := range records {
		account, err := record.toDomain()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *txAccountStore) put(ctx context.Context, addr core.Address, balance core.Amount) error {
	now := s.now()
	record := &accountRecord{
		ID:        uuid.NewString(),
		LedgerID:  s.ledgerID,
		Address:   addressKey(addr),
		Balance:   balance.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.tx.NewInsert().
		Model(record).
		On("CONFLICT (ledger_id, address) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// AccountReader lists persisted accounts outside a unit of work.
type AccountReader struct {
	ledgerID string
	repo     repository.Repository[*accountRecord]
}

func NewAccountReader(db *bun.DB, ledgerID string) (*AccountReader, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*accountRecord](db, accountHandlers())
	if err := validateRepository(repo, "account"); err != nil {
		return nil, err
	}
	return &AccountReader{ledgerID: ledgerID, repo: repo}, nil
}

func (r *AccountReader) ListAccounts(ctx context.Context) ([]core.Account, error) {
	if r == nil || r.repo == nil {
		return nil, fmt.Errorf("sqlstore: account reader is not configured")
	}
	accounts := []core.Account{}
	for offset := 0; ; offset += accountListPageSize {
		records, _, err := r.repo.List(ctx,
			repository.SelectBy("ledger_id", "=", r.ledgerID),
			repository.OrderBy("address ASC"),
			repository.SelectPaginate(accountListPageSize, offset),
		)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			account, err := record.toDomain()
			if err != nil {
				return nil, err
			}
			accounts = append(accounts, account)
		}
		if len(records) < accountListPageSize {
			return accounts, nil
		}
	}
}

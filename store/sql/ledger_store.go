package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-bridge-ledger/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// LedgerStore runs ledger units of work inside one bun transaction each, so a
// failed operation rolls back every row it touched.
type LedgerStore struct {
	db          *bun.DB
	ledgerID    string
	depositRepo repository.Repository[*depositRecord]
	journalRepo repository.Repository[*journalRecord]
	releaseRepo repository.Repository[*releaseOutboxRecord]

	Now func() time.Time
}

func NewLedgerStore(db *bun.DB, ledgerID string) (*LedgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	ledgerID = strings.TrimSpace(ledgerID)
	if ledgerID == "" {
		return nil, fmt.Errorf("sqlstore: ledger id is required")
	}
	depositRepo := repository.NewRepository[*depositRecord](db, depositHandlers())
	if err := validateRepository(depositRepo, "bridge deposit"); err != nil {
		return nil, err
	}
	journalRepo := repository.NewRepository[*journalRecord](db, journalHandlers())
	if err := validateRepository(journalRepo, "journal"); err != nil {
		return nil, err
	}
	releaseRepo := repository.NewRepository[*releaseOutboxRecord](db, releaseOutboxHandlers())
	if err := validateRepository(releaseRepo, "release outbox"); err != nil {
		return nil, err
	}
	return &LedgerStore{
		db:          db,
		ledgerID:    ledgerID,
		depositRepo: depositRepo,
		journalRepo: journalRepo,
		releaseRepo: releaseRepo,
	}, nil
}

func (s *LedgerStore) View(ctx context.Context, fn func(state core.LedgerState) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ledger store is not configured")
	}
	if fn == nil {
		return nil
	}
	return s.db.RunInTx(ctx, s.viewOptions(), func(ctx context.Context, tx bun.Tx) error {
		return fn(s.bind(tx, true))
	})
}

func (s *LedgerStore) Update(ctx context.Context, fn func(tx core.LedgerTx) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ledger store is not configured")
	}
	if fn == nil {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		bound := s.bind(tx, false)
		if err := bound.supply.ensureRow(ctx); err != nil {
			return wrapf(err, "prepare ledger %s", s.ledgerID)
		}
		return fn(bound)
	})
}

// viewOptions gives postgres views one snapshot for every statement. SQLite
// read transactions are already snapshot consistent.
func (s *LedgerStore) viewOptions() *sql.TxOptions {
	if s.db.Dialect().Name() != dialect.PG {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (s *LedgerStore) LedgerID() string {
	if s == nil {
		return ""
	}
	return s.ledgerID
}

func (s *LedgerStore) bind(tx bun.Tx, readOnly bool) *sqlTx {
	now := s.now
	return &sqlTx{
		accounts: &txAccountStore{tx: tx, ledgerID: s.ledgerID, readOnly: readOnly, now: now},
		supply:   &txSupplyStore{tx: tx, ledgerID: s.ledgerID, readOnly: readOnly, now: now},
		registry: &txDepositRegistry{tx: tx, ledgerID: s.ledgerID, readOnly: readOnly, repo: s.depositRepo},
		journal:  &txJournalWriter{tx: tx, ledgerID: s.ledgerID, readOnly: readOnly, repo: s.journalRepo, now: now},
		releases: &txReleaseOutbox{tx: tx, ledgerID: s.ledgerID, readOnly: readOnly, repo: s.releaseRepo},
	}
}

func (s *LedgerStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type sqlTx struct {
	accounts *txAccountStore
	supply   *txSupplyStore
	registry *txDepositRegistry
	journal  *txJournalWriter
	releases *txReleaseOutbox
}

func (t *sqlTx) Accounts() core.AccountStore   { return t.accounts }
func (t *sqlTx) Supply() core.SupplyLedger     { return t.supply }
func (t *sqlTx) OwnerSlot() core.OwnerSlot     { return t.supply }
func (t *sqlTx) Registry() core.BridgeRegistry { return t.registry }
func (t *sqlTx) Journal() core.JournalWriter   { return t.journal }
func (t *sqlTx) Releases() core.ReleaseOutbox  { return t.releases }

func (t *sqlTx) Balance(ctx context.Context, addr core.Address) (core.Amount, error) {
	return t.accounts.Balance(ctx, addr)
}

func (t *sqlTx) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return t.accounts.ListAccounts(ctx)
}

func (t *sqlTx) TotalSupply(ctx context.Context) (core.Amount, error) {
	return t.supply.TotalSupply(ctx)
}

func (t *sqlTx) Owner(ctx context.Context) (core.Address, error) {
	return t.supply.Owner(ctx)
}

func (t *sqlTx) Initialized(ctx context.Context) (bool, error) {
	return t.supply.Initialized(ctx)
}

func (t *sqlTx) IsProcessed(ctx context.Context, externalTxID string) (bool, error) {
	return t.registry.IsProcessed(ctx, externalTxID)
}

func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("sqlstore: "+format+": %w", append(args, err)...)
}

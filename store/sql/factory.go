package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-bridge-ledger/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds ledger-scoped SQL stores from a persistence
// client or bun db. It satisfies core.RepositoryStoreFactory.
type RepositoryFactory struct {
	db    *bun.DB
	cache repositorycache.CacheService
}

type FactoryOption func(*RepositoryFactory)

// WithDepositCache puts GetDeposit lookups behind the given cache service.
func WithDepositCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cache = cacheService
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	if client == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	factory := NewRepositoryFactory(opts...)
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	factory.db = db
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	factory := NewRepositoryFactory(opts...)
	factory.db = db
	return factory, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) BuildStores(persistenceClient any, ledgerID string) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	ledgerID = strings.TrimSpace(ledgerID)
	if ledgerID == "" {
		return nil, fmt.Errorf("sqlstore: ledger id is required")
	}

	ledgerStore, err := NewLedgerStore(f.db, ledgerID)
	if err != nil {
		return nil, err
	}
	depositStore, err := NewDepositStore(f.db, ledgerID)
	if err != nil {
		return nil, err
	}
	journalStore, err := NewJournalStore(f.db, ledgerID)
	if err != nil {
		return nil, err
	}
	accountReader, err := NewAccountReader(f.db, ledgerID)
	if err != nil {
		return nil, err
	}
	releaseOutbox, err := NewReleaseOutboxStore(f.db, ledgerID)
	if err != nil {
		return nil, err
	}

	var deposits DepositLookup = depositStore
	if f.cache != nil {
		cached, err := NewCachedDepositReader(ledgerID, depositStore, f.cache)
		if err != nil {
			return nil, err
		}
		deposits = cached
	}

	return &Stores{
		ledger:   ledgerStore,
		releases: releaseOutbox,
		reader: &LedgerReader{
			deposits: deposits,
			journal:  journalStore,
			accounts: accountReader,
		},
	}, nil
}

// Stores is the StoreProvider returned by BuildStores.
type Stores struct {
	ledger   *LedgerStore
	reader   *LedgerReader
	releases *ReleaseOutboxStore
}

func (s *Stores) LedgerStore() core.LedgerStore {
	if s == nil || s.ledger == nil {
		return nil
	}
	return s.ledger
}

func (s *Stores) LedgerReader() core.LedgerReader {
	if s == nil || s.reader == nil {
		return nil
	}
	return s.reader
}

func (s *Stores) ReleaseOutbox() core.ReleaseOutboxStore {
	if s == nil || s.releases == nil {
		return nil
	}
	return s.releases
}

// LedgerReader composes the read-model stores into core.LedgerReader.
type LedgerReader struct {
	deposits DepositLookup
	journal  *JournalStore
	accounts *AccountReader
}

func (r *LedgerReader) GetDeposit(ctx context.Context, externalTxID string) (core.BridgeDeposit, error) {
	return r.deposits.GetDeposit(ctx, externalTxID)
}

func (r *LedgerReader) ListDeposits(ctx context.Context, filter core.DepositFilter) (core.DepositPage, error) {
	return r.deposits.ListDeposits(ctx, filter)
}

func (r *LedgerReader) ListJournal(ctx context.Context, filter core.JournalFilter) (core.JournalPage, error) {
	return r.journal.ListJournal(ctx, filter)
}

func (r *LedgerReader) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return r.accounts.ListAccounts(ctx)
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

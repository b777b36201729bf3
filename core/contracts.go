package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// AccountStore holds per-address balances. Unknown addresses read as zero.
// Credit fails with ErrOverflow and Debit with ErrInsufficientBalance; a
// failed call leaves the account untouched.
type AccountStore interface {
	Balance(ctx context.Context, addr Address) (Amount, error)
	Credit(ctx context.Context, addr Address, amount Amount) error
	Debit(ctx context.Context, addr Address, amount Amount) error
}

// SupplyLedger tracks the total supply. It must only move in lock-step with
// an AccountStore mutation inside the same unit of work.
type SupplyLedger interface {
	TotalSupply(ctx context.Context) (Amount, error)
	Increase(ctx context.Context, amount Amount) error
	Decrease(ctx context.Context, amount Amount) error
}

// OwnerSlot persists the single owner address. Initialized reports whether
// the ledger has been bootstrapped.
type OwnerSlot interface {
	Owner(ctx context.Context) (Address, error)
	SetOwner(ctx context.Context, owner Address) error
	Initialized(ctx context.Context) (bool, error)
}

// BridgeRegistry records processed external deposits. Record fails with
// ErrDuplicateDeposit when the external tx id is already present.
type BridgeRegistry interface {
	IsProcessed(ctx context.Context, externalTxID string) (bool, error)
	Record(ctx context.Context, deposit BridgeDeposit) error
}

type JournalWriter interface {
	AppendJournal(ctx context.Context, entry JournalEntry) (JournalEntry, error)
}

// LedgerState is the read side of one consistent ledger snapshot.
type LedgerState interface {
	Balance(ctx context.Context, addr Address) (Amount, error)
	TotalSupply(ctx context.Context) (Amount, error)
	Owner(ctx context.Context) (Address, error)
	Initialized(ctx context.Context) (bool, error)
	IsProcessed(ctx context.Context, externalTxID string) (bool, error)
	// ListAccounts returns every account in the snapshot ordered by address.
	ListAccounts(ctx context.Context) ([]Account, error)
}

// LedgerTx exposes every component bound to one unit of work.
type LedgerTx interface {
	LedgerState
	Accounts() AccountStore
	Supply() SupplyLedger
	OwnerSlot() OwnerSlot
	Registry() BridgeRegistry
	Journal() JournalWriter
	Releases() ReleaseOutbox
}

// LedgerStore runs units of work. Update commits every mutation made by fn
// when fn returns nil and none of them otherwise. View never mutates.
type LedgerStore interface {
	View(ctx context.Context, fn func(state LedgerState) error) error
	Update(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerReader serves read models that are not part of a unit of work.
type LedgerReader interface {
	GetDeposit(ctx context.Context, externalTxID string) (BridgeDeposit, error)
	ListDeposits(ctx context.Context, filter DepositFilter) (DepositPage, error)
	ListJournal(ctx context.Context, filter JournalFilter) (JournalPage, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

// ReleaseNotifier is told about committed unwraps so the relayer can release
// the external asset. Failed notifications are retried from the release
// outbox, so implementations must tolerate duplicates.
type ReleaseNotifier interface {
	NotifyRelease(ctx context.Context, req WithdrawalRequest) error
}

type ReleaseNotifierFunc func(ctx context.Context, req WithdrawalRequest) error

func (f ReleaseNotifierFunc) NotifyRelease(ctx context.Context, req WithdrawalRequest) error {
	if f == nil {
		return nil
	}
	return f(ctx, req)
}

type NopReleaseNotifier struct{}

func (NopReleaseNotifier) NotifyRelease(context.Context, WithdrawalRequest) error { return nil }

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type StoreProvider interface {
	LedgerStore() LedgerStore
	LedgerReader() LedgerReader
}

// RepositoryStoreFactory builds ledger-scoped stores from a persistence
// client, usually a *persistence.Client or *bun.DB.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any, ledgerID string) (StoreProvider, error)
}

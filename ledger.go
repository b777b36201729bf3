package ledger

import (
	"fmt"

	"github.com/goliatone/go-bridge-ledger/core"
	sqlstore "github.com/goliatone/go-bridge-ledger/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
)

type Config = core.Config

type TokenConfig = core.TokenConfig

type BridgeConfig = core.BridgeConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Address = core.Address
type Amount = core.Amount
type Receipt = core.Receipt
type BridgeDeposit = core.BridgeDeposit
type WithdrawalRequest = core.WithdrawalRequest
type JournalEntry = core.JournalEntry

type TransferRequest = core.TransferRequest
type MintRequest = core.MintRequest
type MintToRequest = core.MintToRequest
type BurnRequest = core.BurnRequest
type BridgeWrapRequest = core.BridgeWrapRequest
type BridgeUnwrapRequest = core.BridgeUnwrapRequest
type TransferOwnershipRequest = core.TransferOwnershipRequest

type ReleaseNotifier = core.ReleaseNotifier
type ReleaseHandler = core.ReleaseHandler

var (
	WithLogger                  = core.WithLogger
	WithLoggerProvider          = core.WithLoggerProvider
	WithMetricsRecorder         = core.WithMetricsRecorder
	WithErrorFactory            = core.WithErrorFactory
	WithErrorMapper             = core.WithErrorMapper
	WithPersistenceClient       = core.WithPersistenceClient
	WithRepositoryFactory       = core.WithRepositoryFactory
	WithConfigProvider          = core.WithConfigProvider
	WithOptionsResolver         = core.WithOptionsResolver
	WithLedgerStore             = core.WithLedgerStore
	WithLedgerReader            = core.WithLedgerReader
	WithReleaseNotifier         = core.WithReleaseNotifier
	WithJobEnqueuer             = core.WithJobEnqueuer
	WithReleaseOutboxStore      = core.WithReleaseOutboxStore
	WithReleaseDispatcherConfig = core.WithReleaseDispatcherConfig
	WithClock                   = core.WithClock
)

var (
	ParseAddress = core.ParseAddress
	ParseAmount  = core.ParseAmount
	NewAmount    = core.NewAmount
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup builds the service and bootstraps the genesis owner.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}

// SetupSQL is Setup over a migrated persistence client. Later options win,
// so callers can still swap the repository factory.
func SetupSQL(cfg Config, client *persistence.Client, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("ledger: persistence client is required")
	}
	base := []Option{
		core.WithPersistenceClient(client),
		core.WithRepositoryFactory(sqlstore.NewRepositoryFactory()),
	}
	return core.Setup(cfg, append(base, opts...)...)
}

package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service is the token engine. Every mutation runs under one mutex and one
// LedgerStore unit of work, so a failed operation leaves no trace. Release
// notifications run after the mutex is released.
type Service struct {
	mu sync.Mutex

	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	store             LedgerStore
	reader            LedgerReader
	releaseNotifier   ReleaseNotifier
	releaseOutbox     ReleaseOutboxStore
	releases          *ReleaseDispatcher
	minUnwrap         Amount
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	LedgerStore       LedgerStore
	LedgerReader      LedgerReader
	ReleaseNotifier   ReleaseNotifier
	ReleaseOutbox     ReleaseOutboxStore
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("ledger", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("ledger"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = utcNow
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.releaseNotifier == nil && builder.jobEnqueuer != nil {
		builder.releaseNotifier = NewJobReleaseNotifier(builder.jobEnqueuer, finalConfig.ReleaseJobID())
	}
	if builder.releaseNotifier == nil {
		builder.releaseNotifier = NopReleaseNotifier{}
	}

	if builder.ledgerStore == nil && builder.repositoryFactory != nil {
		var stores StoreProvider
		switch factory := builder.repositoryFactory.(type) {
		case RepositoryStoreFactory:
			stores, err = factory.BuildStores(builder.persistenceClient, finalConfig.LedgerID)
			if err != nil {
				return nil, mapBuildError(builder.errorMapper, err)
			}
		case StoreProvider:
			stores = factory
		default:
			return nil, mapBuildError(builder.errorMapper,
				fmt.Errorf("core: unsupported repository factory %T", builder.repositoryFactory))
		}
		if stores != nil {
			builder.ledgerStore = stores.LedgerStore()
			if builder.ledgerReader == nil {
				builder.ledgerReader = stores.LedgerReader()
			}
			if outbox, ok := stores.(ReleaseOutboxProvider); ok && builder.releaseOutbox == nil {
				builder.releaseOutbox = outbox.ReleaseOutbox()
			}
		}
	}
	if builder.ledgerStore == nil {
		memory := NewMemoryLedgerStore()
		memory.Now = builder.now
		builder.ledgerStore = memory
	}
	if builder.ledgerReader == nil {
		if reader, ok := builder.ledgerStore.(LedgerReader); ok {
			builder.ledgerReader = reader
		}
	}
	if builder.releaseOutbox == nil {
		if outbox, ok := builder.ledgerStore.(ReleaseOutboxStore); ok {
			builder.releaseOutbox = outbox
		}
	}
	var releases *ReleaseDispatcher
	if builder.releaseOutbox != nil {
		releases, err = NewReleaseDispatcher(builder.releaseOutbox, builder.releaseNotifier, builder.releaseDispatch)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
		releases.now = builder.now
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		store:             builder.ledgerStore,
		reader:            builder.ledgerReader,
		releaseNotifier:   builder.releaseNotifier,
		releaseOutbox:     builder.releaseOutbox,
		releases:          releases,
		minUnwrap:         finalConfig.MinUnwrapAmount(),
		now:               builder.now,
	}, nil
}

// Setup builds the service and bootstraps the configured owner.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	svc, err := NewService(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := svc.Bootstrap(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		LedgerStore:       s.store,
		LedgerReader:      s.reader,
		ReleaseNotifier:   s.releaseNotifier,
		ReleaseOutbox:     s.releaseOutbox,
	}
}

// Bootstrap stores the configured owner on an uninitialized ledger. It is a
// no-op once the ledger has an owner.
func (s *Service) Bootstrap(ctx context.Context) (err error) {
	startedAt := time.Now().UTC()
	owner := s.config.OwnerAddress()
	fields := map[string]any{"owner": owner.Hex()}
	bootstrapped := false
	defer func() {
		fields["bootstrapped"] = bootstrapped
		s.observeOperation(ctx, startedAt, string(OperationBootstrap), err, fields)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.Update(ctx, func(tx LedgerTx) error {
		initialized, err := tx.Initialized(ctx)
		if err != nil || initialized {
			return err
		}
		if owner == ZeroAddress {
			return ledgerError(ErrInvalidInput, "owner is required to bootstrap the ledger", nil)
		}
		if err := tx.OwnerSlot().SetOwner(ctx, owner); err != nil {
			return err
		}
		bootstrapped = true
		_, err = tx.Journal().AppendJournal(ctx, JournalEntry{
			Operation: OperationBootstrap,
			Caller:    owner,
			To:        owner,
			CreatedAt: s.now(),
		})
		return err
	})
	if err != nil {
		bootstrapped = false
		err = s.mapError(asLedgerError(err, fields))
	}
	return err
}

func (s *Service) Transfer(ctx context.Context, req TransferRequest) (Receipt, error) {
	return s.Execute(ctx, req.Operation())
}

// Mint credits the owner.
func (s *Service) Mint(ctx context.Context, req MintRequest) (Receipt, error) {
	return s.Execute(ctx, req.Operation())
}

func (s *Service) MintTo(ctx context.Context, req MintToRequest) (Receipt, error) {
	return s.Execute(ctx, req.Operation())
}

// Burn removes amount from any holder. Owner only.
func (s *Service) Burn(ctx context.Context, req BurnRequest) (Receipt, error) {
	return s.Execute(ctx, req.Operation())
}

func (s *Service) BridgeWrap(ctx context.Context, req BridgeWrapRequest) (Receipt, error) {
	return s.Execute(ctx, req.Operation())
}

// BridgeUnwrap burns the caller's credits and stages the withdrawal in the
// release outbox within the same unit of work. Once committed, the release
// notifier is asked to pay out the external asset; a failed notification
// stays pending for DispatchPendingReleases.
func (s *Service) BridgeUnwrap(ctx context.Context, req BridgeUnwrapRequest) (Receipt, error) {
	return s.Execute(ctx, req.Operation())
}

func (s *Service) TransferOwnership(ctx context.Context, req TransferOwnershipRequest) (Receipt, error) {
	return s.Execute(ctx, req.Operation())
}

// Execute validates and commits op as one unit of work.
func (s *Service) Execute(ctx context.Context, op Operation) (receipt Receipt, err error) {
	startedAt := time.Now().UTC()
	fields := operationFields(op)
	defer func() {
		if receipt.JournalID != "" {
			fields["journal_id"] = receipt.JournalID
		}
		s.observeOperation(ctx, startedAt, string(op.Kind), err, fields)
	}()

	var staged *PendingRelease
	op, receipt, staged, err = s.commit(ctx, op)
	if err != nil {
		err = s.mapError(asLedgerError(err, fields))
		return Receipt{}, err
	}
	if staged != nil {
		s.deliverRelease(ctx, *staged)
	}
	return receipt, nil
}

// commit holds the ledger mutex for exactly one unit of work. An unwrap
// returns the withdrawal it staged.
func (s *Service) commit(ctx context.Context, op Operation) (Operation, Receipt, *PendingRelease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		receipt Receipt
		staged  *PendingRelease
	)
	committedAt := s.now()
	err := s.store.Update(ctx, func(tx LedgerTx) error {
		resolved, err := validateOperation(ctx, tx, op, s.minUnwrap)
		if err != nil {
			return err
		}
		entry, err := applyOperation(ctx, tx, resolved, committedAt)
		if err != nil {
			return err
		}
		supply, err := tx.TotalSupply(ctx)
		if err != nil {
			return err
		}
		receipt = Receipt{
			JournalID:   entry.ID,
			Operation:   resolved.Kind,
			Amount:      resolved.Amount,
			TotalSupply: supply,
			CommittedAt: committedAt,
		}
		op = resolved
		if resolved.Kind != OperationBridgeUnwrap {
			return nil
		}
		req := s.withdrawalFor(resolved, receipt)
		if err := tx.Releases().Stage(ctx, req, committedAt); err != nil {
			return err
		}
		staged = &PendingRelease{Request: req, Status: ReleaseStatusProcessing, ClaimedAt: committedAt}
		return nil
	})
	if err != nil {
		return op, Receipt{}, nil, err
	}
	return op, receipt, staged, nil
}

// Preview reports the outcome Execute would have against the current state
// without committing anything.
func (s *Service) Preview(ctx context.Context, op Operation) (err error) {
	startedAt := time.Now().UTC()
	fields := operationFields(op)
	defer func() {
		s.observeOperation(ctx, startedAt, "preview_"+string(op.Kind), err, fields)
	}()

	err = s.store.View(ctx, func(state LedgerState) error {
		_, err := validateOperation(ctx, state, op, s.minUnwrap)
		return err
	})
	if err != nil {
		err = s.mapError(asLedgerError(err, fields))
	}
	return err
}

// withdrawalFor uses the journal id as withdrawal id, so every unwrap maps
// to exactly one release.
func (s *Service) withdrawalFor(op Operation, receipt Receipt) WithdrawalRequest {
	return WithdrawalRequest{
		ID:              receipt.JournalID,
		ExternalChain:   s.config.Bridge.ExternalChain,
		ExternalAddress: op.ExternalAddress,
		Amount:          op.Amount,
		Requester:       op.Caller,
		RequestedAt:     receipt.CommittedAt,
	}
}

// deliverRelease is the post-commit fast path. Failures leave the withdrawal
// in the outbox for DispatchPendingReleases.
func (s *Service) deliverRelease(ctx context.Context, release PendingRelease) {
	var err error
	if s.releases != nil {
		err = s.releases.Deliver(ctx, release)
	} else {
		err = s.releaseNotifier.NotifyRelease(ctx, release.Request)
	}
	if err == nil {
		return
	}
	s.logError(ctx, "release notification failed", map[string]any{
		"withdrawal_id":    release.Request.ID,
		"external_address": release.Request.ExternalAddress,
		"amount":           release.Request.Amount.String(),
		"outbox":           s.releases != nil,
		"error":            err.Error(),
	})
	s.recordCounter(ctx, metricName("release_notify", "failures"), 1, map[string]string{
		"operation": string(OperationBridgeUnwrap),
	})
}

// DispatchPendingReleases retries withdrawals whose release notification has
// not been accepted yet. Run it periodically.
func (s *Service) DispatchPendingReleases(ctx context.Context, batchSize int) (stats ReleaseDispatchStats, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["claimed"] = stats.Claimed
		fields["delivered"] = stats.Delivered
		fields["retried"] = stats.Retried
		fields["failed"] = stats.Failed
		s.observeOperation(ctx, startedAt, "dispatch_releases", err, fields)
	}()
	if s.releases == nil {
		return ReleaseDispatchStats{}, s.mapError(fmt.Errorf("core: release outbox is not configured"))
	}
	stats, err = s.releases.DispatchPending(ctx, batchSize)
	if err != nil {
		err = s.mapError(err)
	}
	return stats, err
}

// GetRelease reports the outbox row of a withdrawal.
func (s *Service) GetRelease(ctx context.Context, withdrawalID string) (PendingRelease, error) {
	if s.releaseOutbox == nil {
		return PendingRelease{}, s.mapError(fmt.Errorf("core: release outbox is not configured"))
	}
	release, err := s.releaseOutbox.GetRelease(ctx, strings.TrimSpace(withdrawalID))
	if err != nil {
		return PendingRelease{}, s.mapError(asLedgerError(err, map[string]any{"withdrawal_id": withdrawalID}))
	}
	return release, nil
}

func (s *Service) BalanceOf(ctx context.Context, addr Address) (balance Amount, err error) {
	err = s.store.View(ctx, func(state LedgerState) error {
		balance, err = state.Balance(ctx, addr)
		return err
	})
	return balance, s.mapError(err)
}

func (s *Service) TotalSupply(ctx context.Context) (supply Amount, err error) {
	err = s.store.View(ctx, func(state LedgerState) error {
		supply, err = state.TotalSupply(ctx)
		return err
	})
	return supply, s.mapError(err)
}

func (s *Service) Owner(ctx context.Context) (owner Address, err error) {
	err = s.store.View(ctx, func(state LedgerState) error {
		owner, err = NewAccessControl(state).Owner(ctx)
		return err
	})
	return owner, s.mapError(err)
}

func (s *Service) IsProcessed(ctx context.Context, externalTxID string) (processed bool, err error) {
	err = s.store.View(ctx, func(state LedgerState) error {
		processed, err = state.IsProcessed(ctx, strings.TrimSpace(externalTxID))
		return err
	})
	return processed, s.mapError(err)
}

func (s *Service) TokenInfo(ctx context.Context) (TokenInfo, error) {
	info := TokenInfo{
		Name:     s.config.Token.Name,
		Symbol:   s.config.Token.Symbol,
		Decimals: s.config.Token.Decimals,
	}
	err := s.store.View(ctx, func(state LedgerState) error {
		owner, err := state.Owner(ctx)
		if err != nil {
			return err
		}
		supply, err := state.TotalSupply(ctx)
		if err != nil {
			return err
		}
		info.Owner = owner
		info.TotalSupply = supply
		return nil
	})
	if err != nil {
		return TokenInfo{}, s.mapError(err)
	}
	return info, nil
}

func (s *Service) GetDeposit(ctx context.Context, externalTxID string) (BridgeDeposit, error) {
	reader, err := s.requireReader()
	if err != nil {
		return BridgeDeposit{}, err
	}
	deposit, err := reader.GetDeposit(ctx, strings.TrimSpace(externalTxID))
	if err != nil {
		return BridgeDeposit{}, s.mapError(asLedgerError(err, map[string]any{"external_tx_id": externalTxID}))
	}
	return deposit, nil
}

func (s *Service) ListDeposits(ctx context.Context, filter DepositFilter) (DepositPage, error) {
	reader, err := s.requireReader()
	if err != nil {
		return DepositPage{}, err
	}
	page, err := reader.ListDeposits(ctx, filter)
	return page, s.mapError(err)
}

func (s *Service) ListJournal(ctx context.Context, filter JournalFilter) (JournalPage, error) {
	reader, err := s.requireReader()
	if err != nil {
		return JournalPage{}, err
	}
	page, err := reader.ListJournal(ctx, filter)
	return page, s.mapError(err)
}

// VerifyInvariants recomputes the sum of all balances and compares it with
// the recorded total supply. Both are read from one ledger snapshot.
func (s *Service) VerifyInvariants(ctx context.Context) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "verify_invariants", err, fields)
	}()

	var sum, supply Amount
	err = s.store.View(ctx, func(state LedgerState) error {
		accounts, err := state.ListAccounts(ctx)
		if err != nil {
			return err
		}
		balances := make([]Amount, 0, len(accounts))
		for _, account := range accounts {
			balances = append(balances, account.Balance)
		}
		if sum, err = SumAmounts(balances...); err != nil {
			return err
		}
		supply, err = state.TotalSupply(ctx)
		fields["accounts"] = len(accounts)
		return err
	})
	if err != nil {
		return s.mapError(asLedgerError(err, nil))
	}
	fields["balance_sum"] = sum.String()
	fields["total_supply"] = supply.String()
	if !sum.Equal(supply) {
		return s.mapError(ledgerError(ErrSupplyDrift, "sum "+sum.String()+" supply "+supply.String(), cloneFields(fields)))
	}
	return nil
}

func (s *Service) requireReader() (LedgerReader, error) {
	if s == nil || s.reader == nil {
		return nil, s.mapError(fmt.Errorf("core: ledger reader is required"))
	}
	return s.reader, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

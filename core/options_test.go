package core

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

type fixedStoreProvider struct {
	store *MemoryLedgerStore
}

func (p fixedStoreProvider) LedgerStore() LedgerStore   { return p.store }
func (p fixedStoreProvider) LedgerReader() LedgerReader { return p.store }

type recordingStoreFactory struct {
	client   any
	ledgerID string
	store    *MemoryLedgerStore
}

func (f *recordingStoreFactory) BuildStores(client any, ledgerID string) (StoreProvider, error) {
	f.client = client
	f.ledgerID = ledgerID
	return fixedStoreProvider{store: f.store}, nil
}

func TestNewService_DefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.LoggerProvider == nil {
		t.Fatalf("expected default logger provider")
	}
	if deps.ErrorFactory == nil || deps.ErrorMapper == nil {
		t.Fatalf("expected default error factory and mapper")
	}
	if deps.ConfigProvider == nil || deps.OptionsResolver == nil {
		t.Fatalf("expected default config provider and options resolver")
	}
	if _, ok := deps.LedgerStore.(*MemoryLedgerStore); !ok {
		t.Fatalf("expected memory ledger store by default, got %T", deps.LedgerStore)
	}
	if deps.LedgerReader == nil {
		t.Fatalf("expected memory store to double as reader")
	}
	cfg := svc.Config()
	if cfg.ServiceName != "bridge-ledger" || cfg.Token.Symbol != "WLDOGE" {
		t.Fatalf("unexpected default config: %#v", cfg)
	}
	assertAmount(t, "min unwrap", cfg.MinUnwrapAmount(), DefaultMinUnwrapAmount)
}

func TestNewService_WithXOverrides(t *testing.T) {
	customLogger := stubLogger{}
	customProvider := stubLoggerProvider{logger: customLogger}
	customFactory := func(message string, category ...goerrors.Category) *goerrors.Error {
		return goerrors.New("custom:"+message, category...)
	}
	sentinel := errors.New("sentinel")
	customMapper := func(error) *goerrors.Error {
		return goerrors.Wrap(sentinel, goerrors.CategoryOperation, "mapped")
	}
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{ServiceName: "resolved", LedgerID: "resolved-ledger"}}
	notifier := &recordingNotifier{}
	store := NewMemoryLedgerStore()

	svc, err := NewService(Config{ServiceName: "runtime"},
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithErrorFactory(customFactory),
		WithErrorMapper(customMapper),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithReleaseNotifier(notifier),
		WithLedgerStore(store),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.Logger != customLogger {
		t.Fatalf("expected custom logger override")
	}
	if resolved := deps.LoggerProvider.GetLogger("ledger.override"); resolved != customLogger {
		t.Fatalf("expected logger provider to resolve custom logger")
	}
	if deps.ConfigProvider != configProvider || deps.OptionsResolver != optionsResolver {
		t.Fatalf("expected config overrides")
	}
	if deps.ReleaseNotifier != notifier {
		t.Fatalf("expected custom release notifier")
	}
	if deps.LedgerStore != store {
		t.Fatalf("expected custom ledger store")
	}
	if got := svc.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected options resolver output config, got %q", got)
	}

	_, err = svc.Mint(context.Background(), MintRequest{Caller: testAlice, Amount: NewAmount(1)})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected custom mapper output, got %v", err)
	}
}

func TestNewService_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-config",
		"ledger_id":    "config-ledger",
		"owner":        testOwner.Hex(),
		"bridge": map[string]any{
			"external_chain":    "litedoge-testnet",
			"min_unwrap_amount": "25",
		},
	}})

	svc, err := NewService(Config{ServiceName: "from-runtime"}, WithConfigProvider(provider))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cfg := svc.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if cfg.LedgerID != "config-ledger" || cfg.OwnerAddress() != testOwner {
		t.Fatalf("expected config layer values, got %#v", cfg)
	}
	if cfg.Bridge.ExternalChain != "litedoge-testnet" {
		t.Fatalf("expected config external chain, got %q", cfg.Bridge.ExternalChain)
	}
	if cfg.Token.Symbol != "WLDOGE" || cfg.ReleaseJobID() != DefaultReleaseJobID {
		t.Fatalf("expected defaults to fill unset fields, got %#v", cfg)
	}
	assertAmount(t, "min unwrap", cfg.MinUnwrapAmount(), 25)
}

func TestNewService_ConfiguredMinimumDrivesUnwrap(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, WithConfigProvider(NewCfgxConfigProvider(StaticConfigLoader(map[string]any{
		"bridge": map[string]any{"min_unwrap_amount": "100"},
	}))))
	if _, err := svc.Mint(ctx, MintRequest{Caller: testOwner, Amount: NewAmount(500)}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err := svc.BridgeUnwrap(ctx, BridgeUnwrapRequest{Caller: testOwner, ExternalAddress: "dOwner", Amount: NewAmount(99)})
	if !errors.Is(err, ErrMinimumNotMet) {
		t.Fatalf("expected configured minimum to apply, got %v", err)
	}
}

func TestNewService_InvalidConfigFails(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "bad owner", cfg: Config{Owner: "not-an-address"}},
		{name: "zero owner", cfg: Config{Owner: ZeroAddress.Hex()}},
		{name: "bad minimum", cfg: Config{Bridge: BridgeConfig{MinUnwrapAmount: "ten"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewService(tc.cfg); err == nil {
				t.Fatalf("expected config validation error")
			}
		})
	}
}

func TestNewService_RepositoryFactoryBuildsStores(t *testing.T) {
	client := &struct{ Name string }{Name: "persistence"}
	factory := &recordingStoreFactory{store: NewMemoryLedgerStore()}
	svc, err := NewService(Config{LedgerID: "factory-ledger"},
		WithPersistenceClient(client),
		WithRepositoryFactory(factory),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if factory.client != client || factory.ledgerID != "factory-ledger" {
		t.Fatalf("expected factory to receive client and ledger id, got %#v %q", factory.client, factory.ledgerID)
	}
	deps := svc.Dependencies()
	if deps.LedgerStore != factory.store || deps.LedgerReader != factory.store {
		t.Fatalf("expected factory stores to be wired")
	}

	if _, err := NewService(Config{}, WithRepositoryFactory("bogus")); err == nil {
		t.Fatalf("expected unsupported factory error")
	}
}

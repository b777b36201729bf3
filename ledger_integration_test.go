package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	ledger "github.com/goliatone/go-bridge-ledger"
	"github.com/goliatone/go-bridge-ledger/adapters/gojob"
	"github.com/goliatone/go-bridge-ledger/core"
	ledgermigrations "github.com/goliatone/go-bridge-ledger/migrations"
	ledgerquery "github.com/goliatone/go-bridge-ledger/query"
	sqlstore "github.com/goliatone/go-bridge-ledger/store/sql"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

var (
	owner = core.MustParseAddress("0x00000000000000000000000000000000000000a1")
	alice = core.MustParseAddress("0x00000000000000000000000000000000000000b2")
)

func TestSQLBackedBridgeRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newMigratedSQLite(t)

	jobs := &memoryQueue{}
	cfg := ledger.DefaultConfig()
	cfg.Owner = owner.Hex()
	svc, err := ledger.SetupSQL(cfg, client, ledger.WithJobEnqueuer(gojob.NewQueue(jobs, nil, gojob.DefaultRetryPolicy())))
	if err != nil {
		t.Fatalf("setup sql service: %v", err)
	}

	if _, err := svc.BridgeWrap(ctx, ledger.BridgeWrapRequest{
		Caller:          owner,
		ExternalAddress: "LdAlice",
		Recipient:       alice,
		Amount:          ledger.NewAmount(100),
		ExternalTxID:    "ldg-tx-1",
	}); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if _, err := svc.BridgeUnwrap(ctx, ledger.BridgeUnwrapRequest{
		Caller:          alice,
		ExternalAddress: "LdAlice",
		Amount:          ledger.NewAmount(9),
	}); core.ErrorTextCode(err) != core.LedgerErrorMinimumNotMet {
		t.Fatalf("expected minimum not met, got %v", err)
	}
	if _, err := svc.BridgeUnwrap(ctx, ledger.BridgeUnwrapRequest{
		Caller:          alice,
		ExternalAddress: "LdAlice",
		Amount:          ledger.NewAmount(40),
	}); err != nil {
		t.Fatalf("unwrap: %v", err)
	}

	facade, err := ledger.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	supply, err := facade.Queries().TotalSupply.Query(ctx, ledgerquery.TotalSupplyMessage{})
	if err != nil {
		t.Fatalf("query supply: %v", err)
	}
	if !supply.Equal(ledger.NewAmount(60)) {
		t.Fatalf("expected supply 60, got %s", supply)
	}
	deposit, err := facade.Queries().GetDeposit.Query(ctx, ledgerquery.GetDepositMessage{ExternalTxID: "ldg-tx-1"})
	if err != nil {
		t.Fatalf("query deposit: %v", err)
	}
	if deposit.Recipient != alice {
		t.Fatalf("expected deposit recipient alice, got %s", deposit.Recipient.Hex())
	}

	deposits, err := sqlstore.NewDepositStore(client.DB(), cfg.LedgerID)
	if err != nil {
		t.Fatalf("new deposit store: %v", err)
	}
	cacheService, err := repositorycache.NewCacheService(repositorycache.DefaultConfig())
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	cached, err := sqlstore.NewCachedDepositReader(cfg.LedgerID, deposits, cacheService)
	if err != nil {
		t.Fatalf("new cached deposit reader: %v", err)
	}
	cachedFacade, err := ledger.NewFacade(svc, ledger.WithBridgeReader(cached))
	if err != nil {
		t.Fatalf("new cached facade: %v", err)
	}
	for txID, want := range map[string]bool{"ldg-tx-1": true, "ldg-tx-unknown": false} {
		processed, err := cachedFacade.Queries().IsProcessed.Query(ctx, ledgerquery.IsProcessedMessage{ExternalTxID: txID})
		if err != nil {
			t.Fatalf("cached is processed %s: %v", txID, err)
		}
		if processed != want {
			t.Fatalf("expected processed(%s)=%v, got %v", txID, want, processed)
		}
	}

	router := ledger.NewReleaseRouter()
	var released []core.WithdrawalRequest
	if err := router.Register(cfg.Bridge.ExternalChain, core.ReleaseHandlerFunc(func(_ context.Context, req core.WithdrawalRequest) error {
		released = append(released, req)
		return nil
	})); err != nil {
		t.Fatalf("register release handler: %v", err)
	}
	worker, err := gojob.NewReleaseWorker(jobs, gojob.RetryPolicy{MaxAttempts: 3}, router)
	if err != nil {
		t.Fatalf("new release worker: %v", err)
	}
	if err := worker.ProcessNext(ctx); err != nil {
		t.Fatalf("process release: %v", err)
	}
	if len(released) != 1 || released[0].ExternalAddress != "LdAlice" || !released[0].Amount.Equal(ledger.NewAmount(40)) {
		t.Fatalf("unexpected releases: %+v", released)
	}

	if err := svc.VerifyInvariants(ctx); err != nil {
		t.Fatalf("verify invariants: %v", err)
	}
}

func TestSetupSQLRequiresClient(t *testing.T) {
	if _, err := ledger.SetupSQL(ledger.DefaultConfig(), nil); err == nil {
		t.Fatalf("expected missing client error")
	}
}

func newMigratedSQLite(t *testing.T) *persistence.Client {
	t.Helper()
	client, err := sqlstore.Connect(sqlstore.ConnectionConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:ledger-root-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano()),
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if _, err := ledgermigrations.Apply(context.Background(), client, ledgermigrations.DialectSQLite); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return client
}

type memoryQueue struct {
	pending []*job.ExecutionMessage
}

func (q *memoryQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	q.pending = append(q.pending, msg)
	return nil
}

func (q *memoryQueue) Dequeue(context.Context) (queue.Delivery, error) {
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return &memoryDelivery{queue: q, msg: msg}, nil
}

type memoryDelivery struct {
	queue *memoryQueue
	msg   *job.ExecutionMessage
}

func (d *memoryDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *memoryDelivery) Ack(context.Context) error { return nil }

func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	if opts.Requeue {
		d.queue.pending = append(d.queue.pending, d.msg)
	}
	return nil
}

package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-bridge-ledger/core"
)

var (
	ownerAddr = core.MustParseAddress("0x00000000000000000000000000000000000000a1")
	aliceAddr = core.MustParseAddress("0x00000000000000000000000000000000000000b2")
	bobAddr   = core.MustParseAddress("0x00000000000000000000000000000000000000c3")
)

func TestBalanceOfQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubLedgerReader{
		balanceFn: func(_ context.Context, addr core.Address) (core.Amount, error) {
			called = true
			if addr != aliceAddr {
				t.Fatalf("unexpected address %s", addr.Hex())
			}
			return core.NewAmount(30), nil
		},
	}
	balance, err := NewBalanceOfQuery(reader).Query(context.Background(), BalanceOfMessage{Address: aliceAddr})
	if err != nil {
		t.Fatalf("query balance: %v", err)
	}
	if !called {
		t.Fatalf("expected reader invocation")
	}
	if !balance.Equal(core.NewAmount(30)) {
		t.Fatalf("unexpected balance %s", balance)
	}
}

func TestListJournalQuery_QueryDelegates(t *testing.T) {
	expected := core.JournalPage{
		Items:   []core.JournalEntry{{ID: "j-1", Sequence: 1, Operation: core.OperationMint}},
		Page:    1,
		PerPage: 25,
		Total:   1,
	}
	reader := stubJournalReader{
		listFn: func(_ context.Context, filter core.JournalFilter) (core.JournalPage, error) {
			if filter.Operation != core.OperationMint {
				t.Fatalf("unexpected filter operation %q", filter.Operation)
			}
			return expected, nil
		},
	}
	page, err := NewListJournalQuery(reader).Query(context.Background(), ListJournalMessage{
		Filter: core.JournalFilter{Operation: core.OperationMint},
	})
	if err != nil {
		t.Fatalf("list journal: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != "j-1" {
		t.Fatalf("unexpected journal page %#v", page)
	}
}

func TestQueries_PropagateReaderErrors(t *testing.T) {
	boom := fmt.Errorf("reader offline")
	reader := stubBridgeReader{
		getFn: func(context.Context, string) (core.BridgeDeposit, error) {
			return core.BridgeDeposit{}, boom
		},
	}
	if _, err := NewGetDepositQuery(reader).Query(context.Background(), GetDepositMessage{ExternalTxID: "ltx-1"}); !errors.Is(err, boom) {
		t.Fatalf("expected reader error, got %v", err)
	}
}

func TestMessages_Validate(t *testing.T) {
	cases := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{"balance zero address", BalanceOfMessage{}, false},
		{"is processed blank", IsProcessedMessage{ExternalTxID: " "}, true},
		{"deposits negative page", ListDepositsMessage{Filter: core.DepositFilter{Page: -1}}, true},
		{"journal unknown op", ListJournalMessage{Filter: core.JournalFilter{Operation: "airdrop"}}, true},
		{"journal ok", ListJournalMessage{Filter: core.JournalFilter{Operation: core.OperationBurn, PerPage: 5}}, false},
		{"preview bootstrap", PreviewMessage{Operation: core.Operation{Kind: core.OperationBootstrap}}, true},
		{"preview transfer", PreviewMessage{Operation: core.Operation{Kind: core.OperationTransfer}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestQueries_AgainstLedgerService(t *testing.T) {
	svc, err := core.Setup(core.Config{Owner: ownerAddr.Hex()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	ctx := context.Background()
	if _, err := svc.BridgeWrap(ctx, core.BridgeWrapRequest{
		Caller:          ownerAddr,
		ExternalAddress: "LdogeAddr",
		Recipient:       aliceAddr,
		Amount:          core.NewAmount(50),
		ExternalTxID:    "ltx-1",
	}); err != nil {
		t.Fatalf("wrap: %v", err)
	}

	supply, err := NewTotalSupplyQuery(svc).Query(ctx, TotalSupplyMessage{})
	if err != nil || !supply.Equal(core.NewAmount(50)) {
		t.Fatalf("expected supply 50, got %s (%v)", supply, err)
	}
	owner, err := NewOwnerQuery(svc).Query(ctx, OwnerMessage{})
	if err != nil || owner != ownerAddr {
		t.Fatalf("expected owner %s, got %s (%v)", ownerAddr.Hex(), owner.Hex(), err)
	}
	info, err := NewTokenInfoQuery(svc).Query(ctx, TokenInfoMessage{})
	if err != nil {
		t.Fatalf("token info: %v", err)
	}
	if info.Symbol != "WLDOGE" || !info.TotalSupply.Equal(core.NewAmount(50)) {
		t.Fatalf("unexpected token info %#v", info)
	}
	processed, err := NewIsProcessedQuery(svc).Query(ctx, IsProcessedMessage{ExternalTxID: "ltx-1"})
	if err != nil || !processed {
		t.Fatalf("expected ltx-1 processed, got %v (%v)", processed, err)
	}
	deposits, err := NewListDepositsQuery(svc).Query(ctx, ListDepositsMessage{Filter: core.DepositFilter{Recipient: &aliceAddr}})
	if err != nil || deposits.Total != 1 {
		t.Fatalf("expected one deposit, got %#v (%v)", deposits, err)
	}

	preview := NewPreviewQuery(svc)
	accepted, err := preview.Query(ctx, PreviewMessage{Operation: core.TransferRequest{
		From:   aliceAddr,
		To:     bobAddr,
		Amount: core.NewAmount(20),
	}.Operation()})
	if err != nil || !accepted.OK {
		t.Fatalf("expected transfer preview to pass, got %#v (%v)", accepted, err)
	}
	rejected, err := preview.Query(ctx, PreviewMessage{Operation: core.BridgeUnwrapRequest{
		Caller:          aliceAddr,
		ExternalAddress: "LdogeDest",
		Amount:          core.NewAmount(9),
	}.Operation()})
	if err != nil {
		t.Fatalf("preview rejection should not be a query failure: %v", err)
	}
	if rejected.OK || rejected.TextCode != core.LedgerErrorMinimumNotMet {
		t.Fatalf("expected minimum-not-met preview, got %#v", rejected)
	}

	balance, err := NewBalanceOfQuery(svc).Query(ctx, BalanceOfMessage{Address: aliceAddr})
	if err != nil || !balance.Equal(core.NewAmount(50)) {
		t.Fatalf("preview must not mutate balances, got %s (%v)", balance, err)
	}
}

type stubLedgerReader struct {
	balanceFn func(context.Context, core.Address) (core.Amount, error)
}

func (s stubLedgerReader) BalanceOf(ctx context.Context, addr core.Address) (core.Amount, error) {
	if s.balanceFn == nil {
		return core.Amount{}, nil
	}
	return s.balanceFn(ctx, addr)
}

func (stubLedgerReader) TotalSupply(context.Context) (core.Amount, error) {
	return core.Amount{}, nil
}

func (stubLedgerReader) Owner(context.Context) (core.Address, error) {
	return core.ZeroAddress, nil
}

func (stubLedgerReader) TokenInfo(context.Context) (core.TokenInfo, error) {
	return core.TokenInfo{}, nil
}

type stubBridgeReader struct {
	getFn func(context.Context, string) (core.BridgeDeposit, error)
}

func (stubBridgeReader) IsProcessed(context.Context, string) (bool, error) {
	return false, nil
}

func (s stubBridgeReader) GetDeposit(ctx context.Context, externalTxID string) (core.BridgeDeposit, error) {
	if s.getFn == nil {
		return core.BridgeDeposit{}, nil
	}
	return s.getFn(ctx, externalTxID)
}

func (stubBridgeReader) ListDeposits(context.Context, core.DepositFilter) (core.DepositPage, error) {
	return core.DepositPage{}, nil
}

type stubJournalReader struct {
	listFn func(context.Context, core.JournalFilter) (core.JournalPage, error)
}

func (s stubJournalReader) ListJournal(ctx context.Context, filter core.JournalFilter) (core.JournalPage, error) {
	if s.listFn == nil {
		return core.JournalPage{}, nil
	}
	return s.listFn(ctx, filter)
}

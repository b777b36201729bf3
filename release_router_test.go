package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-bridge-ledger/core"
)

func TestReleaseRouter_RoutesByChain(t *testing.T) {
	router := NewReleaseRouter()
	var litedoge, other []string
	if err := router.Register("LiteDoge", core.ReleaseHandlerFunc(func(_ context.Context, req core.WithdrawalRequest) error {
		litedoge = append(litedoge, req.ID)
		return nil
	})); err != nil {
		t.Fatalf("register litedoge: %v", err)
	}
	if err := router.Register("dogecoin", core.ReleaseHandlerFunc(func(_ context.Context, req core.WithdrawalRequest) error {
		other = append(other, req.ID)
		return nil
	})); err != nil {
		t.Fatalf("register dogecoin: %v", err)
	}
	if err := router.Register(" litedoge ", core.ReleaseHandlerFunc(func(context.Context, core.WithdrawalRequest) error { return nil })); err == nil {
		t.Fatalf("expected duplicate chain registration error")
	}

	ctx := context.Background()
	if err := router.Release(ctx, core.WithdrawalRequest{ID: "wd_1", ExternalChain: "litedoge"}); err != nil {
		t.Fatalf("release litedoge: %v", err)
	}
	if err := router.Release(ctx, core.WithdrawalRequest{ID: "wd_2", ExternalChain: "DOGECOIN"}); err != nil {
		t.Fatalf("release dogecoin: %v", err)
	}
	if len(litedoge) != 1 || litedoge[0] != "wd_1" || len(other) != 1 || other[0] != "wd_2" {
		t.Fatalf("unexpected routing: litedoge=%v dogecoin=%v", litedoge, other)
	}

	chains := router.Chains()
	if len(chains) != 2 || chains[0] != "dogecoin" || chains[1] != "litedoge" {
		t.Fatalf("expected sorted chains, got %v", chains)
	}
}

func TestReleaseRouter_FallbackAndMissingHandler(t *testing.T) {
	router := NewReleaseRouter()
	err := router.Release(context.Background(), core.WithdrawalRequest{ID: "wd_1", ExternalChain: "unknown"})
	if err == nil {
		t.Fatalf("expected missing handler error")
	}

	sentinel := errors.New("relayer offline")
	router.SetFallback(core.ReleaseHandlerFunc(func(context.Context, core.WithdrawalRequest) error {
		return sentinel
	}))
	err = router.Release(context.Background(), core.WithdrawalRequest{ID: "wd_1", ExternalChain: "unknown"})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected fallback error, got %v", err)
	}
}

func TestReleaseRouter_RegisterValidation(t *testing.T) {
	router := NewReleaseRouter()
	if err := router.Register("", core.ReleaseHandlerFunc(func(context.Context, core.WithdrawalRequest) error { return nil })); err == nil {
		t.Fatalf("expected empty chain error")
	}
	if err := router.Register("litedoge", nil); err == nil {
		t.Fatalf("expected nil handler error")
	}
	var nilRouter *ReleaseRouter
	if err := nilRouter.Register("litedoge", nil); err == nil {
		t.Fatalf("expected nil router error")
	}
}

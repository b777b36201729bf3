package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-bridge-ledger/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const depositCacheKeyPrefix = "go-bridge-ledger::deposit::v1"

// DepositLookup is the read side cached by CachedDepositReader.
type DepositLookup interface {
	IsProcessed(ctx context.Context, externalTxID string) (bool, error)
	GetDeposit(ctx context.Context, externalTxID string) (core.BridgeDeposit, error)
	ListDeposits(ctx context.Context, filter core.DepositFilter) (core.DepositPage, error)
}

// CachedDepositReader caches single deposit lookups. Processed deposits are
// never rewritten, so entries need no invalidation; misses are not cached.
type CachedDepositReader struct {
	ledgerID string
	base     DepositLookup
	cache    repositorycache.CacheService
}

func NewCachedDepositReader(
	ledgerID string,
	base DepositLookup,
	cacheService repositorycache.CacheService,
) (*CachedDepositReader, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base deposit reader is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: deposit cache service is required")
	}
	return &CachedDepositReader{ledgerID: strings.TrimSpace(ledgerID), base: base, cache: cacheService}, nil
}

// DepositCacheKey returns go-bridge-ledger::deposit::v1::<ledger_id>::<external_tx_id>
// with each segment URL-path escaped.
func DepositCacheKey(ledgerID string, externalTxID string) (string, error) {
	ledgerID = strings.TrimSpace(ledgerID)
	externalTxID = strings.TrimSpace(externalTxID)
	if ledgerID == "" || externalTxID == "" {
		return "", fmt.Errorf("%w: ledger id and external tx id are required", core.ErrInvalidInput)
	}
	return strings.Join([]string{
		depositCacheKeyPrefix,
		url.PathEscape(ledgerID),
		url.PathEscape(externalTxID),
	}, "::"), nil
}

func (r *CachedDepositReader) GetDeposit(ctx context.Context, externalTxID string) (core.BridgeDeposit, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.BridgeDeposit{}, fmt.Errorf("sqlstore: cached deposit reader is not configured")
	}
	externalTxID = strings.TrimSpace(externalTxID)
	cacheKey, err := DepositCacheKey(r.ledgerID, externalTxID)
	if err != nil {
		return core.BridgeDeposit{}, err
	}
	return repositorycache.GetOrFetch(ctx, r.cache, cacheKey, func(ctx context.Context) (core.BridgeDeposit, error) {
		return r.base.GetDeposit(ctx, externalTxID)
	})
}

// IsProcessed answers from the cached deposit when there is one. A miss
// falls through to the base store and is not cached.
func (r *CachedDepositReader) IsProcessed(ctx context.Context, externalTxID string) (bool, error) {
	_, err := r.GetDeposit(ctx, externalTxID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrDepositNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *CachedDepositReader) ListDeposits(ctx context.Context, filter core.DepositFilter) (core.DepositPage, error) {
	if r == nil || r.base == nil {
		return core.DepositPage{}, fmt.Errorf("sqlstore: cached deposit reader is not configured")
	}
	return r.base.ListDeposits(ctx, filter)
}

package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-bridge-ledger/core"
)

// ReleaseRouter dispatches withdrawal releases to the handler registered for
// the request's external chain. Chain names are case-insensitive.
type ReleaseRouter struct {
	mu sync.RWMutex

	handlers map[string]core.ReleaseHandler
	fallback core.ReleaseHandler
}

func NewReleaseRouter() *ReleaseRouter {
	return &ReleaseRouter{handlers: map[string]core.ReleaseHandler{}}
}

func (r *ReleaseRouter) Register(chain string, handler core.ReleaseHandler) error {
	if r == nil {
		return fmt.Errorf("ledger: release router is nil")
	}
	chain = normalizeChain(chain)
	if chain == "" {
		return fmt.Errorf("ledger: release chain is required")
	}
	if handler == nil {
		return fmt.Errorf("ledger: release handler for %q is required", chain)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[chain]; exists {
		return fmt.Errorf("ledger: release handler for %q already registered", chain)
	}
	r.handlers[chain] = handler
	return nil
}

// SetFallback handles requests for chains with no registered handler.
func (r *ReleaseRouter) SetFallback(handler core.ReleaseHandler) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = handler
}

func (r *ReleaseRouter) Release(ctx context.Context, req core.WithdrawalRequest) error {
	if r == nil {
		return fmt.Errorf("ledger: release router is nil")
	}
	chain := normalizeChain(req.ExternalChain)

	r.mu.RLock()
	handler, ok := r.handlers[chain]
	if !ok {
		handler = r.fallback
	}
	r.mu.RUnlock()

	if handler == nil {
		return fmt.Errorf("ledger: no release handler for chain %q", chain)
	}
	return handler.Release(ctx, req)
}

func (r *ReleaseRouter) Chains() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	chains := make([]string, 0, len(r.handlers))
	for chain := range r.handlers {
		chains = append(chains, chain)
	}
	sort.Strings(chains)
	return chains
}

func normalizeChain(chain string) string {
	return strings.ToLower(strings.TrimSpace(chain))
}

var _ core.ReleaseHandler = (*ReleaseRouter)(nil)

package core

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryState struct {
	initialized  bool
	owner        Address
	supply       Amount
	balances     map[Address]Amount
	deposits     map[string]BridgeDeposit
	depositOrder []string
	journal      []JournalEntry
	releases     map[string]PendingRelease
	releaseOrder []string
}

// MemoryLedgerStore keeps one ledger in process memory. Update stages every
// write in an overlay and merges it only when the unit of work succeeds.
type MemoryLedgerStore struct {
	mu    sync.RWMutex
	state memoryState
	Now   func() time.Time
	NewID func() string
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		state: memoryState{
			balances: map[Address]Amount{},
			deposits: map[string]BridgeDeposit{},
			releases: map[string]PendingRelease{},
		},
		Now:   utcNow,
		NewID: uuid.NewString,
	}
}

func (s *MemoryLedgerStore) View(ctx context.Context, fn func(state LedgerState) error) error {
	if s == nil {
		return fmt.Errorf("core: memory ledger store is nil")
	}
	if fn == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryTx{base: &s.state, readOnly: true})
}

func (s *MemoryLedgerStore) Update(ctx context.Context, fn func(tx LedgerTx) error) error {
	if s == nil {
		return fmt.Errorf("core: memory ledger store is nil")
	}
	if fn == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		base:     &s.state,
		balances: map[Address]Amount{},
		deposits: map[string]BridgeDeposit{},
		now:      s.now,
		newID:    s.newID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryLedgerStore) GetDeposit(_ context.Context, externalTxID string) (BridgeDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deposit, ok := s.state.deposits[strings.TrimSpace(externalTxID)]
	if !ok {
		return BridgeDeposit{}, ledgerError(ErrDepositNotFound, externalTxID, nil)
	}
	return deposit, nil
}

func (s *MemoryLedgerStore) ListDeposits(_ context.Context, filter DepositFilter) (DepositPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]BridgeDeposit, 0, len(s.state.depositOrder))
	for _, txID := range s.state.depositOrder {
		deposit := s.state.deposits[txID]
		if filter.Recipient != nil && deposit.Recipient != *filter.Recipient {
			continue
		}
		matched = append(matched, deposit)
	}
	page, perPage, offset := NormalizePage(filter.Page, filter.PerPage)
	items := paginate(matched, offset, perPage)
	return DepositPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   len(matched),
		HasNext: offset+len(items) < len(matched),
	}, nil
}

func (s *MemoryLedgerStore) ListJournal(_ context.Context, filter JournalFilter) (JournalPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]JournalEntry, 0, len(s.state.journal))
	for _, entry := range s.state.journal {
		if filter.Operation != "" && entry.Operation != filter.Operation {
			continue
		}
		if filter.Address != nil && !entryTouches(entry, *filter.Address) {
			continue
		}
		matched = append(matched, entry)
	}
	page, perPage, offset := NormalizePage(filter.Page, filter.PerPage)
	items := paginate(matched, offset, perPage)
	return JournalPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   len(matched),
		HasNext: offset+len(items) < len(matched),
	}, nil
}

// ListAccounts returns every touched account ordered by address.
func (s *MemoryLedgerStore) ListAccounts(context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedAccounts(s.state.balances, nil), nil
}

func (s *MemoryLedgerStore) ClaimBatch(_ context.Context, limit int, now time.Time, staleBefore time.Time) ([]PendingRelease, error) {
	if limit <= 0 {
		limit = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	claimed := []PendingRelease{}
	for _, id := range s.state.releaseOrder {
		if len(claimed) >= limit {
			break
		}
		release := s.state.releases[id]
		if !release.claimable(now, staleBefore) {
			continue
		}
		release.Status = ReleaseStatusProcessing
		release.ClaimedAt = now
		s.state.releases[id] = release
		claimed = append(claimed, release)
	}
	return claimed, nil
}

func (s *MemoryLedgerStore) Ack(_ context.Context, withdrawalID string) error {
	return s.updateRelease(withdrawalID, func(release *PendingRelease) {
		release.Status = ReleaseStatusDelivered
		release.NextAttemptAt = time.Time{}
		release.LastError = ""
	})
}

func (s *MemoryLedgerStore) Retry(_ context.Context, withdrawalID string, cause error, nextAttemptAt time.Time) error {
	return s.updateRelease(withdrawalID, func(release *PendingRelease) {
		release.Attempts++
		release.NextAttemptAt = nextAttemptAt.UTC()
		release.Status = ReleaseStatusPending
		if nextAttemptAt.IsZero() {
			release.Status = ReleaseStatusFailed
			release.NextAttemptAt = time.Time{}
		}
		release.LastError = ""
		if cause != nil {
			release.LastError = strings.TrimSpace(cause.Error())
		}
	})
}

func (s *MemoryLedgerStore) GetRelease(_ context.Context, withdrawalID string) (PendingRelease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	release, ok := s.state.releases[strings.TrimSpace(withdrawalID)]
	if !ok {
		return PendingRelease{}, ledgerError(ErrReleaseNotFound, withdrawalID, nil)
	}
	return release, nil
}

func (s *MemoryLedgerStore) updateRelease(withdrawalID string, fn func(*PendingRelease)) error {
	withdrawalID = strings.TrimSpace(withdrawalID)
	s.mu.Lock()
	defer s.mu.Unlock()
	release, ok := s.state.releases[withdrawalID]
	if !ok {
		return ledgerError(ErrReleaseNotFound, withdrawalID, nil)
	}
	fn(&release)
	s.state.releases[withdrawalID] = release
	return nil
}

func (s *MemoryLedgerStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return utcNow()
}

func (s *MemoryLedgerStore) newID() string {
	if s != nil && s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// memoryTx reads through its overlay to the committed state. A readOnly tx
// rejects every write.
type memoryTx struct {
	base     *memoryState
	readOnly bool

	balances     map[Address]Amount
	deposits     map[string]BridgeDeposit
	depositOrder []string
	journal      []JournalEntry
	staged       []PendingRelease
	supply       *Amount
	owner        *Address
	initialized  *bool

	now   func() time.Time
	newID func() string
}

func (t *memoryTx) Accounts() AccountStore   { return t }
func (t *memoryTx) Supply() SupplyLedger     { return t }
func (t *memoryTx) OwnerSlot() OwnerSlot     { return t }
func (t *memoryTx) Registry() BridgeRegistry { return t }
func (t *memoryTx) Journal() JournalWriter   { return t }
func (t *memoryTx) Releases() ReleaseOutbox  { return t }

func (t *memoryTx) Balance(_ context.Context, addr Address) (Amount, error) {
	if staged, ok := t.balances[addr]; ok {
		return staged, nil
	}
	return t.base.balances[addr], nil
}

func (t *memoryTx) ListAccounts(context.Context) ([]Account, error) {
	return sortedAccounts(t.base.balances, t.balances), nil
}

func (t *memoryTx) Credit(ctx context.Context, addr Address, amount Amount) error {
	if t.readOnly {
		return ErrReadOnly
	}
	current, _ := t.Balance(ctx, addr)
	next, err := current.Add(amount)
	if err != nil {
		return err
	}
	t.balances[addr] = next
	return nil
}

func (t *memoryTx) Debit(ctx context.Context, addr Address, amount Amount) error {
	if t.readOnly {
		return ErrReadOnly
	}
	current, _ := t.Balance(ctx, addr)
	if current.LessThan(amount) {
		return ErrInsufficientBalance
	}
	next, err := current.Sub(amount)
	if err != nil {
		return err
	}
	t.balances[addr] = next
	return nil
}

func (t *memoryTx) TotalSupply(context.Context) (Amount, error) {
	if t.supply != nil {
		return *t.supply, nil
	}
	return t.base.supply, nil
}

func (t *memoryTx) Increase(ctx context.Context, amount Amount) error {
	if t.readOnly {
		return ErrReadOnly
	}
	current, _ := t.TotalSupply(ctx)
	next, err := current.Add(amount)
	if err != nil {
		return err
	}
	t.supply = &next
	return nil
}

func (t *memoryTx) Decrease(ctx context.Context, amount Amount) error {
	if t.readOnly {
		return ErrReadOnly
	}
	current, _ := t.TotalSupply(ctx)
	next, err := current.Sub(amount)
	if err != nil {
		return err
	}
	t.supply = &next
	return nil
}

func (t *memoryTx) Owner(context.Context) (Address, error) {
	if t.owner != nil {
		return *t.owner, nil
	}
	return t.base.owner, nil
}

func (t *memoryTx) SetOwner(_ context.Context, owner Address) error {
	if t.readOnly {
		return ErrReadOnly
	}
	initialized := true
	t.owner = &owner
	t.initialized = &initialized
	return nil
}

func (t *memoryTx) Initialized(context.Context) (bool, error) {
	if t.initialized != nil {
		return *t.initialized, nil
	}
	return t.base.initialized, nil
}

func (t *memoryTx) IsProcessed(_ context.Context, externalTxID string) (bool, error) {
	externalTxID = strings.TrimSpace(externalTxID)
	if _, ok := t.deposits[externalTxID]; ok {
		return true, nil
	}
	_, ok := t.base.deposits[externalTxID]
	return ok, nil
}

func (t *memoryTx) Record(ctx context.Context, deposit BridgeDeposit) error {
	if t.readOnly {
		return ErrReadOnly
	}
	deposit.ExternalTxID = strings.TrimSpace(deposit.ExternalTxID)
	if deposit.ExternalTxID == "" {
		return fmt.Errorf("%w: external tx id is required", ErrInvalidInput)
	}
	processed, _ := t.IsProcessed(ctx, deposit.ExternalTxID)
	if processed {
		return ErrDuplicateDeposit
	}
	if deposit.Status == "" {
		deposit.Status = DepositStatusProcessed
	}
	t.deposits[deposit.ExternalTxID] = deposit
	t.depositOrder = append(t.depositOrder, deposit.ExternalTxID)
	return nil
}

func (t *memoryTx) AppendJournal(_ context.Context, entry JournalEntry) (JournalEntry, error) {
	if t.readOnly {
		return JournalEntry{}, ErrReadOnly
	}
	if entry.ID == "" {
		entry.ID = t.newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now()
	}
	entry.Sequence = int64(len(t.base.journal) + len(t.journal) + 1)
	t.journal = append(t.journal, entry)
	return entry, nil
}

func (t *memoryTx) Stage(_ context.Context, req WithdrawalRequest, claimedAt time.Time) error {
	if t.readOnly {
		return ErrReadOnly
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return fmt.Errorf("%w: withdrawal id is required", ErrInvalidInput)
	}
	if _, ok := t.base.releases[req.ID]; ok {
		return fmt.Errorf("%w: withdrawal %s is already staged", ErrInvalidInput, req.ID)
	}
	t.staged = append(t.staged, PendingRelease{
		Request:   req,
		Status:    ReleaseStatusProcessing,
		ClaimedAt: claimedAt.UTC(),
	})
	return nil
}

func (t *memoryTx) commit() {
	for addr, balance := range t.balances {
		t.base.balances[addr] = balance
	}
	for _, txID := range t.depositOrder {
		t.base.deposits[txID] = t.deposits[txID]
	}
	t.base.depositOrder = append(t.base.depositOrder, t.depositOrder...)
	t.base.journal = append(t.base.journal, t.journal...)
	for _, release := range t.staged {
		t.base.releases[release.Request.ID] = release
		t.base.releaseOrder = append(t.base.releaseOrder, release.Request.ID)
	}
	if t.supply != nil {
		t.base.supply = *t.supply
	}
	if t.owner != nil {
		t.base.owner = *t.owner
	}
	if t.initialized != nil {
		t.base.initialized = *t.initialized
	}
}

// sortedAccounts merges staged balances over committed ones.
func sortedAccounts(committed map[Address]Amount, staged map[Address]Amount) []Account {
	merged := make(map[Address]Amount, len(committed)+len(staged))
	for addr, balance := range committed {
		merged[addr] = balance
	}
	for addr, balance := range staged {
		merged[addr] = balance
	}
	accounts := make([]Account, 0, len(merged))
	for addr, balance := range merged {
		accounts = append(accounts, Account{Address: addr, Balance: balance})
	}
	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i].Address.Bytes(), accounts[j].Address.Bytes()) < 0
	})
	return accounts
}

func entryTouches(entry JournalEntry, addr Address) bool {
	return entry.Caller == addr || entry.From == addr || entry.To == addr
}

func paginate[T any](items []T, offset int, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

var (
	_ LedgerStore        = (*MemoryLedgerStore)(nil)
	_ LedgerReader       = (*MemoryLedgerStore)(nil)
	_ ReleaseOutboxStore = (*MemoryLedgerStore)(nil)
	_ LedgerTx           = (*memoryTx)(nil)
)

package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-bridge-ledger/core"
	"github.com/uptrace/bun"
)

// Amounts are stored as base-10 strings: 256-bit values do not fit any
// native integer column.

type ledgerStateRecord struct {
	bun.BaseModel `bun:"table:ledger_states,alias:ls"`

	LedgerID    string    `bun:"ledger_id,pk"`
	Owner       string    `bun:"owner,notnull"`
	TotalSupply string    `bun:"total_supply,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type accountRecord struct {
	bun.BaseModel `bun:"table:ledger_accounts,alias:la"`

	ID        string    `bun:"id,pk"`
	LedgerID  string    `bun:"ledger_id,notnull"`
	Address   string    `bun:"address,notnull"`
	Balance   string    `bun:"balance,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type depositRecord struct {
	bun.BaseModel `bun:"table:bridge_deposits,alias:bd"`

	ID              string    `bun:"id,pk"`
	LedgerID        string    `bun:"ledger_id,notnull"`
	ExternalTxID    string    `bun:"external_tx_id,notnull"`
	ExternalAddress string    `bun:"external_address,notnull"`
	Recipient       string    `bun:"recipient,notnull"`
	Amount          string    `bun:"amount,notnull"`
	Status          string    `bun:"status,notnull"`
	ProcessedAt     time.Time `bun:"processed_at,notnull"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type journalRecord struct {
	bun.BaseModel `bun:"table:ledger_journal,alias:lj"`

	ID              string    `bun:"id,pk"`
	LedgerID        string    `bun:"ledger_id,notnull"`
	Sequence        int64     `bun:"sequence,notnull"`
	Operation       string    `bun:"operation,notnull"`
	Caller          string    `bun:"caller,notnull"`
	FromAddress     string    `bun:"from_address,notnull"`
	ToAddress       string    `bun:"to_address,notnull"`
	Amount          string    `bun:"amount,notnull"`
	ExternalTxID    string    `bun:"external_tx_id,notnull"`
	ExternalAddress string    `bun:"external_address,notnull"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type releaseOutboxRecord struct {
	bun.BaseModel `bun:"table:ledger_release_outbox,alias:lro"`

	ID              string     `bun:"id,pk"`
	LedgerID        string     `bun:"ledger_id,notnull"`
	WithdrawalID    string     `bun:"withdrawal_id,notnull"`
	ExternalChain   string     `bun:"external_chain,notnull"`
	ExternalAddress string     `bun:"external_address,notnull"`
	Amount          string     `bun:"amount,notnull"`
	Requester       string     `bun:"requester,notnull"`
	RequestedAt     time.Time  `bun:"requested_at,notnull"`
	Status          string     `bun:"status,notnull"`
	Attempts        int        `bun:"attempts,notnull"`
	NextAttemptAt   *time.Time `bun:"next_attempt_at,nullzero"`
	ClaimedAt       *time.Time `bun:"claimed_at,nullzero"`
	LastError       string     `bun:"last_error,notnull"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func addressKey(addr core.Address) string {
	return strings.ToLower(addr.Hex())
}

// parseStoredAddress reads an empty column as the zero address. Anything
// else must parse, so a damaged row surfaces instead of reading as unset.
func parseStoredAddress(value string) (core.Address, error) {
	if strings.TrimSpace(value) == "" {
		return core.ZeroAddress, nil
	}
	addr, err := core.ParseAddress(value)
	if err != nil {
		return core.ZeroAddress, fmt.Errorf("sqlstore: stored address %q: %w", value, err)
	}
	return addr, nil
}

func parseStoredAmount(value string) (core.Amount, error) {
	if strings.TrimSpace(value) == "" {
		return core.Amount{}, nil
	}
	return core.ParseAmount(value)
}

func (r *accountRecord) toDomain() (core.Account, error) {
	balance, err := parseStoredAmount(r.Balance)
	if err != nil {
		return core.Account{}, err
	}
	addr, err := parseStoredAddress(r.Address)
	if err != nil {
		return core.Account{}, err
	}
	return core.Account{Address: addr, Balance: balance}, nil
}

func newDepositRecord(ledgerID string, deposit core.BridgeDeposit) *depositRecord {
	status := deposit.Status
	if status == "" {
		status = core.DepositStatusProcessed
	}
	return &depositRecord{
		LedgerID:        ledgerID,
		ExternalTxID:    strings.TrimSpace(deposit.ExternalTxID),
		ExternalAddress: deposit.ExternalAddress,
		Recipient:       addressKey(deposit.Recipient),
		Amount:          deposit.Amount.String(),
		Status:          string(status),
		ProcessedAt:     deposit.ProcessedAt.UTC(),
		CreatedAt:       time.Now().UTC(),
	}
}

func (r *depositRecord) toDomain() (core.BridgeDeposit, error) {
	amount, err := parseStoredAmount(r.Amount)
	if err != nil {
		return core.BridgeDeposit{}, err
	}
	recipient, err := parseStoredAddress(r.Recipient)
	if err != nil {
		return core.BridgeDeposit{}, err
	}
	return core.BridgeDeposit{
		ExternalTxID:    r.ExternalTxID,
		ExternalAddress: r.ExternalAddress,
		Recipient:       recipient,
		Amount:          amount,
		Status:          core.DepositStatus(r.Status),
		ProcessedAt:     r.ProcessedAt.UTC(),
	}, nil
}

func newJournalRecord(ledgerID string, entry core.JournalEntry) *journalRecord {
	return &journalRecord{
		ID:              strings.TrimSpace(entry.ID),
		LedgerID:        ledgerID,
		Sequence:        entry.Sequence,
		Operation:       string(entry.Operation),
		Caller:          optionalAddressKey(entry.Caller),
		FromAddress:     optionalAddressKey(entry.From),
		ToAddress:       optionalAddressKey(entry.To),
		Amount:          entry.Amount.String(),
		ExternalTxID:    entry.ExternalTxID,
		ExternalAddress: entry.ExternalAddress,
		CreatedAt:       entry.CreatedAt.UTC(),
	}
}

func (r *journalRecord) toDomain() (core.JournalEntry, error) {
	amount, err := parseStoredAmount(r.Amount)
	if err != nil {
		return core.JournalEntry{}, err
	}
	var parties [3]core.Address
	for i, raw := range []string{r.Caller, r.FromAddress, r.ToAddress} {
		if parties[i], err = parseStoredAddress(raw); err != nil {
			return core.JournalEntry{}, err
		}
	}
	return core.JournalEntry{
		ID:              r.ID,
		Sequence:        r.Sequence,
		Operation:       core.OperationKind(r.Operation),
		Caller:          parties[0],
		From:            parties[1],
		To:              parties[2],
		Amount:          amount,
		ExternalTxID:    r.ExternalTxID,
		ExternalAddress: r.ExternalAddress,
		CreatedAt:       r.CreatedAt.UTC(),
	}, nil
}

// optionalAddressKey stores the zero address as an empty column so address
// filters never match "unset".
func optionalAddressKey(addr core.Address) string {
	if addr == core.ZeroAddress {
		return ""
	}
	return addressKey(addr)
}

func newReleaseOutboxRecord(ledgerID string, req core.WithdrawalRequest, claimedAt time.Time) *releaseOutboxRecord {
	claimed := claimedAt.UTC()
	return &releaseOutboxRecord{
		LedgerID:        ledgerID,
		WithdrawalID:    strings.TrimSpace(req.ID),
		ExternalChain:   req.ExternalChain,
		ExternalAddress: req.ExternalAddress,
		Amount:          req.Amount.String(),
		Requester:       optionalAddressKey(req.Requester),
		RequestedAt:     req.RequestedAt.UTC(),
		Status:          string(core.ReleaseStatusProcessing),
		ClaimedAt:       &claimed,
		CreatedAt:       claimed,
		UpdatedAt:       claimed,
	}
}

func (r *releaseOutboxRecord) toDomain() (core.PendingRelease, error) {
	amount, err := parseStoredAmount(r.Amount)
	if err != nil {
		return core.PendingRelease{}, err
	}
	requester, err := parseStoredAddress(r.Requester)
	if err != nil {
		return core.PendingRelease{}, err
	}
	release := core.PendingRelease{
		Request: core.WithdrawalRequest{
			ID:              r.WithdrawalID,
			ExternalChain:   r.ExternalChain,
			ExternalAddress: r.ExternalAddress,
			Amount:          amount,
			Requester:       requester,
			RequestedAt:     r.RequestedAt.UTC(),
		},
		Status:    core.ReleaseStatus(r.Status),
		Attempts:  r.Attempts,
		LastError: r.LastError,
	}
	if r.NextAttemptAt != nil {
		release.NextAttemptAt = r.NextAttemptAt.UTC()
	}
	if r.ClaimedAt != nil {
		release.ClaimedAt = r.ClaimedAt.UTC()
	}
	return release, nil
}

package query

import (
	"strings"

	"github.com/goliatone/go-bridge-ledger/core"
)

const (
	TypeBalanceOf    = "ledger.query.balance_of"
	TypeTotalSupply  = "ledger.query.total_supply"
	TypeOwner        = "ledger.query.owner"
	TypeTokenInfo    = "ledger.query.token_info"
	TypeIsProcessed  = "ledger.query.bridge.is_processed"
	TypeGetDeposit   = "ledger.query.bridge.deposit"
	TypeListDeposits = "ledger.query.bridge.deposits"
	TypeListJournal  = "ledger.query.journal.list"
	TypePreview      = "ledger.query.preview"
)

type BalanceOfMessage struct {
	Address core.Address
}

func (BalanceOfMessage) Type() string { return TypeBalanceOf }

// Validate accepts the zero address: it simply reads as balance 0.
func (BalanceOfMessage) Validate() error { return nil }

type TotalSupplyMessage struct{}

func (TotalSupplyMessage) Type() string { return TypeTotalSupply }

func (TotalSupplyMessage) Validate() error { return nil }

type OwnerMessage struct{}

func (OwnerMessage) Type() string { return TypeOwner }

func (OwnerMessage) Validate() error { return nil }

type TokenInfoMessage struct{}

func (TokenInfoMessage) Type() string { return TypeTokenInfo }

func (TokenInfoMessage) Validate() error { return nil }

type IsProcessedMessage struct {
	ExternalTxID string
}

func (IsProcessedMessage) Type() string { return TypeIsProcessed }

func (m IsProcessedMessage) Validate() error {
	if strings.TrimSpace(m.ExternalTxID) == "" {
		return queryValidationError("external_tx_id", "external tx id is required")
	}
	return nil
}

type GetDepositMessage struct {
	ExternalTxID string
}

func (GetDepositMessage) Type() string { return TypeGetDeposit }

func (m GetDepositMessage) Validate() error {
	if strings.TrimSpace(m.ExternalTxID) == "" {
		return queryValidationError("external_tx_id", "external tx id is required")
	}
	return nil
}

type ListDepositsMessage struct {
	Filter core.DepositFilter
}

func (ListDepositsMessage) Type() string { return TypeListDeposits }

func (m ListDepositsMessage) Validate() error {
	return validatePaging(m.Filter.Page, m.Filter.PerPage)
}

type ListJournalMessage struct {
	Filter core.JournalFilter
}

func (ListJournalMessage) Type() string { return TypeListJournal }

func (m ListJournalMessage) Validate() error {
	if m.Filter.Operation != "" && !m.Filter.Operation.Valid() {
		return queryValidationError("operation", "unknown operation")
	}
	return validatePaging(m.Filter.Page, m.Filter.PerPage)
}

// PreviewMessage asks whether Operation would succeed right now without
// applying it.
type PreviewMessage struct {
	Operation core.Operation
}

func (PreviewMessage) Type() string { return TypePreview }

func (m PreviewMessage) Validate() error {
	if !m.Operation.Kind.Valid() || m.Operation.Kind == core.OperationBootstrap {
		return queryValidationError("operation", "unsupported operation")
	}
	return nil
}

func validatePaging(page int, perPage int) error {
	if page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if perPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	return nil
}

package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies a ledger account.
type Address = common.Address

var ZeroAddress Address

func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return Address{}, fmt.Errorf("%w: invalid address %q", ErrInvalidInput, raw)
	}
	return common.HexToAddress(raw), nil
}

func MustParseAddress(raw string) Address {
	addr, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

type Account struct {
	Address Address
	Balance Amount
}

type DepositStatus string

const (
	DepositStatusProcessed DepositStatus = "processed"
)

// BridgeDeposit records one settled external deposit. Records are keyed by
// ExternalTxID and never removed.
type BridgeDeposit struct {
	ExternalTxID    string
	ExternalAddress string
	Recipient       Address
	Amount          Amount
	Status          DepositStatus
	ProcessedAt     time.Time
}

// WithdrawalRequest is produced by a committed unwrap and handed to the
// release notifier. The ledger does not keep it.
type WithdrawalRequest struct {
	ID              string
	ExternalChain   string
	ExternalAddress string
	Amount          Amount
	Requester       Address
	RequestedAt     time.Time
}

type TokenInfo struct {
	Name        string
	Symbol      string
	Decimals    uint8
	Owner       Address
	TotalSupply Amount
}

type OperationKind string

const (
	OperationBootstrap         OperationKind = "bootstrap"
	OperationTransfer          OperationKind = "transfer"
	OperationMint              OperationKind = "mint"
	OperationMintTo            OperationKind = "mint_to"
	OperationBurn              OperationKind = "burn"
	OperationBridgeWrap        OperationKind = "bridge_wrap"
	OperationBridgeUnwrap      OperationKind = "bridge_unwrap"
	OperationTransferOwnership OperationKind = "transfer_ownership"
)

func (k OperationKind) Valid() bool {
	switch k {
	case OperationBootstrap,
		OperationTransfer,
		OperationMint,
		OperationMintTo,
		OperationBurn,
		OperationBridgeWrap,
		OperationBridgeUnwrap,
		OperationTransferOwnership:
		return true
	default:
		return false
	}
}

// Operation is the normalized form of every mutating request. Validate and
// Preview work on it so the dry run and the real run share one code path.
type Operation struct {
	Kind            OperationKind
	Caller          Address
	From            Address
	To              Address
	Amount          Amount
	ExternalAddress string
	ExternalTxID    string
}

// JournalEntry is appended for every committed operation.
type JournalEntry struct {
	ID              string
	Sequence        int64
	Operation       OperationKind
	Caller          Address
	From            Address
	To              Address
	Amount          Amount
	ExternalTxID    string
	ExternalAddress string
	CreatedAt       time.Time
}

type Receipt struct {
	JournalID   string
	Operation   OperationKind
	Amount      Amount
	TotalSupply Amount
	CommittedAt time.Time
}

type TransferRequest struct {
	From   Address
	To     Address
	Amount Amount
}

func (r TransferRequest) Operation() Operation {
	return Operation{
		Kind:   OperationTransfer,
		Caller: r.From,
		From:   r.From,
		To:     r.To,
		Amount: r.Amount,
	}
}

type MintRequest struct {
	Caller Address
	Amount Amount
}

func (r MintRequest) Operation() Operation {
	return Operation{
		Kind:   OperationMint,
		Caller: r.Caller,
		Amount: r.Amount,
	}
}

type MintToRequest struct {
	Caller    Address
	Recipient Address
	Amount    Amount
}

func (r MintToRequest) Operation() Operation {
	return Operation{
		Kind:   OperationMintTo,
		Caller: r.Caller,
		To:     r.Recipient,
		Amount: r.Amount,
	}
}

type BurnRequest struct {
	Caller Address
	Target Address
	Amount Amount
}

func (r BurnRequest) Operation() Operation {
	return Operation{
		Kind:   OperationBurn,
		Caller: r.Caller,
		From:   r.Target,
		Amount: r.Amount,
	}
}

type BridgeWrapRequest struct {
	Caller          Address
	ExternalAddress string
	Recipient       Address
	Amount          Amount
	ExternalTxID    string
}

func (r BridgeWrapRequest) Operation() Operation {
	return Operation{
		Kind:            OperationBridgeWrap,
		Caller:          r.Caller,
		To:              r.Recipient,
		Amount:          r.Amount,
		ExternalAddress: strings.TrimSpace(r.ExternalAddress),
		ExternalTxID:    strings.TrimSpace(r.ExternalTxID),
	}
}

type BridgeUnwrapRequest struct {
	Caller          Address
	ExternalAddress string
	Amount          Amount
}

func (r BridgeUnwrapRequest) Operation() Operation {
	return Operation{
		Kind:            OperationBridgeUnwrap,
		Caller:          r.Caller,
		From:            r.Caller,
		Amount:          r.Amount,
		ExternalAddress: strings.TrimSpace(r.ExternalAddress),
	}
}

type TransferOwnershipRequest struct {
	Caller   Address
	NewOwner Address
}

func (r TransferOwnershipRequest) Operation() Operation {
	return Operation{
		Kind:   OperationTransferOwnership,
		Caller: r.Caller,
		To:     r.NewOwner,
	}
}

type DepositFilter struct {
	Recipient *Address
	Page      int
	PerPage   int
}

type DepositPage struct {
	Items   []BridgeDeposit
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type JournalFilter struct {
	Operation OperationKind
	Address   *Address
	Page      int
	PerPage   int
}

type JournalPage struct {
	Items   []JournalEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

func NormalizePage(page int, perPage int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 25
	}
	return page, perPage, (page - 1) * perPage
}

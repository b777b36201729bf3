package command

import (
	"strings"

	"github.com/goliatone/go-bridge-ledger/core"
)

const (
	TypeTransfer          = "ledger.command.transfer"
	TypeMint              = "ledger.command.mint"
	TypeMintTo            = "ledger.command.mint_to"
	TypeBurn              = "ledger.command.burn"
	TypeBridgeWrap        = "ledger.command.bridge.wrap"
	TypeBridgeUnwrap      = "ledger.command.bridge.unwrap"
	TypeTransferOwnership = "ledger.command.ownership.transfer"
)

// Messages only check shape. Ownership, balances, the unwrap minimum and
// duplicate deposits are decided by the ledger under its lock.

type TransferMessage struct {
	Request core.TransferRequest
}

func (TransferMessage) Type() string { return TypeTransfer }

func (m TransferMessage) Validate() error {
	if m.Request.From == core.ZeroAddress {
		return commandValidationError("from", "sender is required")
	}
	if m.Request.To == core.ZeroAddress {
		return commandValidationError("to", "recipient is required")
	}
	return nil
}

type MintMessage struct {
	Request core.MintRequest
}

func (MintMessage) Type() string { return TypeMint }

func (m MintMessage) Validate() error {
	return validateCaller(m.Request.Caller)
}

type MintToMessage struct {
	Request core.MintToRequest
}

func (MintToMessage) Type() string { return TypeMintTo }

func (m MintToMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if m.Request.Recipient == core.ZeroAddress {
		return commandValidationError("recipient", "recipient is required")
	}
	return nil
}

type BurnMessage struct {
	Request core.BurnRequest
}

func (BurnMessage) Type() string { return TypeBurn }

func (m BurnMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if m.Request.Target == core.ZeroAddress {
		return commandValidationError("target", "burn target is required")
	}
	return nil
}

type BridgeWrapMessage struct {
	Request core.BridgeWrapRequest
}

func (BridgeWrapMessage) Type() string { return TypeBridgeWrap }

func (m BridgeWrapMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.ExternalTxID) == "" {
		return commandValidationError("external_tx_id", "external tx id is required")
	}
	if strings.TrimSpace(m.Request.ExternalAddress) == "" {
		return commandValidationError("external_address", "external address is required")
	}
	if m.Request.Recipient == core.ZeroAddress {
		return commandValidationError("recipient", "recipient is required")
	}
	if m.Request.Amount.IsZero() {
		return commandValidationError("amount", "amount must be positive")
	}
	return nil
}

type BridgeUnwrapMessage struct {
	Request core.BridgeUnwrapRequest
}

func (BridgeUnwrapMessage) Type() string { return TypeBridgeUnwrap }

func (m BridgeUnwrapMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.ExternalAddress) == "" {
		return commandValidationError("external_address", "external address is required")
	}
	return nil
}

type TransferOwnershipMessage struct {
	Request core.TransferOwnershipRequest
}

func (TransferOwnershipMessage) Type() string { return TypeTransferOwnership }

func (m TransferOwnershipMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if m.Request.NewOwner == core.ZeroAddress {
		return commandValidationError("new_owner", "new owner must not be the zero address")
	}
	return nil
}

func validateCaller(caller core.Address) error {
	if caller == core.ZeroAddress {
		return commandValidationError("caller", "caller is required")
	}
	return nil
}

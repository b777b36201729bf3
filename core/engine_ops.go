package core

import (
	"context"
	"time"
)

func (k OperationKind) ownerOnly() bool {
	switch k {
	case OperationMint,
		OperationMintTo,
		OperationBurn,
		OperationBridgeWrap,
		OperationTransferOwnership:
		return true
	default:
		return false
	}
}

// validateOperation is the pure precondition check shared by Preview and the
// mutating path. It returns op with implicit fields resolved (the mint
// recipient). It never writes to state.
func validateOperation(ctx context.Context, state LedgerState, op Operation, minUnwrap Amount) (Operation, error) {
	if !op.Kind.Valid() || op.Kind == OperationBootstrap {
		return op, ledgerError(ErrInvalidInput, "unsupported operation "+string(op.Kind), nil)
	}
	if op.Kind.ownerOnly() {
		if err := NewAccessControl(state).RequireOwner(ctx, op.Caller); err != nil {
			return op, err
		}
	}

	switch op.Kind {
	case OperationTransfer:
		if op.From == ZeroAddress || op.To == ZeroAddress {
			return op, ledgerError(ErrInvalidInput, "transfer requires sender and recipient", nil)
		}
		// A self transfer moves nothing, so it cannot fail on balance.
		if op.From == op.To {
			break
		}
		if err := requireBalance(ctx, state, op.From, op.Amount); err != nil {
			return op, err
		}
		if err := requireCreditable(ctx, state, op.To, op.Amount); err != nil {
			return op, err
		}

	case OperationMint, OperationMintTo:
		if op.Kind == OperationMint {
			owner, err := state.Owner(ctx)
			if err != nil {
				return op, err
			}
			op.To = owner
		}
		if op.To == ZeroAddress {
			return op, ledgerError(ErrInvalidInput, "mint recipient is required", nil)
		}
		if err := requireCreditable(ctx, state, op.To, op.Amount); err != nil {
			return op, err
		}
		if err := requireSupplyIncrease(ctx, state, op.Amount); err != nil {
			return op, err
		}

	case OperationBurn:
		if op.From == ZeroAddress {
			return op, ledgerError(ErrInvalidInput, "burn target is required", nil)
		}
		if err := requireBalance(ctx, state, op.From, op.Amount); err != nil {
			return op, err
		}

	case OperationBridgeWrap:
		switch {
		case op.ExternalTxID == "":
			return op, ledgerError(ErrInvalidInput, "external tx id is required", nil)
		case op.ExternalAddress == "":
			return op, ledgerError(ErrInvalidInput, "external address is required", nil)
		case op.To == ZeroAddress:
			return op, ledgerError(ErrInvalidInput, "wrap recipient is required", nil)
		case op.Amount.IsZero():
			return op, ledgerError(ErrInvalidInput, "wrap amount must be positive", nil)
		}
		processed, err := state.IsProcessed(ctx, op.ExternalTxID)
		if err != nil {
			return op, err
		}
		if processed {
			return op, ledgerError(ErrDuplicateDeposit, op.ExternalTxID, map[string]any{
				"external_tx_id": op.ExternalTxID,
			})
		}
		if err := requireCreditable(ctx, state, op.To, op.Amount); err != nil {
			return op, err
		}
		if err := requireSupplyIncrease(ctx, state, op.Amount); err != nil {
			return op, err
		}

	case OperationBridgeUnwrap:
		if op.ExternalAddress == "" {
			return op, ledgerError(ErrInvalidInput, "external address is required", nil)
		}
		if op.From == ZeroAddress {
			return op, ledgerError(ErrInvalidInput, "caller is required", nil)
		}
		// Applies to every caller, the owner included.
		if op.Amount.LessThan(minUnwrap) {
			return op, ledgerError(ErrMinimumNotMet, "minimum is "+minUnwrap.String(), map[string]any{
				"minimum": minUnwrap.String(),
				"amount":  op.Amount.String(),
			})
		}
		if err := requireBalance(ctx, state, op.From, op.Amount); err != nil {
			return op, err
		}

	case OperationTransferOwnership:
		if op.To == ZeroAddress {
			return op, ledgerError(ErrInvalidInput, "new owner must not be the zero address", nil)
		}
	}
	return op, nil
}

func requireBalance(ctx context.Context, state LedgerState, addr Address, amount Amount) error {
	balance, err := state.Balance(ctx, addr)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return ledgerError(ErrInsufficientBalance, "", map[string]any{
			"address": addr.Hex(),
			"balance": balance.String(),
			"amount":  amount.String(),
		})
	}
	return nil
}

func requireCreditable(ctx context.Context, state LedgerState, addr Address, amount Amount) error {
	balance, err := state.Balance(ctx, addr)
	if err != nil {
		return err
	}
	if _, err := balance.Add(amount); err != nil {
		return ledgerError(ErrOverflow, "balance of "+addr.Hex(), nil)
	}
	return nil
}

func requireSupplyIncrease(ctx context.Context, state LedgerState, amount Amount) error {
	supply, err := state.TotalSupply(ctx)
	if err != nil {
		return err
	}
	if _, err := supply.Add(amount); err != nil {
		return ledgerError(ErrOverflow, "total supply", nil)
	}
	return nil
}

// applyOperation performs the mutations of an already validated op and
// journals it. Every balance move is paired with its supply move.
func applyOperation(ctx context.Context, tx LedgerTx, op Operation, at time.Time) (JournalEntry, error) {
	accounts := tx.Accounts()
	supply := tx.Supply()

	switch op.Kind {
	case OperationTransfer:
		if op.From != op.To {
			if err := accounts.Debit(ctx, op.From, op.Amount); err != nil {
				return JournalEntry{}, err
			}
			if err := accounts.Credit(ctx, op.To, op.Amount); err != nil {
				return JournalEntry{}, err
			}
		}

	case OperationMint, OperationMintTo:
		if err := accounts.Credit(ctx, op.To, op.Amount); err != nil {
			return JournalEntry{}, err
		}
		if err := supply.Increase(ctx, op.Amount); err != nil {
			return JournalEntry{}, err
		}

	case OperationBurn, OperationBridgeUnwrap:
		if err := accounts.Debit(ctx, op.From, op.Amount); err != nil {
			return JournalEntry{}, err
		}
		if err := supply.Decrease(ctx, op.Amount); err != nil {
			return JournalEntry{}, err
		}

	case OperationBridgeWrap:
		if err := tx.Registry().Record(ctx, BridgeDeposit{
			ExternalTxID:    op.ExternalTxID,
			ExternalAddress: op.ExternalAddress,
			Recipient:       op.To,
			Amount:          op.Amount,
			Status:          DepositStatusProcessed,
			ProcessedAt:     at,
		}); err != nil {
			return JournalEntry{}, err
		}
		if err := accounts.Credit(ctx, op.To, op.Amount); err != nil {
			return JournalEntry{}, err
		}
		if err := supply.Increase(ctx, op.Amount); err != nil {
			return JournalEntry{}, err
		}

	case OperationTransferOwnership:
		if err := NewAccessControl(tx.OwnerSlot()).TransferOwnership(ctx, op.Caller, op.To); err != nil {
			return JournalEntry{}, err
		}
	}

	return tx.Journal().AppendJournal(ctx, journalEntryFor(op, at))
}

func journalEntryFor(op Operation, at time.Time) JournalEntry {
	return JournalEntry{
		Operation:       op.Kind,
		Caller:          op.Caller,
		From:            op.From,
		To:              op.To,
		Amount:          op.Amount,
		ExternalTxID:    op.ExternalTxID,
		ExternalAddress: op.ExternalAddress,
		CreatedAt:       at,
	}
}

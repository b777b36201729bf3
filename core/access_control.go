package core

import (
	"context"
	"fmt"
)

type OwnerReader interface {
	Owner(ctx context.Context) (Address, error)
}

// AccessControl is the single-owner capability check. Administrative
// operations call RequireOwner before reading any balance.
type AccessControl struct {
	owners OwnerReader
}

func NewAccessControl(owners OwnerReader) AccessControl {
	return AccessControl{owners: owners}
}

func (a AccessControl) Owner(ctx context.Context) (Address, error) {
	if a.owners == nil {
		return ZeroAddress, fmt.Errorf("core: owner slot is not configured")
	}
	return a.owners.Owner(ctx)
}

func (a AccessControl) RequireOwner(ctx context.Context, caller Address) error {
	owner, err := a.Owner(ctx)
	if err != nil {
		return err
	}
	if owner == ZeroAddress || caller != owner {
		return ledgerError(ErrNotOwner, "", map[string]any{"caller": caller.Hex()})
	}
	return nil
}

// TransferOwnership replaces the owner. It needs a writable OwnerSlot and
// fails with ErrReadOnly on a view.
func (a AccessControl) TransferOwnership(ctx context.Context, caller Address, newOwner Address) error {
	if err := a.RequireOwner(ctx, caller); err != nil {
		return err
	}
	if newOwner == ZeroAddress {
		return ledgerError(ErrInvalidInput, "new owner must not be the zero address", nil)
	}
	slot, ok := a.owners.(OwnerSlot)
	if !ok {
		return ErrReadOnly
	}
	return slot.SetOwner(ctx, newOwner)
}

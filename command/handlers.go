package command

import (
	"context"

	"github.com/goliatone/go-bridge-ledger/core"
	gocmd "github.com/goliatone/go-command"
)

type MutatingService interface {
	Transfer(ctx context.Context, req core.TransferRequest) (core.Receipt, error)
	Mint(ctx context.Context, req core.MintRequest) (core.Receipt, error)
	MintTo(ctx context.Context, req core.MintToRequest) (core.Receipt, error)
	Burn(ctx context.Context, req core.BurnRequest) (core.Receipt, error)
	BridgeWrap(ctx context.Context, req core.BridgeWrapRequest) (core.Receipt, error)
	BridgeUnwrap(ctx context.Context, req core.BridgeUnwrapRequest) (core.Receipt, error)
	TransferOwnership(ctx context.Context, req core.TransferOwnershipRequest) (core.Receipt, error)
}

type TransferCommand struct {
	service MutatingService
}

func NewTransferCommand(service MutatingService) *TransferCommand {
	return &TransferCommand{service: service}
}

func (c *TransferCommand) Execute(ctx context.Context, msg TransferMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: transfer service is required")
	}
	return execute(ctx, msg.Request, c.service.Transfer)
}

type MintCommand struct {
	service MutatingService
}

func NewMintCommand(service MutatingService) *MintCommand {
	return &MintCommand{service: service}
}

func (c *MintCommand) Execute(ctx context.Context, msg MintMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: mint service is required")
	}
	return execute(ctx, msg.Request, c.service.Mint)
}

type MintToCommand struct {
	service MutatingService
}

func NewMintToCommand(service MutatingService) *MintToCommand {
	return &MintToCommand{service: service}
}

func (c *MintToCommand) Execute(ctx context.Context, msg MintToMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: mint service is required")
	}
	return execute(ctx, msg.Request, c.service.MintTo)
}

type BurnCommand struct {
	service MutatingService
}

func NewBurnCommand(service MutatingService) *BurnCommand {
	return &BurnCommand{service: service}
}

func (c *BurnCommand) Execute(ctx context.Context, msg BurnMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: burn service is required")
	}
	return execute(ctx, msg.Request, c.service.Burn)
}

type BridgeWrapCommand struct {
	service MutatingService
}

func NewBridgeWrapCommand(service MutatingService) *BridgeWrapCommand {
	return &BridgeWrapCommand{service: service}
}

func (c *BridgeWrapCommand) Execute(ctx context.Context, msg BridgeWrapMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: bridge service is required")
	}
	return execute(ctx, msg.Request, c.service.BridgeWrap)
}

type BridgeUnwrapCommand struct {
	service MutatingService
}

func NewBridgeUnwrapCommand(service MutatingService) *BridgeUnwrapCommand {
	return &BridgeUnwrapCommand{service: service}
}

func (c *BridgeUnwrapCommand) Execute(ctx context.Context, msg BridgeUnwrapMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: bridge service is required")
	}
	return execute(ctx, msg.Request, c.service.BridgeUnwrap)
}

type TransferOwnershipCommand struct {
	service MutatingService
}

func NewTransferOwnershipCommand(service MutatingService) *TransferOwnershipCommand {
	return &TransferOwnershipCommand{service: service}
}

func (c *TransferOwnershipCommand) Execute(ctx context.Context, msg TransferOwnershipMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: ownership service is required")
	}
	return execute(ctx, msg.Request, c.service.TransferOwnership)
}

func execute[Req any](ctx context.Context, req Req, fn func(context.Context, Req) (core.Receipt, error)) error {
	out, err := fn(ctx, req)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

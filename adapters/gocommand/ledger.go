package gocommand

import (
	"fmt"

	"github.com/goliatone/go-bridge-ledger/command"
	"github.com/goliatone/go-bridge-ledger/core"
	"github.com/goliatone/go-bridge-ledger/query"

	"github.com/goliatone/go-command/runner"
)

// LedgerService is everything the dispatcher bindings need. *core.Service
// satisfies it.
type LedgerService interface {
	command.MutatingService
	query.LedgerReader
	query.BridgeReader
	query.JournalReader
	query.Previewer
}

// RegisterLedgerHandlers registers every ledger command and query on r. On
// failure the handlers attached so far are detached again.
func RegisterLedgerHandlers(r *Registry, svc LedgerService, runnerOpts ...runner.Option) error {
	if r == nil || r.registry == nil {
		return errRegistryNotConfigured
	}
	if svc == nil {
		return fmt.Errorf("gocommand: ledger service is required")
	}

	steps := []func() error{
		func() error {
			return RegisterCommand[command.TransferMessage](r, command.NewTransferCommand(svc), runnerOpts...)
		},
		func() error {
			return RegisterCommand[command.MintMessage](r, command.NewMintCommand(svc), runnerOpts...)
		},
		func() error {
			return RegisterCommand[command.MintToMessage](r, command.NewMintToCommand(svc), runnerOpts...)
		},
		func() error {
			return RegisterCommand[command.BurnMessage](r, command.NewBurnCommand(svc), runnerOpts...)
		},
		func() error {
			return RegisterCommand[command.BridgeWrapMessage](r, command.NewBridgeWrapCommand(svc), runnerOpts...)
		},
		func() error {
			return RegisterCommand[command.BridgeUnwrapMessage](r, command.NewBridgeUnwrapCommand(svc), runnerOpts...)
		},
		func() error {
			return RegisterCommand[command.TransferOwnershipMessage](r, command.NewTransferOwnershipCommand(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.BalanceOfMessage, core.Amount](r, query.NewBalanceOfQuery(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.TotalSupplyMessage, core.Amount](r, query.NewTotalSupplyQuery(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.OwnerMessage, core.Address](r, query.NewOwnerQuery(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.TokenInfoMessage, core.TokenInfo](r, query.NewTokenInfoQuery(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.IsProcessedMessage, bool](r, query.NewIsProcessedQuery(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.GetDepositMessage, core.BridgeDeposit](r, query.NewGetDepositQuery(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.ListDepositsMessage, core.DepositPage](r, query.NewListDepositsQuery(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.ListJournalMessage, core.JournalPage](r, query.NewListJournalQuery(svc), runnerOpts...)
		},
		func() error {
			return RegisterQuery[query.PreviewMessage, query.PreviewResult](r, query.NewPreviewQuery(svc), runnerOpts...)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			r.Close()
			return err
		}
	}
	return nil
}

var _ LedgerService = (*core.Service)(nil)

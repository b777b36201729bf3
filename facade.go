package ledger

import (
	"fmt"

	ledgercommand "github.com/goliatone/go-bridge-ledger/command"
	ledgerquery "github.com/goliatone/go-bridge-ledger/query"
	sqlstore "github.com/goliatone/go-bridge-ledger/store/sql"
)

// CommandQueryService is the surface the facade wires handlers against.
type CommandQueryService interface {
	ledgercommand.MutatingService
	ledgerquery.LedgerReader
	ledgerquery.BridgeReader
	ledgerquery.JournalReader
	ledgerquery.Previewer
}

type Commands struct {
	Transfer          *ledgercommand.TransferCommand
	Mint              *ledgercommand.MintCommand
	MintTo            *ledgercommand.MintToCommand
	Burn              *ledgercommand.BurnCommand
	BridgeWrap        *ledgercommand.BridgeWrapCommand
	BridgeUnwrap      *ledgercommand.BridgeUnwrapCommand
	TransferOwnership *ledgercommand.TransferOwnershipCommand
}

type Queries struct {
	BalanceOf    *ledgerquery.BalanceOfQuery
	TotalSupply  *ledgerquery.TotalSupplyQuery
	Owner        *ledgerquery.OwnerQuery
	TokenInfo    *ledgerquery.TokenInfoQuery
	IsProcessed  *ledgerquery.IsProcessedQuery
	GetDeposit   *ledgerquery.GetDepositQuery
	ListDeposits *ledgerquery.ListDepositsQuery
	ListJournal  *ledgerquery.ListJournalQuery
	Preview      *ledgerquery.PreviewQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	bridgeReader  ledgerquery.BridgeReader
	journalReader ledgerquery.JournalReader
}

// WithBridgeReader serves deposit queries from reader instead of the
// service, typically a *sqlstore.CachedDepositReader.
func WithBridgeReader(reader ledgerquery.BridgeReader) FacadeOption {
	return func(options *facadeOptions) {
		options.bridgeReader = reader
	}
}

func WithJournalReader(reader ledgerquery.JournalReader) FacadeOption {
	return func(options *facadeOptions) {
		options.journalReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("ledger: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	bridgeReader := cfg.bridgeReader
	if bridgeReader == nil {
		bridgeReader = service
	}
	journalReader := cfg.journalReader
	if journalReader == nil {
		journalReader = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Transfer:          ledgercommand.NewTransferCommand(service),
		Mint:              ledgercommand.NewMintCommand(service),
		MintTo:            ledgercommand.NewMintToCommand(service),
		Burn:              ledgercommand.NewBurnCommand(service),
		BridgeWrap:        ledgercommand.NewBridgeWrapCommand(service),
		BridgeUnwrap:      ledgercommand.NewBridgeUnwrapCommand(service),
		TransferOwnership: ledgercommand.NewTransferOwnershipCommand(service),
	}
	facade.queries = Queries{
		BalanceOf:    ledgerquery.NewBalanceOfQuery(service),
		TotalSupply:  ledgerquery.NewTotalSupplyQuery(service),
		Owner:        ledgerquery.NewOwnerQuery(service),
		TokenInfo:    ledgerquery.NewTokenInfoQuery(service),
		IsProcessed:  ledgerquery.NewIsProcessedQuery(bridgeReader),
		GetDeposit:   ledgerquery.NewGetDepositQuery(bridgeReader),
		ListDeposits: ledgerquery.NewListDepositsQuery(bridgeReader),
		ListJournal:  ledgerquery.NewListJournalQuery(journalReader),
		Preview:      ledgerquery.NewPreviewQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ ledgerquery.BridgeReader = (*sqlstore.CachedDepositReader)(nil)

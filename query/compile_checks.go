package query

import (
	"github.com/goliatone/go-bridge-ledger/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[BalanceOfMessage, core.Amount]         = (*BalanceOfQuery)(nil)
	_ gocmd.Querier[TotalSupplyMessage, core.Amount]       = (*TotalSupplyQuery)(nil)
	_ gocmd.Querier[OwnerMessage, core.Address]            = (*OwnerQuery)(nil)
	_ gocmd.Querier[TokenInfoMessage, core.TokenInfo]      = (*TokenInfoQuery)(nil)
	_ gocmd.Querier[IsProcessedMessage, bool]              = (*IsProcessedQuery)(nil)
	_ gocmd.Querier[GetDepositMessage, core.BridgeDeposit] = (*GetDepositQuery)(nil)
	_ gocmd.Querier[ListDepositsMessage, core.DepositPage] = (*ListDepositsQuery)(nil)
	_ gocmd.Querier[ListJournalMessage, core.JournalPage]  = (*ListJournalQuery)(nil)
	_ gocmd.Querier[PreviewMessage, PreviewResult]         = (*PreviewQuery)(nil)
)

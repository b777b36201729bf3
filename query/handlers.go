package query

import (
	"context"
	"errors"

	"github.com/goliatone/go-bridge-ledger/core"
	goerrors "github.com/goliatone/go-errors"
)

type LedgerReader interface {
	BalanceOf(ctx context.Context, addr core.Address) (core.Amount, error)
	TotalSupply(ctx context.Context) (core.Amount, error)
	Owner(ctx context.Context) (core.Address, error)
	TokenInfo(ctx context.Context) (core.TokenInfo, error)
}

type BridgeReader interface {
	IsProcessed(ctx context.Context, externalTxID string) (bool, error)
	GetDeposit(ctx context.Context, externalTxID string) (core.BridgeDeposit, error)
	ListDeposits(ctx context.Context, filter core.DepositFilter) (core.DepositPage, error)
}

type JournalReader interface {
	ListJournal(ctx context.Context, filter core.JournalFilter) (core.JournalPage, error)
}

type Previewer interface {
	Preview(ctx context.Context, op core.Operation) error
}

type BalanceOfQuery struct {
	reader LedgerReader
}

func NewBalanceOfQuery(reader LedgerReader) *BalanceOfQuery {
	return &BalanceOfQuery{reader: reader}
}

func (q *BalanceOfQuery) Query(ctx context.Context, msg BalanceOfMessage) (core.Amount, error) {
	if q == nil || q.reader == nil {
		return core.Amount{}, queryDependencyError("query: ledger reader is required")
	}
	return q.reader.BalanceOf(ctx, msg.Address)
}

type TotalSupplyQuery struct {
	reader LedgerReader
}

func NewTotalSupplyQuery(reader LedgerReader) *TotalSupplyQuery {
	return &TotalSupplyQuery{reader: reader}
}

func (q *TotalSupplyQuery) Query(ctx context.Context, _ TotalSupplyMessage) (core.Amount, error) {
	if q == nil || q.reader == nil {
		return core.Amount{}, queryDependencyError("query: ledger reader is required")
	}
	return q.reader.TotalSupply(ctx)
}

type OwnerQuery struct {
	reader LedgerReader
}

func NewOwnerQuery(reader LedgerReader) *OwnerQuery {
	return &OwnerQuery{reader: reader}
}

func (q *OwnerQuery) Query(ctx context.Context, _ OwnerMessage) (core.Address, error) {
	if q == nil || q.reader == nil {
		return core.ZeroAddress, queryDependencyError("query: ledger reader is required")
	}
	return q.reader.Owner(ctx)
}

type TokenInfoQuery struct {
	reader LedgerReader
}

func NewTokenInfoQuery(reader LedgerReader) *TokenInfoQuery {
	return &TokenInfoQuery{reader: reader}
}

func (q *TokenInfoQuery) Query(ctx context.Context, _ TokenInfoMessage) (core.TokenInfo, error) {
	if q == nil || q.reader == nil {
		return core.TokenInfo{}, queryDependencyError("query: ledger reader is required")
	}
	return q.reader.TokenInfo(ctx)
}

type IsProcessedQuery struct {
	reader BridgeReader
}

func NewIsProcessedQuery(reader BridgeReader) *IsProcessedQuery {
	return &IsProcessedQuery{reader: reader}
}

func (q *IsProcessedQuery) Query(ctx context.Context, msg IsProcessedMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: bridge reader is required")
	}
	return q.reader.IsProcessed(ctx, msg.ExternalTxID)
}

type GetDepositQuery struct {
	reader BridgeReader
}

func NewGetDepositQuery(reader BridgeReader) *GetDepositQuery {
	return &GetDepositQuery{reader: reader}
}

func (q *GetDepositQuery) Query(ctx context.Context, msg GetDepositMessage) (core.BridgeDeposit, error) {
	if q == nil || q.reader == nil {
		return core.BridgeDeposit{}, queryDependencyError("query: bridge reader is required")
	}
	return q.reader.GetDeposit(ctx, msg.ExternalTxID)
}

type ListDepositsQuery struct {
	reader BridgeReader
}

func NewListDepositsQuery(reader BridgeReader) *ListDepositsQuery {
	return &ListDepositsQuery{reader: reader}
}

func (q *ListDepositsQuery) Query(ctx context.Context, msg ListDepositsMessage) (core.DepositPage, error) {
	if q == nil || q.reader == nil {
		return core.DepositPage{}, queryDependencyError("query: bridge reader is required")
	}
	return q.reader.ListDeposits(ctx, msg.Filter)
}

type ListJournalQuery struct {
	reader JournalReader
}

func NewListJournalQuery(reader JournalReader) *ListJournalQuery {
	return &ListJournalQuery{reader: reader}
}

func (q *ListJournalQuery) Query(ctx context.Context, msg ListJournalMessage) (core.JournalPage, error) {
	if q == nil || q.reader == nil {
		return core.JournalPage{}, queryDependencyError("query: journal reader is required")
	}
	return q.reader.ListJournal(ctx, msg.Filter)
}

// PreviewResult reports whether an operation would be accepted. A rejection
// by the ledger is a result, not a query failure.
type PreviewResult struct {
	Operation core.OperationKind `json:"operation"`
	OK        bool               `json:"ok"`
	TextCode  string             `json:"text_code,omitempty"`
	Message   string             `json:"message,omitempty"`
}

type PreviewQuery struct {
	previewer Previewer
}

func NewPreviewQuery(previewer Previewer) *PreviewQuery {
	return &PreviewQuery{previewer: previewer}
}

func (q *PreviewQuery) Query(ctx context.Context, msg PreviewMessage) (PreviewResult, error) {
	if q == nil || q.previewer == nil {
		return PreviewResult{}, queryDependencyError("query: previewer is required")
	}
	result := PreviewResult{Operation: msg.Operation.Kind, OK: true}
	err := q.previewer.Preview(ctx, msg.Operation)
	if err == nil {
		return result, nil
	}
	if !isLedgerRejection(err) {
		return PreviewResult{}, err
	}
	result.OK = false
	result.TextCode = core.ErrorTextCode(err)
	result.Message = err.Error()
	return result, nil
}

func isLedgerRejection(err error) bool {
	var typed *core.LedgerError
	if errors.As(err, &typed) {
		return true
	}
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode != "" && rich.TextCode != core.LedgerErrorInternal
}

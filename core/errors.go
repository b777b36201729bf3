package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	LedgerErrorBadInput            = "LEDGER_BAD_INPUT"
	LedgerErrorNotOwner            = "LEDGER_NOT_OWNER"
	LedgerErrorInsufficientBalance = "LEDGER_INSUFFICIENT_BALANCE"
	LedgerErrorOverflow            = "LEDGER_OVERFLOW"
	LedgerErrorUnderflow           = "LEDGER_UNDERFLOW"
	LedgerErrorDuplicateDeposit    = "LEDGER_DUPLICATE_DEPOSIT"
	LedgerErrorMinimumNotMet       = "LEDGER_MINIMUM_NOT_MET"
	LedgerErrorNotFound            = "LEDGER_NOT_FOUND"
	LedgerErrorSupplyDrift         = "LEDGER_SUPPLY_DRIFT"
	LedgerErrorInternal            = "LEDGER_INTERNAL_ERROR"
)

var (
	ErrInvalidInput        = errors.New("core: invalid input")
	ErrNotOwner            = errors.New("core: caller is not the owner")
	ErrInsufficientBalance = errors.New("core: insufficient balance")
	ErrDuplicateDeposit    = errors.New("core: external deposit already processed")
	ErrMinimumNotMet       = errors.New("core: amount below bridge minimum")
	ErrDepositNotFound     = errors.New("core: deposit not found")
	ErrReleaseNotFound     = errors.New("core: pending release not found")
	ErrSupplyDrift         = errors.New("core: total supply does not match balances")
	ErrReadOnly            = errors.New("core: ledger view is read-only")
)

// LedgerError carries one of the sentinel kinds plus context. errors.Is
// matches the kind.
type LedgerError struct {
	Kind     error
	Message  string
	Metadata map[string]any
}

func (e *LedgerError) Error() string {
	if e == nil {
		return ""
	}
	if e.Kind == nil {
		return e.Message
	}
	if strings.TrimSpace(e.Message) == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *LedgerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func (e *LedgerError) TextCode() string {
	if e == nil {
		return LedgerErrorInternal
	}
	return textCodeForKind(e.Kind)
}

func (e *LedgerError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category := categoryForKind(e.Kind)
	err := goerrors.Wrap(e, category, e.Error()).
		WithCode(ledgerHTTPStatus(category)).
		WithTextCode(e.TextCode())
	if len(e.Metadata) > 0 {
		err.WithMetadata(cloneFields(e.Metadata))
	}
	return err
}

func ledgerError(kind error, message string, metadata map[string]any) *LedgerError {
	return &LedgerError{Kind: kind, Message: message, Metadata: metadata}
}

// asLedgerError normalizes component errors: sentinel kinds are wrapped,
// existing LedgerErrors pass through, anything else stays as is.
func asLedgerError(err error, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	var typed *LedgerError
	if errors.As(err, &typed) {
		return err
	}
	for _, kind := range []error{
		ErrInvalidInput,
		ErrNotOwner,
		ErrInsufficientBalance,
		ErrOverflow,
		ErrUnderflow,
		ErrDuplicateDeposit,
		ErrMinimumNotMet,
		ErrDepositNotFound,
		ErrReleaseNotFound,
		ErrSupplyDrift,
	} {
		if !errors.Is(err, kind) {
			continue
		}
		message := ""
		if err != kind {
			message = strings.TrimPrefix(err.Error(), kind.Error()+": ")
		}
		return ledgerError(kind, message, metadata)
	}
	return err
}

// ErrorTextCode returns the ledger text code for err, LEDGER_INTERNAL_ERROR
// for anything unknown.
func ErrorTextCode(err error) string {
	if err == nil {
		return ""
	}
	var typed *LedgerError
	if errors.As(err, &typed) {
		return typed.TextCode()
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && strings.TrimSpace(richErr.TextCode) != "" {
		return richErr.TextCode
	}
	return textCodeForKind(err)
}

func textCodeForKind(kind error) string {
	switch {
	case kind == nil:
		return LedgerErrorInternal
	case errors.Is(kind, ErrInvalidInput):
		return LedgerErrorBadInput
	case errors.Is(kind, ErrNotOwner):
		return LedgerErrorNotOwner
	case errors.Is(kind, ErrInsufficientBalance):
		return LedgerErrorInsufficientBalance
	case errors.Is(kind, ErrOverflow):
		return LedgerErrorOverflow
	case errors.Is(kind, ErrUnderflow):
		return LedgerErrorUnderflow
	case errors.Is(kind, ErrDuplicateDeposit):
		return LedgerErrorDuplicateDeposit
	case errors.Is(kind, ErrMinimumNotMet):
		return LedgerErrorMinimumNotMet
	case errors.Is(kind, ErrDepositNotFound), errors.Is(kind, ErrReleaseNotFound):
		return LedgerErrorNotFound
	case errors.Is(kind, ErrSupplyDrift):
		return LedgerErrorSupplyDrift
	default:
		return LedgerErrorInternal
	}
}

func categoryForKind(kind error) goerrors.Category {
	switch {
	case errors.Is(kind, ErrInvalidInput):
		return goerrors.CategoryBadInput
	case errors.Is(kind, ErrNotOwner):
		return goerrors.CategoryAuthz
	case errors.Is(kind, ErrInsufficientBalance), errors.Is(kind, ErrMinimumNotMet),
		errors.Is(kind, ErrOverflow), errors.Is(kind, ErrUnderflow):
		return goerrors.CategoryValidation
	case errors.Is(kind, ErrDuplicateDeposit):
		return goerrors.CategoryConflict
	case errors.Is(kind, ErrDepositNotFound), errors.Is(kind, ErrReleaseNotFound):
		return goerrors.CategoryNotFound
	default:
		return goerrors.CategoryInternal
	}
}

func ledgerErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var typed *LedgerError
	if errors.As(err, &typed) {
		return typed.ToServiceError()
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureLedgerErrorEnvelope(richErr)
	}

	if wrapped, ok := asLedgerError(err, nil).(*LedgerError); ok {
		return wrapped.ToServiceError()
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newLedgerServiceError(err.Error(), goerrors.CategoryBadInput, LedgerErrorBadInput)
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return newLedgerServiceError(err.Error(), goerrors.CategoryConflict, LedgerErrorDuplicateDeposit)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureLedgerErrorEnvelope(mapped)
}

func newLedgerServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureLedgerErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureLedgerErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = ledgerHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultLedgerTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultLedgerTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return LedgerErrorBadInput
	case goerrors.CategoryNotFound:
		return LedgerErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return LedgerErrorNotOwner
	case goerrors.CategoryConflict:
		return LedgerErrorDuplicateDeposit
	default:
		return LedgerErrorInternal
	}
}

func ledgerHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

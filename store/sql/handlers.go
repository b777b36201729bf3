package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func accountHandlers() repository.ModelHandlers[*accountRecord] {
	return repository.ModelHandlers[*accountRecord]{
		NewRecord: func() *accountRecord {
			return &accountRecord{}
		},
		GetID: func(record *accountRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *accountRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "address"
		},
		GetIdentifierValue: func(record *accountRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.Address)
		},
	}
}

func depositHandlers() repository.ModelHandlers[*depositRecord] {
	return repository.ModelHandlers[*depositRecord]{
		NewRecord: func() *depositRecord {
			return &depositRecord{}
		},
		GetID: func(record *depositRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *depositRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "external_tx_id"
		},
		GetIdentifierValue: func(record *depositRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ExternalTxID)
		},
	}
}

func journalHandlers() repository.ModelHandlers[*journalRecord] {
	return repository.ModelHandlers[*journalRecord]{
		NewRecord: func() *journalRecord {
			return &journalRecord{}
		},
		GetID: func(record *journalRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *journalRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *journalRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func releaseOutboxHandlers() repository.ModelHandlers[*releaseOutboxRecord] {
	return repository.ModelHandlers[*releaseOutboxRecord]{
		NewRecord: func() *releaseOutboxRecord {
			return &releaseOutboxRecord{}
		},
		GetID: func(record *releaseOutboxRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *releaseOutboxRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "withdrawal_id"
		},
		GetIdentifierValue: func(record *releaseOutboxRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.WithdrawalID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}

func validateRepository(repo any, name string) error {
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return wrapf(err, "invalid %s repository wiring", name)
		}
	}
	return nil
}

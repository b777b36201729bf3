package sqlstore

import "github.com/goliatone/go-bridge-ledger/core"

var (
	_ core.LedgerStore            = (*LedgerStore)(nil)
	_ core.LedgerTx               = (*sqlTx)(nil)
	_ core.LedgerReader           = (*LedgerReader)(nil)
	_ core.StoreProvider          = (*Stores)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.AccountStore           = (*txAccountStore)(nil)
	_ core.SupplyLedger           = (*txSupplyStore)(nil)
	_ core.OwnerSlot              = (*txSupplyStore)(nil)
	_ core.BridgeRegistry         = (*txDepositRegistry)(nil)
	_ core.JournalWriter          = (*txJournalWriter)(nil)
	_ core.ReleaseOutbox          = (*txReleaseOutbox)(nil)
	_ core.ReleaseOutboxStore     = (*ReleaseOutboxStore)(nil)
	_ core.ReleaseOutboxProvider  = (*Stores)(nil)
	_ DepositLookup               = (*DepositStore)(nil)
	_ DepositLookup               = (*CachedDepositReader)(nil)
)

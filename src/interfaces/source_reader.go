package interfaces

import "bitcoin-dss/src/models"

// -----------------------------------------------------------------------------
// ISourceReader defines the contract for the four upstream source stores.
// All reads are bounded by the per-source row cap from config and never
// mutate the source.
// -----------------------------------------------------------------------------

type ISourceReader interface {

	// -----------------------------------------------------------------------------

	ReadTransactions() ([]models.MSourceTransaction, error)

	// -----------------------------------------------------------------------------

	ReadTimeRecords() ([]models.MSourceTimeRecord, error)

	// -----------------------------------------------------------------------------

	ReadMarketRecords() ([]models.MSourceMarketRecord, error)

	// -----------------------------------------------------------------------------

	ReadWalletRecords() ([]models.MSourceWalletRecord, error)
}

// -----------------------------------------------------------------------------
// IWalletResolver assigns a wallet surrogate key to a transaction. The source
// data carries no transaction-to-wallet linkage, so the default resolver
// samples uniformly over the loaded wallet keys; a real linkage resolver can
// be plugged in without touching the fact loader.
// -----------------------------------------------------------------------------

type IWalletResolver interface {

	// -----------------------------------------------------------------------------

	// Resolve returns the wallet key for one transaction.
	Resolve(tx models.MSourceTransaction) int64
}

package interfaces

import "bitcoin-dss/src/models"

// -----------------------------------------------------------------------------
// IWarehouse defines the contract for the dimensional warehouse store.
// -----------------------------------------------------------------------------

type IWarehouse interface {

	// -----------------------------------------------------------------------------

	// Initialize discards any existing store at the configured location and
	// creates the six warehouse tables plus supporting indexes from scratch.
	// A failure leaves the store in an indeterminate state; callers must
	// re-run Initialize before retrying a load.
	Initialize() error

	// -----------------------------------------------------------------------------
	// Bulk inserts. Each call wraps all of its rows in a single transaction
	// so a reader never observes a partially populated table.

	InsertTimeDimension(rows []models.MTimeDimension) error

	InsertMarketDimension(rows []models.MMarketDimension) error

	InsertWalletDimension(rows []models.MWalletDimension) error

	InsertFacts(rows []models.MTransactionFact) error

	InsertRiskScores(rows []models.MTransactionRiskScore) error

	// -----------------------------------------------------------------------------
	// Lookups used by the fact loader's key resolution.

	// TimeKeysByDate returns a date -> TimeKey map over the full DimTime table.
	TimeKeysByDate() (map[string]int64, error)

	// MarketKeysByDate returns a date -> MarketDateKey map over DimMarket.
	MarketKeysByDate() (map[string]int64, error)

	// WalletKeys returns every surrogate key currently in DimWallet.
	WalletKeys() ([]int64, error)

	// -----------------------------------------------------------------------------

	// FactRows returns all fact rows, the scoring engine's input.
	FactRows() ([]models.MTransactionFact, error)

	// -----------------------------------------------------------------------------

	// BuildDailySummary recomputes the DailySummary table wholesale from the
	// fact, time, and risk-score tables.
	BuildDailySummary() error

	// -----------------------------------------------------------------------------

	// CreateViews creates the four read-only analytical views consumed by the
	// presentation layer.
	CreateViews() error

	// -----------------------------------------------------------------------------
	// Post-load validation report.

	TableCounts() (map[string]int64, error)

	RiskLevelDistribution() (map[string]int64, error)

	// DailySummaries returns the DailySummary rows ordered by date.
	DailySummaries() ([]models.MDailySummary, error)

	// -----------------------------------------------------------------------------

	// Close the warehouse connection
	Close() error
}

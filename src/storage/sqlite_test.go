package storage

import (
	"path/filepath"
	"testing"
	"time"

	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestWarehouse(t *testing.T) *SQLiteWarehouse {
	t.Helper()

	cfg := &models.MConfig{
		Name: "test",
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: filepath.Join(t.TempDir(), "dw.db"),
		},
	}

	wh, err := NewSQLiteWarehouse(cfg, logger.NewLogger("error", "test"))
	require.NoError(t, err)
	require.NoError(t, wh.Initialize())
	t.Cleanup(func() { wh.Close() })
	return wh
}

// -----------------------------------------------------------------------------

func schemaDump(t *testing.T, wh *SQLiteWarehouse) map[string]string {
	t.Helper()

	rows, err := wh.DB.Query(`
		SELECT name, sql FROM sqlite_master
		WHERE type IN ('table', 'index') AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	require.NoError(t, err)
	defer rows.Close()

	dump := make(map[string]string)
	for rows.Next() {
		var name, ddl string
		require.NoError(t, rows.Scan(&name, &ddl))
		dump[name] = ddl
	}
	require.NoError(t, rows.Err())
	return dump
}

// -----------------------------------------------------------------------------

func loadFixture(t *testing.T, wh *SQLiteWarehouse) {
	t.Helper()

	// Three timestamps: two on 2024-01-01 (a Monday), one on 2024-01-02.
	timeRows := []models.MTimeDimension{
		{FullTimestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Date: "2024-01-01", Year: 2024, Quarter: 1, Month: 1, MonthName: "January", Day: 1, DayOfWeekNumber: 0, DayOfWeekName: "Monday", WeekOfYear: 1},
		{FullTimestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), Date: "2024-01-01", Year: 2024, Quarter: 1, Month: 1, MonthName: "January", Day: 1, DayOfWeekNumber: 0, DayOfWeekName: "Monday", Hour: 12, WeekOfYear: 1},
		{FullTimestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Date: "2024-01-02", Year: 2024, Quarter: 1, Month: 1, MonthName: "January", Day: 2, DayOfWeekNumber: 1, DayOfWeekName: "Tuesday", WeekOfYear: 1},
	}
	require.NoError(t, wh.InsertTimeDimension(timeRows))

	marketRows := []models.MMarketDimension{
		{MarketDate: "2024-01-01", PriceOpen: decimal.NewFromInt(42000), PriceClose: decimal.NewFromInt(42500), VolumeUSD: decimal.NewFromInt(1000000), MarketCapUSD: decimal.NewFromInt(800000000)},
		{MarketDate: "2024-01-02", PriceOpen: decimal.NewFromInt(42500), PriceClose: decimal.NewFromInt(43000), VolumeUSD: decimal.NewFromInt(1200000), MarketCapUSD: decimal.NewFromInt(810000000)},
	}
	require.NoError(t, wh.InsertMarketDimension(marketRows))

	seen := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	walletRows := []models.MWalletDimension{
		{WalletAddress: "addr-one", FirstSeenTimestamp: &seen, TransactionCount: 5, TotalReceivedSatoshi: 100000000},
		{WalletAddress: "addr-two", TransactionCount: 2, TotalReceivedSatoshi: 50000000, IsReportedAbuse: true, AbuseCategory: "ransomware"},
	}
	require.NoError(t, wh.InsertWalletDimension(walletRows))

	factRows := []models.MTransactionFact{
		{TradeID: 1001, Side: "buy", TimeKey: 1, MarketDateKey: 1, WalletKey: 1, Price: decimal.NewFromInt(100), VolumeQuote: decimal.NewFromInt(1500), SizeBase: decimal.NewFromFloat(0.015)},
		{TradeID: 1002, Side: "sell", TimeKey: 2, MarketDateKey: 1, WalletKey: 2, Price: decimal.NewFromFloat(137.50), VolumeQuote: decimal.NewFromInt(1500), SizeBase: decimal.NewFromFloat(0.01)},
		{TradeID: 1003, Side: "buy", TimeKey: 3, MarketDateKey: 2, WalletKey: 1, Price: decimal.NewFromFloat(99.99), VolumeQuote: decimal.NewFromInt(250000), SizeBase: decimal.NewFromFloat(2.5)},
	}
	require.NoError(t, wh.InsertFacts(factRows))
}

// -----------------------------------------------------------------------------

func TestInitializeIdempotentSchema(t *testing.T) {
	wh := newTestWarehouse(t)
	first := schemaDump(t, wh)
	require.NotEmpty(t, first)

	// Re-initializing discards the store and rebuilds from the same DDL.
	require.NoError(t, wh.Initialize())
	second := schemaDump(t, wh)

	assert.Equal(t, first, second)

	// All six tables plus the eight indexes are present.
	for _, name := range []string{
		"DimTime", "DimMarket", "DimWallet", "FactTransactions", "TransactionAnalysis", "DailySummary",
		"idx_fact_tradeid", "idx_fact_timekey", "idx_fact_marketkey", "idx_fact_walletkey",
		"idx_fact_price", "idx_dimtime_date", "idx_dimmarket_date", "idx_dimwallet_address",
	} {
		assert.Contains(t, second, name)
	}
}

// -----------------------------------------------------------------------------

func TestKeyLookups(t *testing.T) {
	wh := newTestWarehouse(t)
	loadFixture(t, wh)

	timeKeys, err := wh.TimeKeysByDate()
	require.NoError(t, err)
	// Two rows share 2024-01-01; the lookup keeps the later surrogate key.
	assert.Equal(t, map[string]int64{"2024-01-01": 2, "2024-01-02": 3}, timeKeys)

	marketKeys, err := wh.MarketKeysByDate()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"2024-01-01": 1, "2024-01-02": 2}, marketKeys)

	walletKeys, err := wh.WalletKeys()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, walletKeys)
}

// -----------------------------------------------------------------------------

func TestInsertTimeDimensionKeepsSubSecondPrecision(t *testing.T) {
	wh := newTestWarehouse(t)

	rows := []models.MTimeDimension{{
		FullTimestamp: time.Date(2024, 1, 1, 0, 0, 0, 250_000_000, time.UTC),
		Date:          "2024-01-01",
		Year:          2024, Quarter: 1, Month: 1, MonthName: "January", Day: 1,
		DayOfWeekName: "Monday", WeekOfYear: 1,
	}}
	require.NoError(t, wh.InsertTimeDimension(rows))

	var stored string
	require.NoError(t, wh.DB.QueryRow("SELECT CAST(FullTimestamp AS TEXT) FROM DimTime").Scan(&stored))
	assert.Equal(t, "2024-01-01 00:00:00.25", stored)
}

// -----------------------------------------------------------------------------

func TestFactRowsRoundTrip(t *testing.T) {
	wh := newTestWarehouse(t)
	loadFixture(t, wh)

	facts, err := wh.FactRows()
	require.NoError(t, err)
	require.Len(t, facts, 3)

	assert.Equal(t, int64(1), facts[0].TransactionFactSK)
	assert.Equal(t, int64(1001), facts[0].TradeID)
	assert.Equal(t, "buy", facts[0].Side)
	assert.True(t, facts[0].Price.Equal(decimal.NewFromInt(100)), "got %s", facts[0].Price)
	assert.True(t, facts[1].Price.Equal(decimal.NewFromFloat(137.50)), "got %s", facts[1].Price)
	assert.True(t, facts[2].VolumeQuote.Equal(decimal.NewFromInt(250000)), "got %s", facts[2].VolumeQuote)
}

// -----------------------------------------------------------------------------

func TestBuildDailySummaryReconciles(t *testing.T) {
	wh := newTestWarehouse(t)
	loadFixture(t, wh)

	now := time.Now().UTC()
	scores := []models.MTransactionRiskScore{
		{TransactionFactSK: 1, IsSuspicious: true, AnomalyScore: 60, RiskLevel: "HIGH", AnalysisDate: now},
		{TransactionFactSK: 2, IsSuspicious: false, AnomalyScore: 10, RiskLevel: "LOW", AnalysisDate: now},
		{TransactionFactSK: 3, IsSuspicious: true, AnomalyScore: 80, RiskLevel: "CRITICAL", AnalysisDate: now},
	}
	require.NoError(t, wh.InsertRiskScores(scores))
	require.NoError(t, wh.BuildDailySummary())

	type summary struct {
		total, suspicious, highRisk int64
	}
	readSummary := func(date string) summary {
		var s summary
		err := wh.DB.QueryRow(`
			SELECT TotalTransactions, SuspiciousTransactions, HighRiskTransactions
			FROM DailySummary WHERE SummaryDate = ?
		`, date).Scan(&s.total, &s.suspicious, &s.highRisk)
		require.NoError(t, err)
		return s
	}

	// Facts 1 and 2 carry 2024-01-01 time keys, fact 3 is on 2024-01-02.
	assert.Equal(t, summary{total: 2, suspicious: 1, highRisk: 1}, readSummary("2024-01-01"))
	assert.Equal(t, summary{total: 1, suspicious: 1, highRisk: 1}, readSummary("2024-01-02"))

	// Summary dates come back in the same YYYY-MM-DD form the lookups use.
	summaries, err := wh.DailySummaries()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "2024-01-01", summaries[0].SummaryDate)
	assert.Equal(t, "2024-01-02", summaries[1].SummaryDate)

	// Summary partitions the facts disjointly and exhaustively.
	var summed int64
	require.NoError(t, wh.DB.QueryRow("SELECT SUM(TotalTransactions) FROM DailySummary").Scan(&summed))
	var factCount int64
	require.NoError(t, wh.DB.QueryRow("SELECT COUNT(*) FROM FactTransactions").Scan(&factCount))
	assert.Equal(t, factCount, summed)

	// Recomputing wholesale does not duplicate rows.
	require.NoError(t, wh.BuildDailySummary())
	var days int64
	require.NoError(t, wh.DB.QueryRow("SELECT COUNT(*) FROM DailySummary").Scan(&days))
	assert.Equal(t, int64(2), days)
}

// -----------------------------------------------------------------------------

func TestBuildDailySummaryUnscoredFacts(t *testing.T) {
	wh := newTestWarehouse(t)
	loadFixture(t, wh)

	// No risk scores at all: facts still aggregate, risk counts stay zero.
	require.NoError(t, wh.BuildDailySummary())

	var total, suspicious int64
	err := wh.DB.QueryRow(`
		SELECT TotalTransactions, SuspiciousTransactions FROM DailySummary WHERE SummaryDate = '2024-01-01'
	`).Scan(&total, &suspicious)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(0), suspicious)
}

// -----------------------------------------------------------------------------

func TestBuildDailySummaryGuardsOrphanFacts(t *testing.T) {
	wh := newTestWarehouse(t)
	loadFixture(t, wh)

	// A fact whose TimeKey resolves to nothing has no derivable date.
	orphan := []models.MTransactionFact{
		{TradeID: 9999, Side: "buy", TimeKey: 999, MarketDateKey: 1, WalletKey: 1,
			Price: decimal.NewFromInt(50), VolumeQuote: decimal.NewFromInt(10), SizeBase: decimal.NewFromFloat(0.001)},
	}
	require.NoError(t, wh.InsertFacts(orphan))

	err := wh.BuildDailySummary()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "derivable calendar date")
}

// -----------------------------------------------------------------------------

func TestReferentialCompleteness(t *testing.T) {
	wh := newTestWarehouse(t)
	loadFixture(t, wh)

	var dangling int64
	err := wh.DB.QueryRow(`
		SELECT COUNT(*)
		FROM FactTransactions ft
		LEFT JOIN DimTime dt ON ft.TimeKey = dt.TimeKey
		LEFT JOIN DimMarket dm ON ft.MarketDateKey = dm.MarketDateKey
		LEFT JOIN DimWallet dw ON ft.WalletKey = dw.WalletKey
		WHERE dt.TimeKey IS NULL OR dm.MarketDateKey IS NULL OR dw.WalletKey IS NULL
	`).Scan(&dangling)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dangling)
}

// -----------------------------------------------------------------------------

func TestCreateViews(t *testing.T) {
	wh := newTestWarehouse(t)
	loadFixture(t, wh)

	now := time.Now().UTC()
	require.NoError(t, wh.InsertRiskScores([]models.MTransactionRiskScore{
		{TransactionFactSK: 1, IsSuspicious: true, AnomalyScore: 60, RiskLevel: "HIGH", AnalysisDate: now},
		{TransactionFactSK: 2, IsSuspicious: false, AnomalyScore: 10, RiskLevel: "LOW", AnalysisDate: now},
		{TransactionFactSK: 3, IsSuspicious: true, AnomalyScore: 80, RiskLevel: "CRITICAL", AnalysisDate: now},
	}))
	require.NoError(t, wh.BuildDailySummary())
	require.NoError(t, wh.CreateViews())

	// Daily summary view exposes the suspicious-rate percentage.
	var rate float64
	err := wh.DB.QueryRow(`
		SELECT SuspiciousRate FROM vw_DailySummary WHERE SummaryDate = '2024-01-01'
	`).Scan(&rate)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rate, 0.001)

	// Transaction analysis view joins fact, time, wallet and score.
	var side, walletAddr, level string
	err = wh.DB.QueryRow(`
		SELECT Side, WalletAddress, RiskLevel FROM vw_TransactionAnalysis WHERE TradeID = 1001
	`).Scan(&side, &walletAddr, &level)
	require.NoError(t, err)
	assert.Equal(t, "buy", side)
	assert.Equal(t, "addr-one", walletAddr)
	assert.Equal(t, "HIGH", level)

	// Market performance view computes the price delta.
	var change float64
	err = wh.DB.QueryRow(`
		SELECT PriceChange FROM vw_MarketPerformance WHERE MarketDate = '2024-01-01'
	`).Scan(&change)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, change, 0.001)

	// Wallet risk view aggregates per wallet.
	var walletTx int64
	err = wh.DB.QueryRow(`
		SELECT SuspiciousTransactions FROM vw_WalletRisk WHERE WalletAddress = 'addr-one'
	`).Scan(&walletTx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), walletTx)
}

// -----------------------------------------------------------------------------

func TestTableCountsAndRiskDistribution(t *testing.T) {
	wh := newTestWarehouse(t)
	loadFixture(t, wh)

	now := time.Now().UTC()
	require.NoError(t, wh.InsertRiskScores([]models.MTransactionRiskScore{
		{TransactionFactSK: 1, IsSuspicious: true, AnomalyScore: 60, RiskLevel: "HIGH", AnalysisDate: now},
		{TransactionFactSK: 2, IsSuspicious: false, AnomalyScore: 10, RiskLevel: "LOW", AnalysisDate: now},
		{TransactionFactSK: 3, IsSuspicious: true, AnomalyScore: 80, RiskLevel: "CRITICAL", AnalysisDate: now},
	}))

	counts, err := wh.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["DimTime"])
	assert.Equal(t, int64(2), counts["DimMarket"])
	assert.Equal(t, int64(2), counts["DimWallet"])
	assert.Equal(t, int64(3), counts["FactTransactions"])
	assert.Equal(t, int64(3), counts["TransactionAnalysis"])
	assert.Equal(t, int64(0), counts["DailySummary"])

	dist, err := wh.RiskLevelDistribution()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"HIGH": 1, "LOW": 1, "CRITICAL": 1}, dist)
}

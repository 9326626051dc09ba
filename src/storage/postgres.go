package storage

import (
	"database/sql"
	"fmt"

	"bitcoin-dss/src/helpers"
	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"
	"bitcoin-dss/src/utils"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresWarehouse implements the warehouse contract on PostgreSQL. The whole
// warehouse lives in a dedicated schema so a re-run can discard it with one
// DROP SCHEMA CASCADE.
type PostgresWarehouse struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresWarehouse(cfg *models.MConfig, log *logger.Logger) (*PostgresWarehouse, error) {
	return &PostgresWarehouse{
		Config: cfg,
		Schema: "bitcoin_dss",
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

var postgresSchema = []string{
	`CREATE TABLE DimTime (
		TimeKey SERIAL PRIMARY KEY,
		FullTimestamp TIMESTAMP NOT NULL,
		Date DATE NOT NULL,
		Year INTEGER,
		Quarter INTEGER,
		Month INTEGER,
		MonthName VARCHAR(20),
		Day INTEGER,
		DayOfWeekNumber INTEGER,
		DayOfWeekName VARCHAR(20),
		Hour INTEGER,
		Minute INTEGER,
		Second INTEGER,
		IsWeekend BOOLEAN,
		WeekOfYear INTEGER
	)`,
	`CREATE TABLE DimMarket (
		MarketDateKey SERIAL PRIMARY KEY,
		MarketDate DATE NOT NULL,
		btc_usd_price_open NUMERIC(15,2),
		btc_usd_price_close NUMERIC(15,2),
		volume_usd NUMERIC(20,2),
		market_cap_usd NUMERIC(20,2)
	)`,
	`CREATE TABLE DimWallet (
		WalletKey SERIAL PRIMARY KEY,
		WalletAddress VARCHAR(100) NOT NULL,
		FirstSeenTimestamp TIMESTAMP,
		LastSeenTimestamp TIMESTAMP,
		TransactionCount BIGINT,
		TotalReceivedSatoshi BIGINT,
		TotalSentSatoshi BIGINT,
		FinalBalanceSatoshi BIGINT,
		LabelSource VARCHAR(100),
		EntityTag VARCHAR(100),
		EntityType VARCHAR(100),
		IsReportedAbuse BOOLEAN,
		AbuseCategory VARCHAR(100)
	)`,
	`CREATE TABLE FactTransactions (
		TransactionFactSK SERIAL PRIMARY KEY,
		TradeID BIGINT NOT NULL,
		Side VARCHAR(10),
		TimeKey INTEGER,
		MarketDateKey INTEGER,
		WalletKey INTEGER,
		Price NUMERIC(15,2),
		VolumeQuote NUMERIC(20,8),
		SizeBase NUMERIC(20,8)
	)`,
	`CREATE TABLE TransactionAnalysis (
		AnalysisKey SERIAL PRIMARY KEY,
		TransactionFactSK INTEGER,
		IsSuspicious BOOLEAN DEFAULT FALSE,
		AnomalyScore NUMERIC(5,2) DEFAULT 0,
		RiskLevel VARCHAR(20) DEFAULT 'LOW',
		AnalysisDate TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE DailySummary (
		SummaryKey SERIAL PRIMARY KEY,
		SummaryDate DATE NOT NULL UNIQUE,
		TotalTransactions BIGINT,
		TotalVolumeUSD NUMERIC(20,2),
		AvgPrice NUMERIC(15,2),
		MaxPrice NUMERIC(15,2),
		MinPrice NUMERIC(15,2),
		SuspiciousTransactions BIGINT,
		HighRiskTransactions BIGINT
	)`,
	"CREATE INDEX idx_fact_tradeid ON FactTransactions(TradeID)",
	"CREATE INDEX idx_fact_timekey ON FactTransactions(TimeKey)",
	"CREATE INDEX idx_fact_marketkey ON FactTransactions(MarketDateKey)",
	"CREATE INDEX idx_fact_walletkey ON FactTransactions(WalletKey)",
	"CREATE INDEX idx_fact_price ON FactTransactions(Price)",
	"CREATE INDEX idx_dimtime_date ON DimTime(Date)",
	"CREATE INDEX idx_dimmarket_date ON DimMarket(MarketDate)",
	"CREATE INDEX idx_dimwallet_address ON DimWallet(WalletAddress)",
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewSchemaCreationError("failed to open warehouse", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewSchemaCreationError("failed to ping warehouse", err)
	}

	d.DB = db

	// Discard any existing warehouse for a clean start
	if _, err := d.DB.Exec(fmt.Sprintf(`DROP SCHEMA IF EXISTS "%s" CASCADE`, d.Schema)); err != nil {
		return helpers.NewSchemaCreationError("failed to discard existing warehouse schema", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA "%s"`, d.Schema)); err != nil {
		return helpers.NewSchemaCreationError("failed to create warehouse schema", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`SET search_path TO "%s"`, d.Schema)); err != nil {
		return helpers.NewSchemaCreationError("failed to set search_path", err)
	}

	for i, stmt := range postgresSchema {
		if _, err := d.DB.Exec(stmt); err != nil {
			return helpers.NewSchemaCreationError(
				fmt.Sprintf("schema statement %d/%d failed", i+1, len(postgresSchema)), err)
		}
	}

	d.Logger.Info("PostgresWarehouse initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) InsertTimeDimension(rows []models.MTimeDimension) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO DimTime (FullTimestamp, Date, Year, Quarter, Month, MonthName, Day,
			DayOfWeekNumber, DayOfWeekName, Hour, Minute, Second, IsWeekend, WeekOfYear)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(r.FullTimestamp.Format(utils.TimestampMicroLayout), r.Date, r.Year,
			r.Quarter, r.Month, r.MonthName, r.Day, r.DayOfWeekNumber, r.DayOfWeekName,
			r.Hour, r.Minute, r.Second, r.IsWeekend, r.WeekOfYear)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) InsertMarketDimension(rows []models.MMarketDimension) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO DimMarket (MarketDate, btc_usd_price_open, btc_usd_price_close, volume_usd, market_cap_usd)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(r.MarketDate, r.PriceOpen, r.PriceClose, r.VolumeUSD, r.MarketCapUSD)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) InsertWalletDimension(rows []models.MWalletDimension) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO DimWallet (WalletAddress, FirstSeenTimestamp, LastSeenTimestamp,
			TransactionCount, TotalReceivedSatoshi, TotalSentSatoshi, FinalBalanceSatoshi,
			LabelSource, EntityTag, EntityType, IsReportedAbuse, AbuseCategory)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(r.WalletAddress, nullableTimestamp(r.FirstSeenTimestamp),
			nullableTimestamp(r.LastSeenTimestamp), r.TransactionCount, r.TotalReceivedSatoshi,
			r.TotalSentSatoshi, r.FinalBalanceSatoshi, r.LabelSource, r.EntityTag,
			r.EntityType, r.IsReportedAbuse, r.AbuseCategory)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) InsertFacts(rows []models.MTransactionFact) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO FactTransactions (TradeID, Side, TimeKey, MarketDateKey, WalletKey, Price, VolumeQuote, SizeBase)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(r.TradeID, r.Side, r.TimeKey, r.MarketDateKey, r.WalletKey,
			r.Price, r.VolumeQuote, r.SizeBase)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) InsertRiskScores(rows []models.MTransactionRiskScore) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO TransactionAnalysis (TransactionFactSK, IsSuspicious, AnomalyScore, RiskLevel, AnalysisDate)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(r.TransactionFactSK, r.IsSuspicious, r.AnomalyScore,
			r.RiskLevel, r.AnalysisDate.Format(utils.TimestampMicroLayout))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) TimeKeysByDate() (map[string]int64, error) {
	return d.keysByDate("SELECT TimeKey, to_char(Date, 'YYYY-MM-DD') FROM DimTime")
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) MarketKeysByDate() (map[string]int64, error) {
	return d.keysByDate("SELECT MarketDateKey, to_char(MarketDate, 'YYYY-MM-DD') FROM DimMarket")
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) keysByDate(query string) (map[string]int64, error) {
	rows, err := d.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lookup := make(map[string]int64)
	for rows.Next() {
		var key int64
		var date string
		if err := rows.Scan(&key, &date); err != nil {
			return nil, err
		}
		lookup[date] = key
	}
	return lookup, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) WalletKeys() ([]int64, error) {
	rows, err := d.DB.Query("SELECT WalletKey FROM DimWallet")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []int64
	for rows.Next() {
		var key int64
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) FactRows() ([]models.MTransactionFact, error) {
	rows, err := d.DB.Query(`
		SELECT TransactionFactSK, TradeID, Side, TimeKey, MarketDateKey, WalletKey, Price, VolumeQuote, SizeBase
		FROM FactTransactions
		ORDER BY TransactionFactSK
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []models.MTransactionFact
	for rows.Next() {
		var f models.MTransactionFact
		if err := rows.Scan(&f.TransactionFactSK, &f.TradeID, &f.Side, &f.TimeKey,
			&f.MarketDateKey, &f.WalletKey, &f.Price, &f.VolumeQuote, &f.SizeBase); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) BuildDailySummary() error {
	var orphans int64
	err := d.DB.QueryRow(`
		SELECT COUNT(*)
		FROM FactTransactions ft
		LEFT JOIN DimTime dt ON ft.TimeKey = dt.TimeKey
		WHERE dt.TimeKey IS NULL
	`).Scan(&orphans)
	if err != nil {
		return err
	}
	if orphans > 0 {
		return fmt.Errorf("%d fact rows have no derivable calendar date", orphans)
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM DailySummary"); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO DailySummary (
			SummaryDate, TotalTransactions, TotalVolumeUSD, AvgPrice,
			MaxPrice, MinPrice, SuspiciousTransactions, HighRiskTransactions
		)
		SELECT
			dt.Date as SummaryDate,
			COUNT(*) as TotalTransactions,
			SUM(ft.VolumeQuote) as TotalVolumeUSD,
			AVG(ft.Price) as AvgPrice,
			MAX(ft.Price) as MaxPrice,
			MIN(ft.Price) as MinPrice,
			SUM(CASE WHEN ta.IsSuspicious THEN 1 ELSE 0 END) as SuspiciousTransactions,
			SUM(CASE WHEN ta.RiskLevel IN ('HIGH', 'CRITICAL') THEN 1 ELSE 0 END) as HighRiskTransactions
		FROM FactTransactions ft
		JOIN DimTime dt ON ft.TimeKey = dt.TimeKey
		LEFT JOIN TransactionAnalysis ta ON ft.TransactionFactSK = ta.TransactionFactSK
		GROUP BY dt.Date
	`)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// Postgres renditions of the analytical views. Identical output shape to the
// SQLite versions; boolean predicates differ.
var postgresViews = []string{
	`CREATE VIEW vw_TransactionAnalysis AS
	SELECT
		ft.TradeID,
		ft.Side,
		dt.Date,
		dt.Hour,
		dt.DayOfWeekName,
		ft.Price,
		ft.VolumeQuote,
		ft.SizeBase,
		dw.WalletAddress,
		dw.EntityType,
		ta.IsSuspicious,
		ta.AnomalyScore,
		ta.RiskLevel
	FROM FactTransactions ft
	LEFT JOIN DimTime dt ON ft.TimeKey = dt.TimeKey
	LEFT JOIN DimWallet dw ON ft.WalletKey = dw.WalletKey
	LEFT JOIN TransactionAnalysis ta ON ft.TransactionFactSK = ta.TransactionFactSK`,

	`CREATE VIEW vw_DailySummary AS
	SELECT
		SummaryDate,
		TotalTransactions,
		ROUND(TotalVolumeUSD, 2) as TotalVolumeUSD,
		ROUND(AvgPrice, 2) as AvgPrice,
		ROUND(MaxPrice, 2) as MaxPrice,
		ROUND(MinPrice, 2) as MinPrice,
		SuspiciousTransactions,
		HighRiskTransactions,
		ROUND(SuspiciousTransactions * 100.0 / TotalTransactions, 2) as SuspiciousRate
	FROM DailySummary
	ORDER BY SummaryDate DESC`,

	`CREATE VIEW vw_WalletRisk AS
	SELECT
		dw.WalletAddress,
		dw.EntityType,
		dw.IsReportedAbuse,
		dw.AbuseCategory,
		dw.TransactionCount,
		ROUND(dw.TotalReceivedSatoshi / 100000000.0, 8) as TotalReceivedBTC,
		COUNT(ft.TransactionFactSK) as RecentTransactions,
		AVG(ta.AnomalyScore) as AvgAnomalyScore,
		SUM(CASE WHEN ta.IsSuspicious THEN 1 ELSE 0 END) as SuspiciousTransactions
	FROM DimWallet dw
	LEFT JOIN FactTransactions ft ON dw.WalletKey = ft.WalletKey
	LEFT JOIN TransactionAnalysis ta ON ft.TransactionFactSK = ta.TransactionFactSK
	GROUP BY dw.WalletKey, dw.WalletAddress, dw.EntityType, dw.IsReportedAbuse,
		dw.AbuseCategory, dw.TransactionCount, dw.TotalReceivedSatoshi
	ORDER BY AvgAnomalyScore DESC`,

	`CREATE VIEW vw_MarketPerformance AS
	SELECT
		dm.MarketDate,
		dm.btc_usd_price_open,
		dm.btc_usd_price_close,
		ROUND(dm.btc_usd_price_close - dm.btc_usd_price_open, 2) as PriceChange,
		ROUND((dm.btc_usd_price_close - dm.btc_usd_price_open) * 100.0 / dm.btc_usd_price_open, 2) as PriceChangePercent,
		dm.volume_usd,
		COUNT(ft.TransactionFactSK) as TransactionCount
	FROM DimMarket dm
	LEFT JOIN FactTransactions ft ON dm.MarketDateKey = ft.MarketDateKey
	GROUP BY dm.MarketDateKey, dm.MarketDate, dm.btc_usd_price_open,
		dm.btc_usd_price_close, dm.volume_usd
	ORDER BY dm.MarketDate DESC`,
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) CreateViews() error {
	for i, view := range postgresViews {
		if _, err := d.DB.Exec(view); err != nil {
			return helpers.NewSchemaCreationError(
				fmt.Sprintf("view %d/%d creation failed", i+1, len(postgresViews)), err)
		}
	}
	d.Logger.Info("Created %d analytical views", len(postgresViews))
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) TableCounts() (map[string]int64, error) {
	counts := make(map[string]int64, len(warehouseTables))
	for _, table := range warehouseTables {
		var n int64
		if err := d.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) DailySummaries() ([]models.MDailySummary, error) {
	rows, err := d.DB.Query(`
		SELECT SummaryKey, to_char(SummaryDate, 'YYYY-MM-DD'), TotalTransactions, TotalVolumeUSD,
			AvgPrice, MaxPrice, MinPrice, SuspiciousTransactions, HighRiskTransactions
		FROM DailySummary
		ORDER BY SummaryDate
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.MDailySummary
	for rows.Next() {
		var s models.MDailySummary
		if err := rows.Scan(&s.SummaryKey, &s.SummaryDate, &s.TotalTransactions,
			&s.TotalVolumeUSD, &s.AvgPrice, &s.MaxPrice, &s.MinPrice,
			&s.SuspiciousTransactions, &s.HighRiskTransactions); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) RiskLevelDistribution() (map[string]int64, error) {
	rows, err := d.DB.Query("SELECT RiskLevel, COUNT(*) FROM TransactionAnalysis GROUP BY RiskLevel")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int64)
	for rows.Next() {
		var level string
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		dist[level] = n
	}
	return dist, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresWarehouse) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

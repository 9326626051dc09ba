package storage

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"bitcoin-dss/src/helpers"
	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"
	"bitcoin-dss/src/utils"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteWarehouse struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteWarehouse(cfg *models.MConfig, log *logger.Logger) (*SQLiteWarehouse, error) {
	return &SQLiteWarehouse{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

// Fixed DDL sequence: six tables plus supporting indexes. Statement order
// matters only for readability; there is no rollback of a partial apply.
var sqliteSchema = []string{
	`CREATE TABLE DimTime (
		TimeKey INTEGER PRIMARY KEY AUTOINCREMENT,
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
		MarketDateKey INTEGER PRIMARY KEY AUTOINCREMENT,
		MarketDate DATE NOT NULL,
		btc_usd_price_open DECIMAL(15,2),
		btc_usd_price_close DECIMAL(15,2),
		volume_usd DECIMAL(20,2),
		market_cap_usd DECIMAL(20,2)
	)`,
	`CREATE TABLE DimWallet (
		WalletKey INTEGER PRIMARY KEY AUTOINCREMENT,
		WalletAddress VARCHAR(100) NOT NULL,
		FirstSeenTimestamp TIMESTAMP,
		LastSeenTimestamp TIMESTAMP,
		TransactionCount INTEGER,
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
		TransactionFactSK INTEGER PRIMARY KEY AUTOINCREMENT,
		TradeID BIGINT NOT NULL,
		Side VARCHAR(10),
		TimeKey INTEGER,
		MarketDateKey INTEGER,
		WalletKey INTEGER,
		Price DECIMAL(15,2),
		VolumeQuote DECIMAL(20,8),
		SizeBase DECIMAL(20,8),
		FOREIGN KEY (TimeKey) REFERENCES DimTime(TimeKey),
		FOREIGN KEY (MarketDateKey) REFERENCES DimMarket(MarketDateKey),
		FOREIGN KEY (WalletKey) REFERENCES DimWallet(WalletKey)
	)`,
	`CREATE TABLE TransactionAnalysis (
		AnalysisKey INTEGER PRIMARY KEY AUTOINCREMENT,
		TransactionFactSK INTEGER,
		IsSuspicious BOOLEAN DEFAULT 0,
		AnomalyScore DECIMAL(5,2) DEFAULT 0,
		RiskLevel VARCHAR(20) DEFAULT 'LOW',
		AnalysisDate TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (TransactionFactSK) REFERENCES FactTransactions(TransactionFactSK)
	)`,
	`CREATE TABLE DailySummary (
		SummaryKey INTEGER PRIMARY KEY AUTOINCREMENT,
		SummaryDate DATE NOT NULL UNIQUE,
		TotalTransactions INTEGER,
		TotalVolumeUSD DECIMAL(20,2),
		AvgPrice DECIMAL(15,2),
		MaxPrice DECIMAL(15,2),
		MinPrice DECIMAL(15,2),
		SuspiciousTransactions INTEGER,
		HighRiskTransactions INTEGER
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

func (d *SQLiteWarehouse) Initialize() error {
	dsn := d.Config.Storage.DBPath

	if d.DB != nil {
		d.DB.Close()
		d.DB = nil
	}

	// Discard any existing warehouse for a clean start
	if _, err := os.Stat(dsn); err == nil {
		if err := os.Remove(dsn); err != nil {
			return helpers.NewSchemaCreationError("failed to discard existing warehouse", err)
		}
		// WAL sidecar files belong to the discarded store
		os.Remove(dsn + "-wal")
		os.Remove(dsn + "-shm")
		d.Logger.Info("Removed existing warehouse at %s", dsn)
	}

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewSchemaCreationError("failed to open warehouse", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewSchemaCreationError("failed to ping warehouse", err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	for i, stmt := range sqliteSchema {
		if _, err := d.DB.Exec(stmt); err != nil {
			return helpers.NewSchemaCreationError(
				fmt.Sprintf("schema statement %d/%d failed", i+1, len(sqliteSchema)), err)
		}
	}

	d.Logger.Info("Warehouse schema created (%d statements)", len(sqliteSchema))
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteWarehouse) InsertTimeDimension(rows []models.MTimeDimension) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

func (d *SQLiteWarehouse) InsertMarketDimension(rows []models.MMarketDimension) error {
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
		VALUES (?, ?, ?, ?, ?)
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

func (d *SQLiteWarehouse) InsertWalletDimension(rows []models.MWalletDimension) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

func (d *SQLiteWarehouse) InsertFacts(rows []models.MTransactionFact) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
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

func (d *SQLiteWarehouse) InsertRiskScores(rows []models.MTransactionRiskScore) error {
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
		VALUES (?, ?, ?, ?, ?)
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

// The DATE-declared columns must be read back through strftime: the driver
// maps a bare DATE column to time.Time, and the lookup keys have to stay in
// the same YYYY-MM-DD text form the fact loader derives from timestamps.
func (d *SQLiteWarehouse) TimeKeysByDate() (map[string]int64, error) {
	return d.keysByDate("SELECT TimeKey, strftime('%Y-%m-%d', Date) FROM DimTime")
}

// -----------------------------------------------------------------------------

func (d *SQLiteWarehouse) MarketKeysByDate() (map[string]int64, error) {
	return d.keysByDate("SELECT MarketDateKey, strftime('%Y-%m-%d', MarketDate) FROM DimMarket")
}

// -----------------------------------------------------------------------------

func (d *SQLiteWarehouse) keysByDate(query string) (map[string]int64, error) {
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

func (d *SQLiteWarehouse) WalletKeys() ([]int64, error) {
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

func (d *SQLiteWarehouse) FactRows() ([]models.MTransactionFact, error) {
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

// BuildDailySummary recomputes DailySummary wholesale: facts joined to
// DimTime for the calendar date, left-joined to TransactionAnalysis so an
// unscored fact still counts toward volume and price aggregates.
func (d *SQLiteWarehouse) BuildDailySummary() error {
	// Guard: every fact must reach a calendar date through its TimeKey.
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
			SUM(CASE WHEN ta.IsSuspicious = 1 THEN 1 ELSE 0 END) as SuspiciousTransactions,
			SUM(CASE WHEN ta.RiskLevel IN ('HIGH', 'CRITICAL') THEN 1 ELSE 0 END) as HighRiskTransactions
		FROM FactTransactions ft
		JOIN DimTime dt ON ft.TimeKey = dt.TimeKey
		LEFT JOIN TransactionAnalysis ta ON ft.TransactionFactSK = ta.TransactionFactSK
		GROUP BY dt.Date
		ORDER BY dt.Date
	`)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// Read-only analytical views consumed by the presentation layer.
var warehouseViews = []string{
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
		SUM(CASE WHEN ta.IsSuspicious = 1 THEN 1 ELSE 0 END) as SuspiciousTransactions
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

func (d *SQLiteWarehouse) CreateViews() error {
	for i, view := range warehouseViews {
		if _, err := d.DB.Exec(view); err != nil {
			return helpers.NewSchemaCreationError(
				fmt.Sprintf("view %d/%d creation failed", i+1, len(warehouseViews)), err)
		}
	}
	d.Logger.Info("Created %d analytical views", len(warehouseViews))
	return nil
}

// -----------------------------------------------------------------------------

var warehouseTables = []string{
	"DimTime", "DimMarket", "DimWallet", "FactTransactions", "TransactionAnalysis", "DailySummary",
}

func (d *SQLiteWarehouse) TableCounts() (map[string]int64, error) {
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

func (d *SQLiteWarehouse) DailySummaries() ([]models.MDailySummary, error) {
	rows, err := d.DB.Query(`
		SELECT SummaryKey, strftime('%Y-%m-%d', SummaryDate), TotalTransactions, TotalVolumeUSD,
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

func (d *SQLiteWarehouse) RiskLevelDistribution() (map[string]int64, error) {
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

func (d *SQLiteWarehouse) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// -----------------------------------------------------------------------------

// nullableTimestamp formats an optional timestamp, keeping NULL for absent
// values instead of a zero time.
func nullableTimestamp(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(utils.TimestampMicroLayout)
}

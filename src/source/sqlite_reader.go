package source

import (
	"database/sql"
	"fmt"

	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteSourceReader reads the four upstream source stores. Every store is a
// standalone SQLite file opened read-only for the duration of one read; the
// batch never mutates a source.
type SQLiteSourceReader struct {
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteSourceReader(cfg *models.MConfig, log *logger.Logger) *SQLiteSourceReader {
	return &SQLiteSourceReader{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (s *SQLiteSourceReader) open(cfg models.MSourceStoreConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", cfg.DBPath))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// limitClause bounds a source read; a zero cap reads the whole table.
func limitClause(maxRows int) string {
	if maxRows > 0 {
		return fmt.Sprintf(" LIMIT %d", maxRows)
	}
	return ""
}

// -----------------------------------------------------------------------------

func (s *SQLiteSourceReader) ReadTransactions() ([]models.MSourceTransaction, error) {
	cfg := s.Config.Sources.Transactions
	db, err := s.open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction source '%s': %w", cfg.DBPath, err)
	}
	defer db.Close()

	query := fmt.Sprintf(
		`SELECT trade_id, side, timestamp, price, "volume(quote)", "size(base)" FROM %s%s`,
		cfg.Table, limitClause(cfg.MaxRows))
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction source: %w", err)
	}
	defer rows.Close()

	var out []models.MSourceTransaction
	for rows.Next() {
		var r models.MSourceTransaction
		if err := rows.Scan(&r.TradeID, &r.Side, &r.TimestampMs, &r.Price, &r.VolumeQuote, &r.SizeBase); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLiteSourceReader) ReadTimeRecords() ([]models.MSourceTimeRecord, error) {
	cfg := s.Config.Sources.Time
	db, err := s.open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open time source '%s': %w", cfg.DBPath, err)
	}
	defer db.Close()

	query := fmt.Sprintf(
		"SELECT timestamp, year, month, day, hour, weekday FROM %s%s",
		cfg.Table, limitClause(cfg.MaxRows))
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to read time source: %w", err)
	}
	defer rows.Close()

	var out []models.MSourceTimeRecord
	for rows.Next() {
		var r models.MSourceTimeRecord
		if err := rows.Scan(&r.Timestamp, &r.Year, &r.Month, &r.Day, &r.Hour, &r.Weekday); err != nil {
			return nil, fmt.Errorf("failed to scan time row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLiteSourceReader) ReadMarketRecords() ([]models.MSourceMarketRecord, error) {
	cfg := s.Config.Sources.Market
	db, err := s.open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open market source '%s': %w", cfg.DBPath, err)
	}
	defer db.Close()

	query := fmt.Sprintf(
		"SELECT date, btc_usd_price_open, btc_usd_price_close, volume_usd, market_cap_usd FROM %s%s",
		cfg.Table, limitClause(cfg.MaxRows))
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to read market source: %w", err)
	}
	defer rows.Close()

	var out []models.MSourceMarketRecord
	for rows.Next() {
		var r models.MSourceMarketRecord
		if err := rows.Scan(&r.Date, &r.PriceOpen, &r.PriceClose, &r.VolumeUSD, &r.MarketCapUSD); err != nil {
			return nil, fmt.Errorf("failed to scan market row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLiteSourceReader) ReadWalletRecords() ([]models.MSourceWalletRecord, error) {
	cfg := s.Config.Sources.Wallet
	db, err := s.open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet source '%s': %w", cfg.DBPath, err)
	}
	defer db.Close()

	query := fmt.Sprintf(`
		SELECT wallet_address, first_seen_timestamp, last_seen_timestamp, transaction_count,
			total_received_satoshi, total_sent_satoshi, final_balance_satoshi,
			label_source, entity_tag, entity_type, is_reported_abuse, abuse_category
		FROM %s%s`, cfg.Table, limitClause(cfg.MaxRows))
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet source: %w", err)
	}
	defer rows.Close()

	var out []models.MSourceWalletRecord
	for rows.Next() {
		var r models.MSourceWalletRecord
		var firstSeen, lastSeen, labelSource, entityTag, entityType, abuseCategory sql.NullString
		err := rows.Scan(&r.WalletAddress, &firstSeen, &lastSeen, &r.TransactionCount,
			&r.TotalReceivedSatoshi, &r.TotalSentSatoshi, &r.FinalBalanceSatoshi,
			&labelSource, &entityTag, &entityType, &r.IsReportedAbuse, &abuseCategory)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet row: %w", err)
		}
		r.FirstSeenTimestamp = firstSeen.String
		r.LastSeenTimestamp = lastSeen.String
		r.LabelSource = labelSource.String
		r.EntityTag = entityTag.String
		r.EntityType = entityType.String
		r.AbuseCategory = abuseCategory.String
		out = append(out, r)
	}
	return out, rows.Err()
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// MTimeDimension represents one DimTime row. One row per distinct source
// timestamp; Date is always the calendar date of FullTimestamp (UTC).
type MTimeDimension struct {
	TimeKey         int64     `json:"time_key"`
	FullTimestamp   time.Time `json:"full_timestamp"`
	Date            string    `json:"date"` // YYYY-MM-DD
	Year            int       `json:"year"`
	Quarter         int       `json:"quarter"`
	Month           int       `json:"month"`
	MonthName       string    `json:"month_name"`
	Day             int       `json:"day"`
	DayOfWeekNumber int       `json:"day_of_week_number"` // Monday=0 .. Sunday=6
	DayOfWeekName   string    `json:"day_of_week_name"`
	Hour            int       `json:"hour"`
	Minute          int       `json:"minute"`
	Second          int       `json:"second"`
	IsWeekend       bool      `json:"is_weekend"`
	WeekOfYear      int       `json:"week_of_year"`
}

// -----------------------------------------------------------------------------

// MMarketDimension represents one DimMarket row (one per market calendar date).
type MMarketDimension struct {
	MarketDateKey int64           `json:"market_date_key"`
	MarketDate    string          `json:"market_date"` // YYYY-MM-DD
	PriceOpen     decimal.Decimal `json:"btc_usd_price_open"`
	PriceClose    decimal.Decimal `json:"btc_usd_price_close"`
	VolumeUSD     decimal.Decimal `json:"volume_usd"`
	MarketCapUSD  decimal.Decimal `json:"market_cap_usd"`
}

// -----------------------------------------------------------------------------

// MWalletDimension represents one DimWallet row. Seen-timestamps are nil when
// the source value could not be parsed.
type MWalletDimension struct {
	WalletKey            int64      `json:"wallet_key"`
	WalletAddress        string     `json:"wallet_address"`
	FirstSeenTimestamp   *time.Time `json:"first_seen_timestamp"`
	LastSeenTimestamp    *time.Time `json:"last_seen_timestamp"`
	TransactionCount     int64      `json:"transaction_count"`
	TotalReceivedSatoshi int64      `json:"total_received_satoshi"`
	TotalSentSatoshi     int64      `json:"total_sent_satoshi"`
	FinalBalanceSatoshi  int64      `json:"final_balance_satoshi"`
	LabelSource          string     `json:"label_source"`
	EntityTag            string     `json:"entity_tag"`
	EntityType           string     `json:"entity_type"`
	IsReportedAbuse      bool       `json:"is_reported_abuse"`
	AbuseCategory        string     `json:"abuse_category"`
}

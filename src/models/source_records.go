package models

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------
// Raw records as read from the upstream source stores, before any schema
// reconciliation. Field names mirror the source columns, not the warehouse.
// -----------------------------------------------------------------------------

// MSourceTransaction is one row of the transactional source store.
type MSourceTransaction struct {
	TradeID     int64           `json:"trade_id"`
	Side        string          `json:"side"`
	TimestampMs int64           `json:"timestamp"` // milliseconds since epoch
	Price       decimal.Decimal `json:"price"`
	VolumeQuote decimal.Decimal `json:"volume_quote"`
	SizeBase    decimal.Decimal `json:"size_base"`
}

// -----------------------------------------------------------------------------

// MSourceTimeRecord is one row of the temporal source store. The decomposed
// fields may disagree with Timestamp; the loader decides which wins per field.
type MSourceTimeRecord struct {
	Timestamp string `json:"timestamp"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	Weekday   string `json:"weekday"`
}

// -----------------------------------------------------------------------------

// MSourceMarketRecord is one row of the market source store.
type MSourceMarketRecord struct {
	Date         string          `json:"date"`
	PriceOpen    decimal.Decimal `json:"btc_usd_price_open"`
	PriceClose   decimal.Decimal `json:"btc_usd_price_close"`
	VolumeUSD    decimal.Decimal `json:"volume_usd"`
	MarketCapUSD decimal.Decimal `json:"market_cap_usd"`
}

// -----------------------------------------------------------------------------

// MSourceWalletRecord is one row of the wallet source store. Timestamps stay
// raw strings here; parsing is permissive and happens in the loader.
type MSourceWalletRecord struct {
	WalletAddress        string `json:"wallet_address"`
	FirstSeenTimestamp   string `json:"first_seen_timestamp"`
	LastSeenTimestamp    string `json:"last_seen_timestamp"`
	TransactionCount     int64  `json:"transaction_count"`
	TotalReceivedSatoshi int64  `json:"total_received_satoshi"`
	TotalSentSatoshi     int64  `json:"total_sent_satoshi"`
	FinalBalanceSatoshi  int64  `json:"final_balance_satoshi"`
	LabelSource          string `json:"label_source"`
	EntityTag            string `json:"entity_tag"`
	EntityType           string `json:"entity_type"`
	IsReportedAbuse      bool   `json:"is_reported_abuse"`
	AbuseCategory        string `json:"abuse_category"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// MTransactionFact represents one FactTransactions row. Foreign keys always
// resolve to an existing dimension row, falling back to key 1 when the
// transaction's date has no dimension match.
type MTransactionFact struct {
	TransactionFactSK int64           `json:"transaction_fact_sk"`
	TradeID           int64           `json:"trade_id"`
	Side              string          `json:"side"`
	TimeKey           int64           `json:"time_key"`
	MarketDateKey     int64           `json:"market_date_key"`
	WalletKey         int64           `json:"wallet_key"`
	Price             decimal.Decimal `json:"price"`
	VolumeQuote       decimal.Decimal `json:"volume_quote"`
	SizeBase          decimal.Decimal `json:"size_base"`
}

// -----------------------------------------------------------------------------

// MTransactionRiskScore represents one TransactionAnalysis row (1:1 with facts).
type MTransactionRiskScore struct {
	AnalysisKey       int64     `json:"analysis_key"`
	TransactionFactSK int64     `json:"transaction_fact_sk"`
	IsSuspicious      bool      `json:"is_suspicious"`
	AnomalyScore      float64   `json:"anomaly_score"` // [0,100]
	RiskLevel         string    `json:"risk_level"`
	AnalysisDate      time.Time `json:"analysis_date"`
}

// -----------------------------------------------------------------------------

// MDailySummary represents one DailySummary row (one per fact calendar date).
type MDailySummary struct {
	SummaryKey             int64           `json:"summary_key"`
	SummaryDate            string          `json:"summary_date"` // YYYY-MM-DD
	TotalTransactions      int64           `json:"total_transactions"`
	TotalVolumeUSD         decimal.Decimal `json:"total_volume_usd"`
	AvgPrice               decimal.Decimal `json:"avg_price"`
	MaxPrice               decimal.Decimal `json:"max_price"`
	MinPrice               decimal.Decimal `json:"min_price"`
	SuspiciousTransactions int64           `json:"suspicious_transactions"`
	HighRiskTransactions   int64           `json:"high_risk_transactions"`
}

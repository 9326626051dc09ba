package analysis

import (
	"math/rand"
	"time"

	"bitcoin-dss/src/helpers"
	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// Risk tiers, ordered from least to most severe.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

var (
	thousand      = decimal.NewFromInt(1000)
	hundred       = decimal.NewFromInt(100)
	volumeCeiling = decimal.NewFromInt(100000)
)

// -----------------------------------------------------------------------------

// RiskScorer computes a heuristic anomaly score per fact row. The random
// source is injected so tests can pin the seed; production seeds from the
// wall clock.
type RiskScorer struct {
	rng    *rand.Rand
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRiskScorer(rng *rand.Rand, log *logger.Logger) *RiskScorer {
	return &RiskScorer{
		rng:    rng,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// IsSuspicious applies the boundary rules: quote volume an exact multiple of
// 1000, quote volume above 100000, or price an exact multiple of 100. Exact
// decimal arithmetic, no float rounding.
func IsSuspicious(price, volumeQuote decimal.Decimal) bool {
	return volumeQuote.Mod(thousand).IsZero() ||
		volumeQuote.GreaterThan(volumeCeiling) ||
		price.Mod(hundred).IsZero()
}

// -----------------------------------------------------------------------------

// RiskLevelFor buckets a score into a tier. Buckets are non-decreasing in
// score: (0,25] LOW, (25,50] MEDIUM, (50,75] HIGH, (75,100] CRITICAL.
// A score of exactly 0 falls to LOW.
func RiskLevelFor(score float64) string {
	switch {
	case score <= 25:
		return RiskLow
	case score <= 50:
		return RiskMedium
	case score <= 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// -----------------------------------------------------------------------------

// ScoreFacts produces exactly one risk score per fact row. Suspicious rows
// score uniformly in [50,100), others in [0,30).
func (s *RiskScorer) ScoreFacts(facts []models.MTransactionFact) ([]models.MTransactionRiskScore, error) {
	if len(facts) == 0 {
		return nil, helpers.NewScoringInputError("no fact rows to score", nil)
	}

	now := time.Now().UTC()
	scores := make([]models.MTransactionRiskScore, 0, len(facts))
	suspicious := 0

	for _, f := range facts {
		flagged := IsSuspicious(f.Price, f.VolumeQuote)

		var score float64
		if flagged {
			score = 50 + s.rng.Float64()*50
			suspicious++
		} else {
			score = s.rng.Float64() * 30
		}

		scores = append(scores, models.MTransactionRiskScore{
			TransactionFactSK: f.TransactionFactSK,
			IsSuspicious:      flagged,
			AnomalyScore:      score,
			RiskLevel:         RiskLevelFor(score),
			AnalysisDate:      now,
		})
	}

	s.Logger.Info("Scored %d transactions (%d suspicious)", len(scores), suspicious)
	return scores, nil
}

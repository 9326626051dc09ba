package analysis

import (
	"math/rand"
	"testing"

	"bitcoin-dss/src/helpers"
	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.NewLogger("error", "test")
}

func TestIsSuspicious(t *testing.T) {
	cases := []struct {
		name   string
		price  string
		volume string
		want   bool
	}{
		{"round price multiple of 100", "100", "1500", true},
		{"round price regardless of volume", "100", "42.17", true},
		{"neither rule triggers", "137.50", "1500", false},
		{"volume multiple of 1000", "137.50", "3000", true},
		{"volume over ceiling", "137.50", "100000.01", true},
		{"volume exactly at ceiling is a multiple of 1000", "137.50", "100000", true},
		{"small normal trade", "99.99", "999", false},
		{"fractional volume near round", "251.13", "1000.00000001", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			price := decimal.RequireFromString(tc.price)
			volume := decimal.RequireFromString(tc.volume)
			assert.Equal(t, tc.want, IsSuspicious(price, volume))
		})
	}
}

func TestRiskLevelForBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0, RiskLow},
		{10, RiskLow},
		{25, RiskLow},
		{25.01, RiskMedium},
		{50, RiskMedium},
		{50.5, RiskHigh},
		{75, RiskHigh},
		{75.01, RiskCritical},
		{100, RiskCritical},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.want, RiskLevelFor(tc.score), "score %v", tc.score)
	}
}

func TestRiskLevelMonotonic(t *testing.T) {
	rank := map[string]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

	prev := -1
	for score := 0.0; score <= 100.0; score += 0.25 {
		r := rank[RiskLevelFor(score)]
		assert.GreaterOrEqualf(t, r, prev, "tier dropped at score %v", score)
		prev = r
	}
}

func TestScoreFactsIntervals(t *testing.T) {
	scorer := NewRiskScorer(rand.New(rand.NewSource(42)), testLogger())

	var facts []models.MTransactionFact
	for i := 0; i < 200; i++ {
		price := decimal.NewFromFloat(137.5)
		if i%2 == 0 {
			price = decimal.NewFromInt(100) // suspicious by the round-price rule
		}
		facts = append(facts, models.MTransactionFact{
			TransactionFactSK: int64(i + 1),
			Price:             price,
			VolumeQuote:       decimal.NewFromInt(1500),
		})
	}

	scores, err := scorer.ScoreFacts(facts)
	require.NoError(t, err)
	require.Len(t, scores, len(facts))

	for i, s := range scores {
		assert.Equal(t, facts[i].TransactionFactSK, s.TransactionFactSK)
		assert.Equal(t, RiskLevelFor(s.AnomalyScore), s.RiskLevel)
		if s.IsSuspicious {
			assert.GreaterOrEqual(t, s.AnomalyScore, 50.0)
			assert.Less(t, s.AnomalyScore, 100.0)
		} else {
			assert.GreaterOrEqual(t, s.AnomalyScore, 0.0)
			assert.Less(t, s.AnomalyScore, 30.0)
		}
	}
}

func TestScoreFactsDeterministicWithSeed(t *testing.T) {
	facts := []models.MTransactionFact{
		{TransactionFactSK: 1, Price: decimal.NewFromInt(100), VolumeQuote: decimal.NewFromInt(7)},
		{TransactionFactSK: 2, Price: decimal.NewFromFloat(99.5), VolumeQuote: decimal.NewFromInt(7)},
	}

	first, err := NewRiskScorer(rand.New(rand.NewSource(7)), testLogger()).ScoreFacts(facts)
	require.NoError(t, err)
	second, err := NewRiskScorer(rand.New(rand.NewSource(7)), testLogger()).ScoreFacts(facts)
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].AnomalyScore, second[i].AnomalyScore)
		assert.Equal(t, first[i].RiskLevel, second[i].RiskLevel)
	}
}

func TestScoreFactsEmptyInput(t *testing.T) {
	scorer := NewRiskScorer(rand.New(rand.NewSource(1)), testLogger())

	_, err := scorer.ScoreFacts(nil)
	require.Error(t, err)

	var scoringErr *helpers.ScoringInputError
	assert.ErrorAs(t, err, &scoringErr)
}

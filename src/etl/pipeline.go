package etl

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"bitcoin-dss/src/analysis"
	"bitcoin-dss/src/helpers"
	"bitcoin-dss/src/interfaces"
	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------

// Pipeline runs one end-to-end batch load: schema init, dimension loads,
// fact load, scoring, aggregation, view creation. There is no partial-resume
// path; re-running discards the prior warehouse.
type Pipeline struct {
	Config    *models.MConfig
	Warehouse interfaces.IWarehouse
	Reader    interfaces.ISourceReader
	Logger    *logger.Logger
	RunID     string
}

// -----------------------------------------------------------------------------

func NewPipeline(cfg *models.MConfig, wh interfaces.IWarehouse,
	reader interfaces.ISourceReader, log *logger.Logger) *Pipeline {
	return &Pipeline{
		Config:    cfg,
		Warehouse: wh,
		Reader:    reader,
		Logger:    log,
		RunID:     uuid.NewString(),
	}
}

// -----------------------------------------------------------------------------

// newRand builds a pseudo-random source from a configured seed, falling back
// to the wall clock when the seed is zero.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// -----------------------------------------------------------------------------

// Run executes the whole batch. Stage barrier: the three dimension loads run
// concurrently; the fact load and scoring wait for all of them; aggregation
// and views wait for fact load and scoring. Any stage failure aborts the run.
func (p *Pipeline) Run() error {
	started := time.Now()
	p.Logger.Info("Starting batch run %s", p.RunID)

	// Stage 0: schema
	if err := p.Warehouse.Initialize(); err != nil {
		return err
	}

	// Stage 1: dimension loads (independent, parallel)
	if err := p.loadDimensions(); err != nil {
		return err
	}

	// Stage 2a: fact load
	walletKeys, err := p.Warehouse.WalletKeys()
	if err != nil {
		return helpers.NewSourceReadError("failed to read wallet keys", err)
	}
	resolver := NewRandomWalletResolver(walletKeys, newRand(p.Config.Scoring.WalletSeed))
	factLoader := NewFactLoader(p.Reader, p.Warehouse, resolver, p.Logger.Named("FactLoader"))
	if err := factLoader.Load(); err != nil {
		return err
	}

	// Stage 2b: scoring
	facts, err := p.Warehouse.FactRows()
	if err != nil {
		return helpers.NewScoringInputError("failed to read fact rows", err)
	}
	scorer := analysis.NewRiskScorer(newRand(p.Config.Scoring.Seed), p.Logger.Named("RiskScorer"))
	scores, err := scorer.ScoreFacts(facts)
	if err != nil {
		return err
	}
	if err := p.Warehouse.InsertRiskScores(scores); err != nil {
		return helpers.NewWarehouseError("risk score bulk insert failed", err)
	}

	// Stage 3: aggregation
	if err := p.Warehouse.BuildDailySummary(); err != nil {
		return helpers.NewAggregationError("daily summary rollup failed", err)
	}

	// Stage 4: analytical views
	if err := p.Warehouse.CreateViews(); err != nil {
		return err
	}

	p.report()
	p.Logger.Info("Batch run %s completed in %v", p.RunID, time.Since(started).Round(time.Millisecond))
	return nil
}

// -----------------------------------------------------------------------------

func (p *Pipeline) loadDimensions() error {
	loader := NewDimensionLoader(p.Reader, p.Warehouse, p.Logger.Named("DimensionLoader"))

	loads := []func() error{
		loader.LoadTime,
		loader.LoadMarket,
		loader.LoadWallet,
	}

	var wg sync.WaitGroup
	errs := make([]error, len(loads))
	for i, load := range loads {
		wg.Add(1)
		go func(i int, load func() error) {
			defer wg.Done()
			errs[i] = load()
		}(i, load)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// report logs the post-load validation summary: per-table row counts and the
// risk level distribution.
func (p *Pipeline) report() {
	counts, err := p.Warehouse.TableCounts()
	if err != nil {
		p.Logger.Warning("Validation report unavailable: %v", err)
		return
	}
	for _, table := range []string{"DimTime", "DimMarket", "DimWallet", "FactTransactions", "TransactionAnalysis", "DailySummary"} {
		p.Logger.Info("   %s: %d records", table, counts[table])
	}

	dist, err := p.Warehouse.RiskLevelDistribution()
	if err != nil {
		p.Logger.Warning("Risk distribution unavailable: %v", err)
		return
	}
	total := int64(0)
	for _, n := range dist {
		total += n
	}
	for _, level := range []string{analysis.RiskLow, analysis.RiskMedium, analysis.RiskHigh, analysis.RiskCritical} {
		if n, ok := dist[level]; ok && total > 0 {
			p.Logger.Info("   Risk %s: %d (%s)", level, n, fmt.Sprintf("%.2f%%", float64(n)*100/float64(total)))
		}
	}

	summaries, err := p.Warehouse.DailySummaries()
	if err != nil {
		p.Logger.Warning("Daily summaries unavailable: %v", err)
		return
	}
	for _, s := range summaries {
		p.Logger.Info("   %s: %d transactions, %d suspicious, %d high risk, volume %s",
			s.SummaryDate, s.TotalTransactions, s.SuspiciousTransactions,
			s.HighRiskTransactions, s.TotalVolumeUSD.StringFixed(2))
	}
}

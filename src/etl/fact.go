package etl

import (
	"math/rand"

	"bitcoin-dss/src/helpers"
	"bitcoin-dss/src/interfaces"
	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"
	"bitcoin-dss/src/utils"
)

// -----------------------------------------------------------------------------

// FallbackKey is the dimension key assigned when a transaction's date has no
// matching dimension row. The row stays in the fact table; referential
// integrity is preserved at the cost of semantic accuracy.
const FallbackKey = 1

// -----------------------------------------------------------------------------

// RandomWalletResolver assigns wallet keys by uniform sampling with
// replacement over the loaded wallet keys. The source data carries no
// transaction-to-wallet linkage; this is the documented approximation, kept
// behind the resolver interface so a real linkage can replace it.
type RandomWalletResolver struct {
	keys []int64
	rng  *rand.Rand
}

// -----------------------------------------------------------------------------

func NewRandomWalletResolver(keys []int64, rng *rand.Rand) *RandomWalletResolver {
	return &RandomWalletResolver{
		keys: keys,
		rng:  rng,
	}
}

// -----------------------------------------------------------------------------

func (r *RandomWalletResolver) Resolve(models.MSourceTransaction) int64 {
	if len(r.keys) == 0 {
		return FallbackKey
	}
	return r.keys[r.rng.Intn(len(r.keys))]
}

// -----------------------------------------------------------------------------

// FactLoader maps raw transactions into the fact shape and resolves their
// three foreign keys.
type FactLoader struct {
	Reader    interfaces.ISourceReader
	Warehouse interfaces.IWarehouse
	Resolver  interfaces.IWalletResolver
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewFactLoader(reader interfaces.ISourceReader, wh interfaces.IWarehouse,
	resolver interfaces.IWalletResolver, log *logger.Logger) *FactLoader {
	return &FactLoader{
		Reader:    reader,
		Warehouse: wh,
		Resolver:  resolver,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// ResolveFact maps one source transaction into the fact shape using the
// prebuilt date lookup maps. Unresolved time or market dates default to
// FallbackKey instead of failing the row; the second return reports whether
// both date lookups matched.
func (l *FactLoader) ResolveFact(tx models.MSourceTransaction,
	timeKeys, marketKeys map[string]int64) (models.MTransactionFact, bool) {

	date := utils.DateOfMillis(tx.TimestampMs)

	timeKey, timeOK := timeKeys[date]
	if !timeOK {
		timeKey = FallbackKey
	}
	marketKey, marketOK := marketKeys[date]
	if !marketOK {
		marketKey = FallbackKey
	}

	fact := models.MTransactionFact{
		TradeID:       tx.TradeID,
		Side:          tx.Side,
		TimeKey:       timeKey,
		MarketDateKey: marketKey,
		WalletKey:     l.Resolver.Resolve(tx),
		Price:         tx.Price,
		VolumeQuote:   tx.VolumeQuote,
		SizeBase:      tx.SizeBase,
	}
	return fact, timeOK && marketOK
}

// -----------------------------------------------------------------------------

func (l *FactLoader) Load() error {
	txs, err := l.Reader.ReadTransactions()
	if err != nil {
		return helpers.NewSourceReadError("transaction source unreadable", err)
	}

	// One date->key map per dimension, built once for the whole batch.
	timeKeys, err := l.Warehouse.TimeKeysByDate()
	if err != nil {
		return helpers.NewSourceReadError("failed to build time key lookup", err)
	}
	marketKeys, err := l.Warehouse.MarketKeysByDate()
	if err != nil {
		return helpers.NewSourceReadError("failed to build market key lookup", err)
	}

	facts := make([]models.MTransactionFact, 0, len(txs))
	unresolved := 0
	for _, tx := range txs {
		fact, resolved := l.ResolveFact(tx, timeKeys, marketKeys)
		if !resolved {
			unresolved++
		}
		facts = append(facts, fact)
	}

	if err := l.Warehouse.InsertFacts(facts); err != nil {
		return helpers.NewWarehouseError("fact bulk insert failed", err)
	}

	l.Logger.Info("FactTransactions: %d records (%d with fallback keys)", len(facts), unresolved)
	return nil
}

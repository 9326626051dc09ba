package config

import (
	"os"
	"path/filepath"
	"testing"

	"bitcoin-dss/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

const validYAML = `
name: "bitcoin-dss"
log_level: "info"
storage:
  db_type: "sqlite"
  db_path: "data/bitcoin_unified_dw.db"
sources:
  transactions:
    db_path: "data/bitcoin_dw.db"
    table: "fact_transactions"
    max_rows: 10000
  time:
    db_path: "data/time_data.db"
    table: "dim_time"
    max_rows: 20000
  market:
    db_path: "data/dim_market.db"
    table: "dim_market"
  wallet:
    db_path: "data/dim_wallet.db"
    table: "dim_wallet"
scoring:
  seed: 42
  wallet_seed: 43
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigValid(t *testing.T) {
	cfg, err := NewConfig(writeConfigFile(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "bitcoin-dss", cfg.Name)
	assert.Equal(t, "sqlite", cfg.Storage.DBType)
	assert.Equal(t, "fact_transactions", cfg.Sources.Transactions.Table)
	assert.Equal(t, 10000, cfg.Sources.Transactions.MaxRows)
	assert.Equal(t, 0, cfg.Sources.Market.MaxRows)
	assert.Equal(t, int64(42), cfg.Scoring.Seed)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewConfigBadYAML(t *testing.T) {
	_, err := NewConfig(writeConfigFile(t, "name: [unclosed"))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{MConfig: &models.MConfig{
			Name: "test",
			Storage: models.MStorageConfig{
				DBType: "sqlite",
				DBPath: "dw.db",
			},
			Sources: models.MSourcesConfig{
				Transactions: models.MSourceStoreConfig{DBPath: "a.db", Table: "fact_transactions"},
				Time:         models.MSourceStoreConfig{DBPath: "b.db", Table: "dim_time"},
				Market:       models.MSourceStoreConfig{DBPath: "c.db", Table: "dim_market"},
				Wallet:       models.MSourceStoreConfig{DBPath: "d.db", Table: "dim_wallet"},
			},
		}}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("empty name", func(t *testing.T) {
		cfg := base()
		cfg.Name = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("sqlite without path", func(t *testing.T) {
		cfg := base()
		cfg.Storage.DBPath = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres without connection string", func(t *testing.T) {
		cfg := base()
		cfg.Storage.DBType = "postgres"
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres with connection string", func(t *testing.T) {
		cfg := base()
		cfg.Storage.DBType = "postgres"
		cfg.Storage.DBConnectionString = "host=localhost dbname=dw sslmode=disable"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unsupported db type", func(t *testing.T) {
		cfg := base()
		cfg.Storage.DBType = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("source missing table", func(t *testing.T) {
		cfg := base()
		cfg.Sources.Wallet.Table = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative max_rows", func(t *testing.T) {
		cfg := base()
		cfg.Sources.Time.MaxRows = -1
		assert.Error(t, cfg.Validate())
	})
}

// -----------------------------------------------------------------------------

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfigFile(t, validYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.MConfig, reloaded.MConfig)
}

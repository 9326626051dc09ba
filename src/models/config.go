package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	LogLevel string         `yaml:"log_level"`
	Storage  MStorageConfig `yaml:"storage"`
	Sources  MSourcesConfig `yaml:"sources"`
	Scoring  MScoringConfig `yaml:"scoring"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

// MSourcesConfig lists the four upstream source stores the batch reads from.
type MSourcesConfig struct {
	Transactions MSourceStoreConfig `yaml:"transactions"`
	Time         MSourceStoreConfig `yaml:"time"`
	Market       MSourceStoreConfig `yaml:"market"`
	Wallet       MSourceStoreConfig `yaml:"wallet"`
}

type MSourceStoreConfig struct {
	DBPath  string `yaml:"db_path"`
	Table   string `yaml:"table"`
	MaxRows int    `yaml:"max_rows"` // 0 means unbounded
}

type MScoringConfig struct {
	Seed       int64 `yaml:"seed"` // 0 means seed from wall clock
	WalletSeed int64 `yaml:"wallet_seed"`
}

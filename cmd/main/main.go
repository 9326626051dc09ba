package main

import (
	"flag"
	"fmt"
	"os"

	"bitcoin-dss/src/config"
	"bitcoin-dss/src/etl"
	"bitcoin-dss/src/interfaces"
	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/source"
	"bitcoin-dss/src/storage"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.LogLevel, config.Name)

	// Setup warehouse backend
	var warehouse interfaces.IWarehouse

	switch config.Storage.DBType {
	case "postgres":
		warehouse, err = storage.NewPostgresWarehouse(config.MConfig, appLogger.Named("PostgresWarehouse"))
	default:
		// Default to SQLite
		warehouse, err = storage.NewSQLiteWarehouse(config.MConfig, appLogger.Named("SQLiteWarehouse"))
	}
	if err != nil {
		appLogger.Critical("Failed to init warehouse: %v", err)
	}
	defer warehouse.Close()

	// Setup source reader
	reader := source.NewSQLiteSourceReader(config.MConfig, appLogger.Named("SourceReader"))

	// Run the batch end to end. Any stage failure aborts the whole run;
	// the operator re-runs from a clean warehouse.
	pipeline := etl.NewPipeline(config.MConfig, warehouse, reader, appLogger)
	if err := pipeline.Run(); err != nil {
		appLogger.Critical("Batch run failed: %v", err)
	}
}

// Command migrate prepares the storage backend: it creates the donations
// table (MySQL) or the single DynamoDB table, and can rebuild the MySQL
// unique indexes.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/receipt-booklet-ledger/internal/config"
	"github.com/iliyamo/receipt-booklet-ledger/internal/database"
	"github.com/iliyamo/receipt-booklet-ledger/internal/logger"
	"github.com/iliyamo/receipt-booklet-ledger/internal/storage"
)

func main() {
	_ = godotenv.Load()

	driver := flag.String("driver", "", "store driver (mysql|dynamodb); defaults to STORE_DRIVER")
	recreate := flag.Bool("recreate-indexes", false, "drop and recreate the MySQL unique indexes")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	if *driver != "" {
		_ = os.Setenv("STORE_DRIVER", *driver)
	}
	logg, err := logger.New(os.Getenv("LOG_LEVEL"), "migrate")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	sc := config.LoadStore()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backend, err := storage.Open(ctx, sc)
	if err != nil {
		logg.Fatal("open store", zap.Error(err))
	}
	defer func() { _ = backend.Close() }()

	switch {
	case backend.Dynamo != nil:
		if *recreate {
			logg.Warn("-recreate-indexes ignored for dynamodb; uniqueness is enforced by guard items")
		}
		if err := backend.Dynamo.EnsureTable(ctx); err != nil {
			logg.Fatal("ensure table", zap.Error(err))
		}
		logg.Info("dynamodb table ready", zap.String("table", sc.DynamoTable))
	default:
		if err := database.EnsureSchema(ctx, backend.SQL); err != nil {
			logg.Fatal("ensure schema", zap.Error(err))
		}
		if *recreate {
			if err := database.RecreateIndexes(ctx, backend.SQL); err != nil {
				logg.Fatal("recreate indexes", zap.Error(err))
			}
			logg.Info("unique indexes recreated")
		}
		logg.Info("mysql schema ready", zap.String("database", sc.DBName))
	}
}

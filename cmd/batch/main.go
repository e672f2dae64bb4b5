package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zlin640/finpost/backend/internal/journal/adapter/repo"
	"github.com/zlin640/finpost/backend/internal/journal/events"
	"github.com/zlin640/finpost/backend/internal/journal/service"
	"github.com/zlin640/finpost/backend/internal/platform/database"
	"github.com/zlin640/finpost/backend/internal/platform/logger"
)

// Batch posting entry point for cron jobs and operators. Not exposed over
// HTTP.
func main() {
	var (
		table    = flag.String("table", "", "source table to post (required)")
		dateFrom = flag.String("from", "", "lower date bound (YYYY-MM-DD, optional)")
		dateTo   = flag.String("to", "", "upper date bound (YYYY-MM-DD, optional)")
		config   = flag.String("config", "../../configs/config.yaml", "config file path")
	)
	flag.Parse()

	if *table == "" {
		flag.Usage()
		os.Exit(2)
	}

	viper.SetConfigFile(*config)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %s", err)
	}

	appLogger := logger.NewLogger(viper.GetString("server.mode"))

	db, err := database.NewPostgresDB(
		viper.GetString("database.dsn"),
		viper.GetInt("database.max_idle_conns"),
		viper.GetInt("database.max_open_conns"),
	)
	if err != nil {
		appLogger.Fatal("Database connection failed", zap.Error(err))
	}

	catalog := database.NewCatalog(db)
	postingSvc := service.NewPostingService(
		db, catalog,
		repo.NewConfigRepo(), repo.NewJournalRepo(),
		events.Noop{}, appLogger,
		viper.GetString("journal.ledger_code"),
	)

	result, err := postingSvc.PostBatch(context.Background(), *table, *dateFrom, *dateTo)
	if err != nil {
		appLogger.Fatal("Batch run failed", zap.Error(err))
	}

	fmt.Printf("run %s: total=%d success=%d failed=%d\n",
		result.RunID, result.Total, result.Success, result.Failed)
	for _, row := range result.Results {
		if row.Status == "SUCCESS" {
			if row.JournalID != nil {
				fmt.Printf("  id=%d SUCCESS journal=%d\n", row.ID, *row.JournalID)
			} else {
				fmt.Printf("  id=%d SUCCESS (non-financial)\n", row.ID)
			}
			continue
		}
		fmt.Printf("  id=%d FAILED %s\n", row.ID, row.ErrorMessage)
	}

	if result.Failed > 0 {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zlin640/finpost/backend/internal/journal/adapter/repo"
	"github.com/zlin640/finpost/backend/internal/journal/api"
	"github.com/zlin640/finpost/backend/internal/journal/events"
	eventskafka "github.com/zlin640/finpost/backend/internal/journal/events/kafka"
	"github.com/zlin640/finpost/backend/internal/journal/service"
	"github.com/zlin640/finpost/backend/internal/platform/database"
	"github.com/zlin640/finpost/backend/internal/platform/logger"
	"github.com/zlin640/finpost/backend/internal/platform/server"
)

func main() {
	viper.SetConfigFile("../../configs/config.yaml")
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

	// Wiring. The catalog is constructed once and shared; its column
	// cache lives for the life of the process.
	catalog := database.NewCatalog(db)
	configRepo := repo.NewConfigRepo()
	journalRepo := repo.NewJournalRepo()

	var publisher events.Publisher = events.Noop{}
	if viper.GetBool("kafka.enabled") {
		publisher = eventskafka.NewPublisher(
			viper.GetStringSlice("kafka.brokers"),
			viper.GetString("kafka.topic"),
		)
	}

	postingSvc := service.NewPostingService(
		db, catalog, configRepo, journalRepo, publisher, appLogger,
		viper.GetString("journal.ledger_code"),
	)
	journalHandler := api.NewJournalHandler(postingSvc, viper.GetStringSlice("journal.source_tables"))

	srv := server.NewServer(
		appLogger,
		viper.GetString("server.port"),
		viper.GetString("server.mode"),
		journalHandler,
	)

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server startup failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}

	// Flush buffered events before exit.
	if closer, ok := publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			appLogger.Warn("Publisher close failed", zap.Error(err))
		}
	}
}

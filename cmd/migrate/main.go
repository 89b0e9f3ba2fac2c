package main

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/migrate"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	skipChecks := pflag.Bool("skip-checks", false, "do not (re)create CHECK constraints")
	skipIndexes := pflag.Bool("skip-indexes", false, "do not create indexes")
	skipFKs := pflag.Bool("skip-foreign-keys", false, "do not create foreign keys")
	pflag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadEnv()

	log := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment: cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev",
		Encoding:      cfg.Logger.Encoding,
		Level:         "info",
	})
	defer log.Sync()

	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		log.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()

	opts := migrate.DefaultOptions()
	opts.CreateChecks = !*skipChecks
	opts.CreateIndexes = !*skipIndexes
	opts.CreateForeignKeys = !*skipFKs

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := migrate.MigrateInventoryDB(ctx, db, log, opts); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("migration finished", zap.String("db_name", cfg.Postgres.DBName))
}

// Command inventoryctl runs operator tasks against the inventory database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/cache"
	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	resSweeperPkg "github.com/fekuna/omnipos-inventory-service/internal/reservation/sweeper"
	resUCPkg "github.com/fekuna/omnipos-inventory-service/internal/reservation/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	stockUCPkg "github.com/fekuna/omnipos-inventory-service/internal/stock/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: inventoryctl <command> [flags]

commands:
  sweep                      expire stale reservations once
  bulk-adjust <file.csv>     apply sku,warehouse_code,qty_change[,reason] rows
  verify <stock-record-id>   replay the adjustment trail of one record
`

type app struct {
	log   logger.ZapLogger
	stock stock.UseCase
	sweep *resSweeperPkg.Scheduler
	close func()
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	_ = godotenv.Load()
	cfg := config.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "sweep":
		err = runSweep(ctx, cfg, args)
	case "bulk-adjust":
		err = runBulkAdjust(ctx, cfg, args)
	case "verify":
		err = runVerify(ctx, cfg, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runSweep(ctx context.Context, cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("sweep", pflag.ExitOnError)
	batch := fs.Int("batch", cfg.Reservation.SweepBatchSize, "maximum reservations expired in one pass")
	noLock := fs.Bool("no-lock", false, "skip the redis sweep lock")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Reservation.SweepBatchSize = *batch
	if *noLock {
		cfg.Redis.Enabled = false
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.sweep.RunOnce(ctx)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runBulkAdjust(ctx context.Context, cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("bulk-adjust", pflag.ExitOnError)
	actor := fs.String("actor", os.Getenv("USER"), "actor recorded on every adjustment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("bulk-adjust takes exactly one csv file")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := parseBulkCSV(f)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("no rows in file")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.stock.BulkAdjust(ctx, rows, *actor)
	if err != nil {
		return err
	}
	if err := printJSON(res); err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed", res.Failed, len(rows))
	}
	return nil
}

func runVerify(ctx context.Context, cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("verify", pflag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("verify takes exactly one stock record id")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.stock.VerifyReplay(ctx, fs.Arg(0))
	if report != nil {
		if perr := printJSON(report); perr != nil {
			return perr
		}
	}
	if errors.Is(err, apperr.ErrInvariantViolation) {
		a.log.Error("adjustment trail does not match stored quantity", zap.String("stock_record_id", fs.Arg(0)))
	}
	return err
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     true,
		Encoding:          "console",
		Level:             cfg.Logger.Level,
		DisableStacktrace: true,
	})

	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	closers := []func() error{db.Close}

	var (
		availabilityCache stock.AvailabilityCache
		locker            resSweeperPkg.Locker
	)
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, running without cache and sweep lock", zap.Error(err))
		} else {
			availabilityCache = rc
			locker = rc
			closers = append(closers, rc.Close)
		}
	}

	st := store.NewPostgres(db)
	resUC := resUCPkg.NewReservationUseCase(st, availabilityCache, nil, resUCPkg.Options{
		CartTTL:        cfg.Reservation.CartTTL,
		CheckoutTTL:    cfg.Reservation.CheckoutTTL,
		SweepBatchSize: cfg.Reservation.SweepBatchSize,
	}, log)

	return &app{
		log:   log,
		stock: stockUCPkg.NewStockUseCase(st, availabilityCache, nil, cfg.Redis.AvailabilityTTL, log),
		sweep: resSweeperPkg.NewScheduler(resUC, locker, cfg.Reservation.SweepInterval, log),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
			_ = log.Sync()
		},
	}, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"

	"github.com/oakline/ledger-core/internal/audit"
	"github.com/oakline/ledger-core/internal/config"
	"github.com/oakline/ledger-core/internal/ledger"
	"github.com/oakline/ledger-core/internal/models"
	"github.com/oakline/ledger-core/internal/notify"
	"github.com/oakline/ledger-core/internal/store"
	"github.com/oakline/ledger-core/internal/store/memory"
	"github.com/oakline/ledger-core/internal/store/postgres"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Initialize the store
	var st store.Store
	switch cfg.Store {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		pg := postgres.New(db, logger)
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatalf("Failed to migrate: %v", err)
		}
		st = pg
	default:
		st = memory.New()
	}
	logger.Infof("Using %s store", cfg.Store)

	// Initialize the engine with its notifiers
	opts := []ledger.Option{
		ledger.WithLockTimeout(cfg.LockTimeout),
		ledger.WithNotifier(notify.NewLogNotifier(logger)),
	}
	if cfg.SMTPEnabled() {
		opts = append(opts, ledger.WithNotifier(
			notify.NewEmailSender(cfg, logger, notify.FixedDirectory(cfg.ReceiptEmail))))
	}
	engine := ledger.New(st, logger, opts...)

	if cfg.SeedDemo {
		if err := seedDemo(ctx, st, engine, logger); err != nil {
			logger.Fatalf("Failed to seed demo accounts: %v", err)
		}
	}

	// Schedule the balance audit
	auditor := audit.New(st, logger)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.AuditSchedule, func() {
		if _, err := auditor.Run(ctx); err != nil {
			logger.Errorf("Audit run failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Invalid AUDIT_SCHEDULE: %v", err)
	}
	scheduler.Start()
	logger.Infof("Ledger core ready, auditing %s", cfg.AuditSchedule)

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")
	<-scheduler.Stop().Done()
	logger.Info("Ledger core exited")
}

// seedDemo creates two demo accounts and runs a few operations through the
// engine so a fresh install has something to look at.
func seedDemo(ctx context.Context, st store.Store, engine *ledger.Engine, logger *logrus.Logger) error {
	accounts := []*models.Account{
		{ID: "ACC-1001", OwnerID: "user-alice", Balance: decimal.Zero},
		{ID: "ACC-1002", OwnerID: "user-bob", Balance: decimal.Zero},
	}
	for _, acct := range accounts {
		if err := st.CreateAccount(ctx, acct); err != nil {
			return err
		}
	}

	deposit, err := ledger.NewDepositRequest("ACC-1001", decimal.NewFromInt(500))
	if err != nil {
		return err
	}
	if _, err := engine.Deposit(ctx, "user-alice", deposit); err != nil {
		return err
	}

	transfer, err := ledger.NewTransferRequest("ACC-1001", "ACC-1002", decimal.NewFromInt(120))
	if err != nil {
		return err
	}
	res, err := engine.Transfer(ctx, "user-alice", transfer)
	if err != nil {
		return err
	}
	logger.Infof("Seeded demo accounts, last reference %s", res.Reference)
	return nil
}

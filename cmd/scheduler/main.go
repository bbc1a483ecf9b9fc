package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc/pool"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/email"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/events"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/jobs"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/middleware"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/ops"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/service"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/telemetry"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/tenant"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	flushSentry, err := telemetry.InitSentry(cfg.Sentry, logger)
	if err != nil {
		return err
	}
	defer flushSentry()

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := waitForDatabase(ctx, sqlDB, logger); err != nil {
		return err
	}
	logger.Info("Database connection established")

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	version, err := internal.MigrationVersion(sqlDB)
	if err != nil {
		return err
	}
	logger.Info("Database migrations completed successfully", "schema_version", version)

	// Initialize pgx connection pool for application
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer dbPool.Close()

	repo := repository.New(dbPool)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewRecurringMetrics(reg, cfg.MetricsNamespace)

	// Event bus
	var conn *nats.Conn
	var publisher events.Publisher
	if cfg.NATS.URL != "" {
		conn, err = events.Connect(ctx, cfg.NATS.URL, internal.ServiceName, cfg.NATS.ConnectTimeout, logger)
		if err != nil {
			return err
		}
		defer conn.Drain()
		publisher = events.NewNATSPublisher(conn, cfg.NATS.Subject, logger)
		logger.Info("Publishing invoice events to NATS", "subject", cfg.NATS.Subject)
	} else {
		publisher = events.NewLogPublisher(logger)
		logger.Info("NATS_URL not set, invoice events are only logged")
	}
	defer publisher.Close()

	recurring, err := service.NewRecurringInvoiceService(
		repo,
		tenant.NewDBLister(repo, cfg.Recurring.TenantPageSize),
		publisher,
		domain.SystemClock{Location: cfg.Recurring.Location()},
		service.RecurringConfig{
			MaxConcurrency:     cfg.Recurring.MaxConcurrency,
			SequenceAutoCreate: cfg.Recurring.SequenceAutoCreate,
		},
		metrics,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize recurring invoice service: %w", err)
	}

	job := jobs.NewRecurringInvoiceJob(ctx, recurring, cfg.Recurring.RunTimeout, logger)

	if cfg.RunOnce {
		logger.Info("RUN_ONCE set, performing a single run")
		_, err := job.Execute(ctx)
		return err
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()

	scheduler := jobs.NewScheduler(cfg.Recurring.Location(), logger)
	if _, err := jobs.Schedule(scheduler, cfg.Recurring.Schedule, job); err != nil {
		return err
	}
	p.Go(func(ctx context.Context) error {
		scheduler.Start()
		logger.Info("Scheduler started",
			"schedule", cfg.Recurring.Schedule,
			"timezone", cfg.Recurring.Timezone,
			"run_timeout", cfg.Recurring.RunTimeout,
		)
		<-ctx.Done()
		// Wait for an active run; it sees the cancelled context and stops early.
		<-scheduler.Stop().Done()
		logger.Info("Scheduler stopped")
		return nil
	})

	if cfg.OpsPort > 0 {
		server := ops.NewServer(
			ops.Config{Port: cfg.OpsPort},
			dbPool,
			repo,
			job,
			reg,
			middleware.NewMetrics(reg, cfg.MetricsNamespace),
			logger,
		)
		p.Go(server.Start)
	}

	if conn != nil && cfg.NATS.WorkerEnabled {
		notifier, err := newNotifier(cfg, logger)
		if err != nil {
			return err
		}
		w := worker.NewNotificationWorker(
			repo,
			tenant.NewDBResolver(repo),
			notifier,
			worker.Config{Subject: cfg.NATS.Subject},
			metrics,
			logger,
		)
		p.Go(func(ctx context.Context) error {
			return w.Start(ctx, conn)
		})
	}

	err = p.Wait()
	logger.Info("Shutdown complete")
	return err
}

// waitForDatabase pings until the database answers, backing off between
// attempts, so the scheduler can start alongside its database.
func waitForDatabase(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute

	notify := func(err error, next time.Duration) {
		logger.Warn("database not reachable, retrying", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(func() error { return db.PingContext(ctx) }, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// newNotifier sends notices over SMTP, or logs them when SMTP_HOST is unset.
func newNotifier(cfg *internal.Config, logger *slog.Logger) (*email.Service, error) {
	var sender email.Sender
	from := cfg.Email.From
	if cfg.Email.Host != "" {
		sender = email.NewSMTPSender(cfg.Email.SMTP(), logger)
		logger.Info("Sending invoice notifications via SMTP", "host", cfg.Email.Host, "port", cfg.Email.Port)
	} else {
		sender = email.NewLogSender(logger)
		if from == "" {
			from = "noreply@localhost"
		}
		logger.Info("SMTP_HOST not set, invoice notifications are only logged")
	}

	svc, err := email.NewService(sender, from, cfg.Email.FromName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}
	return svc, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

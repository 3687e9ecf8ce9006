package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	grpcadapter "github.com/simaogato/finflow-backend/internal/adapter/grpc"
	"github.com/simaogato/finflow-backend/internal/adapter/cache"
	"github.com/simaogato/finflow-backend/internal/adapter/notification"
	"github.com/simaogato/finflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/finflow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/finflow-backend/internal/config"
	"github.com/simaogato/finflow-backend/internal/domain"
	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/simaogato/finflow-backend/internal/usecase/dashboard"
	"github.com/simaogato/finflow-backend/internal/usecase/financing"
	"github.com/simaogato/finflow-backend/internal/usecase/reconciliation"
	"github.com/simaogato/finflow-backend/internal/usecase/titletransfer"
)

const (
	healthProbeInterval = 15 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// storage bundles the repositories of the selected backend
type storage struct {
	transactor   domain.Transactor
	trackers     domain.TrackerRepository
	transfers    domain.TitleTransferRepository
	reservations domain.ReservationRepository
	units        domain.UnitRepository
	targets      domain.NotificationTargetResolver
	contacts     domain.ContactDirectory
	inbox        domain.Notifier
	probe        func(ctx context.Context) error
	close        func() error
}

// engine holds the wired services
type engine struct {
	financing     *financing.Service
	titleTransfer *titletransfer.Service
	dashboard     *dashboard.Service
	sweeper       *reconciliation.Sweeper
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zl, err := logger.NewZap(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync() //nolint:errcheck

	log := logger.New(zl).WithFields(logger.Fields{
		"app": cfg.App.Name,
		"env": cfg.App.Environment,
	})

	if err := run(cfg, log); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Setup storage
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			log.Warn("failed to close storage", logger.Fields{"error": err})
		}
	}()

	// 2. Setup dashboard cache and notification channels
	snapshotCache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	notifier, err := buildNotifier(ctx, cfg, store, log)
	if err != nil {
		return err
	}

	// 3. Initialize services (use cases)
	eng := wireEngine(cfg, store, snapshotCache, notifier, log)

	if snapshot, err := eng.dashboard.Refresh(ctx); err != nil {
		log.Warn("dashboard warm-up failed", logger.Fields{"error": err})
	} else {
		log.Info("dashboard warmed up", logger.Fields{"activeTrackers": snapshot.KPIs.ActiveTrackers})
	}

	// 4. Start background workers
	var wg sync.WaitGroup

	if cfg.Sweep.Enabled {
		runner := reconciliation.NewRunner(eng.sweeper, cfg.Sweep.Interval, cfg.Sweep.RunOnStart, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Start(ctx)
		}()
	}

	metricsServer := &http.Server{Addr: cfg.Metrics.Address, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics server listening", logger.Fields{"address": cfg.Metrics.Address})
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", logger.Fields{"error": err})
		}
	}()

	// 5. Start gRPC server
	grpcServer := grpcadapter.NewServer(cfg.GRPC.APIToken, log)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPC.Address, err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		grpcServer.MonitorStorage(ctx, store.probe, healthProbeInterval)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serveErr:
		log.Error("grpc server stopped unexpectedly", logger.Fields{"error": err})
		stop()
	}

	grpcServer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown failed", logger.Fields{"error": err})
	}

	wg.Wait()
	log.Info("server stopped", nil)
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn("using in-memory storage; data is lost on restart", nil)
		s := memory.NewStore()
		dir := s.Directory()
		return &storage{
			transactor:   s,
			trackers:     s.Trackers(),
			transfers:    s.Transfers(),
			reservations: s.Reservations(),
			units:        s.Units(),
			targets:      dir,
			contacts:     dir,
			inbox:        memory.NewInbox(),
			probe:        func(context.Context) error { return nil },
			close:        func() error { return nil },
		}, nil
	}

	pg := cfg.Database.Postgres
	db, err := postgres.NewDB(ctx, pg.DSN(), postgres.PoolOptions{
		MaxOpen: pg.MaxConnections,
		MaxIdle: pg.MaxIdle,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if pg.Migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("database schema applied", nil)
	}

	dir := postgres.NewUserDirectory(db)
	return &storage{
		transactor:   db,
		trackers:     postgres.NewTrackerRepository(db),
		transfers:    postgres.NewTitleTransferRepository(db),
		reservations: postgres.NewReservationRepository(db),
		units:        postgres.NewUnitRepository(db),
		targets:      dir,
		contacts:     dir,
		inbox:        postgres.NewNotificationRepository(db),
		probe:        db.PingContext,
		close:        db.Close,
	}, nil
}

func openCache(ctx context.Context, cfg *config.Config, log logger.Logger) (domain.SnapshotCache, func(), error) {
	if cfg.Dashboard.CacheBackend == "memory" {
		return cache.NewMemorySnapshotCache(), func() {}, nil
	}

	rc := cfg.Database.Redis
	client, err := cache.NewRedisClient(ctx, cache.RedisOptions{
		Address:  rc.Address,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	log.Info("dashboard cache connected", logger.Fields{"address": rc.Address})
	return cache.NewRedisSnapshotCache(client), func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close redis client", logger.Fields{"error": err})
		}
	}, nil
}

func buildNotifier(ctx context.Context, cfg *config.Config, store *storage, log logger.Logger) (domain.Notifier, error) {
	nc := cfg.Notifications
	var channels []domain.Notifier

	if nc.Inbox.Enabled {
		channels = append(channels, store.inbox)
	}

	if nc.Email.Enabled || nc.SMS.Enabled {
		sesClient, snsClient, err := notification.NewAWSClients(ctx, nc.AWS.Region)
		if err != nil {
			return nil, err
		}
		if nc.Email.Enabled {
			channels = append(channels, notification.NewEmailNotifier(sesClient, store.contacts, nc.Email.FromEmail))
		}
		if nc.SMS.Enabled {
			channels = append(channels, notification.NewSMSNotifier(snsClient, store.contacts, nc.SMS.SenderID))
		}
	}

	multi := notification.NewMultiChannel(channels...)
	log.Info("notification channels configured", logger.Fields{
		"channels": multi.Len(),
		"email":    nc.Email.Enabled,
		"sms":      nc.SMS.Enabled,
	})
	return multi, nil
}

func wireEngine(cfg *config.Config, store *storage, snapshotCache domain.SnapshotCache, notifier domain.Notifier, log logger.Logger) *engine {
	dash := dashboard.NewService(store.trackers, store.transfers, store.reservations, snapshotCache, cfg.Dashboard.CacheTTL, log)

	return &engine{
		dashboard: dash,
		financing: financing.NewService(
			store.transactor, store.trackers, store.reservations,
			store.targets, notifier, dash, log,
		),
		titleTransfer: titletransfer.NewService(
			store.transactor, store.transfers, store.trackers, store.reservations, store.units,
			store.targets, notifier, dash, log,
		),
		sweeper: reconciliation.NewSweeper(
			store.transactor, store.trackers, store.targets, notifier, dash, log,
		),
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/auth"
	"erpcore/internal/config"
	"erpcore/internal/httpserver"
	"erpcore/internal/logger"
	"erpcore/internal/metrics"
	"erpcore/internal/services/address"
	"erpcore/internal/services/audit"
	"erpcore/internal/services/authn"
	"erpcore/internal/services/startup"
	"erpcore/internal/services/user"
	"erpcore/internal/store"
	"erpcore/internal/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// database is a Store that can also create its own schema.
type database interface {
	store.Store
	Migrate(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger level comes from config; fall back to info to report the failure.
		logger.New("info").Fatalw("invalid configuration", "error", err)
	}
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := openStore(cfg, lg)
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	defer closeDB()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	signer := auth.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpiresIn, cfg.JWT.RefreshTTL)
	hasher := auth.BcryptHasher{}
	rec := audit.NewRecorder(db, lg, m)
	addresses := address.NewService(db, rec, lg, m, cfg.DefaultCountry)
	users := user.NewDirectory(db, addresses, rec, hasher, lg, m)
	gateway := authn.NewGateway(users, signer, hasher, lg)
	boot := startup.NewBootstrapper(db, users, cfg.Admin, lg)

	rep, err := boot.Init(ctx)
	switch {
	case apperrors.HasCode(err, apperrors.CodeValidation) && rep.Migrated:
		lg.Warnw("admin account not seeded", "error", err)
	case err != nil:
		lg.Fatalw("startup init failed", "error", err)
	}

	sweeper := audit.NewSweeper(db.Audit(), cfg.Audit.RetentionDays, cfg.Audit.CleanupSchedule, lg, m)
	if err := sweeper.Start(); err != nil {
		lg.Fatalw("audit retention schedule", "error", err)
	}
	defer sweeper.Stop()

	router := httpserver.NewRouter(httpserver.Deps{
		Users:      users,
		Addresses:  addresses,
		Audit:      rec,
		Auth:       gateway,
		Startup:    boot,
		Tokens:     signer,
		Validator:  validation.NewValidator(),
		Metrics:    m,
		Gatherer:   reg,
		StartupKey: cfg.StartupKey,
		Log:        lg,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Infow("listening", "port", cfg.HTTPPort, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		lg.Infow("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		lg.Errorw("server stopped", "error", err)
	}
}

func openStore(cfg config.Config, lg *zap.SugaredLogger) (database, func(), error) {
	if cfg.Storage == config.StorageMemory {
		lg.Warnw("using in-memory storage; data is lost on exit")
		return store.NewMemory(), func() {}, nil
	}
	gdb, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return store.NewGorm(gdb), closeDB, nil
}

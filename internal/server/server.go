package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/config"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/handler/rest"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/notify"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/pub"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/repository"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/storage"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/usecase"
	"github.com/ShikharGupta100/Transaction-Ledger/pkg/ids"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server owns the process-wide resources (db pool, redis, kafka writer) with
// an explicit startup/teardown lifecycle, injected into components rather
// than reached for as singletons.
type Server struct {
	cfg  config.AppConfig
	log  *zap.Logger
	http *http.Server

	pool       *pgxpool.Pool
	rdb        *redis.Client
	notifier   notify.Notifier
	reconciler *usecase.Reconciler
}

// New connects every backing resource and wires the component graph. A store
// that cannot be reached is fatal: no half-initialized server accepts traffic.
func New(cfg config.AppConfig, log *zap.Logger) (*Server, error) {
	pool, err := config.ConnectDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := storage.Migrate(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("✅ database migrated")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	notifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
	eventPublisher := pub.NewTransactionEventPublisher(rdb)
	gen := ids.NewGenerator()

	accountRepo := repository.NewAccountRepo(pool)
	ledgerRepo := repository.NewLedgerRepo(pool)
	transactionRepo := repository.NewTransactionRepo(pool, accountRepo, ledgerRepo, gen)

	accountUC := usecase.NewAccountUsecase(accountRepo, ledgerRepo, gen, log)
	txUC := usecase.NewTransactionUsecase(
		transactionRepo, accountRepo, ledgerRepo, accountUC,
		notifier, eventPublisher, rdb, log,
	)

	reconciler := usecase.NewReconciler(transactionRepo, cfg.SweepInterval, cfg.StaleAfter, log)

	handler := rest.NewHandler(accountUC, txUC)

	return &Server{
		cfg: cfg,
		log: log,
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      handler.Routes(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  2 * time.Minute,
		},
		pool:       pool,
		rdb:        rdb,
		notifier:   notifier,
		reconciler: reconciler,
	}, nil
}

// Run serves HTTP until the listener stops.
func (s *Server) Run() error {
	s.reconciler.Start()
	s.log.Info("🌍 ledger server listening", zap.String("addr", s.cfg.HTTPAddr))

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests then tears down backing resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.reconciler.Stop()
	if cerr := s.notifier.Close(); cerr != nil {
		s.log.Warn("failed to close kafka writer", zap.Error(cerr))
	}
	if cerr := s.rdb.Close(); cerr != nil {
		s.log.Warn("failed to close redis client", zap.Error(cerr))
	}
	s.pool.Close()

	return err
}

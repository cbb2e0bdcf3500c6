package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/domain/model"
	"stockledger/internal/handler"
	"stockledger/internal/infra/db"
	"stockledger/internal/infra/logger"
	"stockledger/internal/infra/metrics"
	"stockledger/internal/infra/notify"
	infraRepo "stockledger/internal/infra/repository"
	"stockledger/internal/server"
	"stockledger/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Publishとキューの後始末だけ
type notifier interface {
	usecase.Notifier
	Close(ctx context.Context) error
}

func main() {
	//.envはあれば読む
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	m := metrics.New()

	//ブローカーがなければログに出すだけ
	var n notifier
	if len(cfg.KafkaBrokers) > 0 {
		n = notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			QueueSize:    cfg.NotifyQueueSize,
			WriteTimeout: 5 * time.Second,
		}, zl, m)
	} else {
		n = notify.NewLogNotifier(zl)
	}

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB, cfg.DBLockTimeout)
	userRepo := infraRepo.NewUserGormRepository(gormDB)

	retry := handler.RetryPolicy{
		MaxAttempts:  cfg.ConflictRetryMax,
		BaseInterval: cfg.ConflictRetryBase,
		OnRetry: func(path string) {
			m.ConflictRetries.WithLabelValues(path).Inc()
		},
	}

	//Usecase / Handler生成（販売と仕入は同じ実装をkindで分ける）
	h := server.Handlers{
		SaleOrders:     orderHandler(model.OrderKindSale, txm, n, retry, zl),
		PurchaseOrders: orderHandler(model.OrderKindPurchase, txm, n, retry, zl),
		Sales:          handler.NewTransactionHandler(model.OrderKindSale, usecase.NewTransactionUsecase(model.OrderKindSale, txm), zl),
		Purchases:      handler.NewTransactionHandler(model.OrderKindPurchase, usecase.NewTransactionUsecase(model.OrderKindPurchase, txm), zl),
		Returns:        handler.NewReturnHandler(usecase.NewReturnUsecase(txm, n, zl), retry, zl),
		Inventory:      handler.NewInventoryHandler(usecase.NewInventoryUsecase(txm, n, zl), zl),
		Audit:          handler.NewAuditHandler(usecase.NewAuditUsecase(txm), zl),
	}

	e := server.New(cfg, zl, m, userRepo, h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := server.Run(ctx, e, cfg.Addr(), zl)

	//残りのイベントを流してから終了
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := n.Close(closeCtx); err != nil {
		zl.Warn("notifier close", zap.Error(err))
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return runErr
}

func orderHandler(kind model.OrderKind, txm *infraRepo.TxManagerGorm, n usecase.Notifier, retry handler.RetryPolicy, zl *zap.Logger) *handler.OrderHandler {
	return handler.NewOrderHandler(
		kind,
		usecase.NewOrderUsecase(kind, txm, n, zl),
		usecase.NewOrderLineUsecase(kind, txm, n, zl),
		retry,
		zl,
	)
}

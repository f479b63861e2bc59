package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/evermart/order-service/internal/app"
	"github.com/evermart/order-service/internal/config"
	"github.com/evermart/order-service/internal/handler"
	"github.com/evermart/order-service/internal/notification"
	"github.com/evermart/order-service/internal/postgres"
	"github.com/evermart/order-service/internal/provider"
	"github.com/evermart/order-service/internal/repo"
	"github.com/evermart/order-service/internal/service"
	"github.com/evermart/order-service/internal/sweeper"
	"github.com/evermart/order-service/pkg/cache"
	"github.com/evermart/order-service/pkg/trm"

	"github.com/joho/godotenv"
)

func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	orderRepo := repo.NewOrderRepo(db)
	inventoryRepo := repo.NewInventoryRepo(db)
	adminRepo := repo.NewAdminRepo(db)

	txManager := trm.NewManager(db, trm.WithIsolation(sql.LevelReadCommitted))
	stockProvider := provider.New(inventoryRepo, adminRepo)
	orderCache := cache.NewLRUCache(conf.Cache.Capacity, conf.Cache.TTL)
	notifier := notification.NewKafkaNotifier(logger, conf.Kafka)
	defer notifier.Close()

	orderService := service.NewOrderService(logger, txManager, orderRepo, stockProvider, notifier, orderCache, service.Config{
		PaymentTimeout:   conf.Orders.PaymentTimeout,
		SweepConcurrency: conf.Orders.SweepConcurrency,
	})

	kafkaHandler := handler.NewKafkaHandler(logger, conf.Kafka, orderService)
	httpHandler := handler.NewHTTPHandler(logger, orderService)
	orderSweeper := sweeper.New(logger, orderService, conf.Orders.SweepInterval)

	app := app.New(logger, conf)

	app.SetHTTPHandlers(httpHandler)
	app.SetConsumers(kafkaHandler)
	app.SetStarters(orderCache, orderSweeper)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	panicIfErr("failed to start app", app.Start(ctx))
	<-ctx.Done()
	panicIfErr("failed to stop app", app.Stop())
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}

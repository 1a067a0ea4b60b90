package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/community-gateway/internal/config"
	gateway "github.com/nimasrn/community-gateway/internal/gateways"
	"github.com/nimasrn/community-gateway/internal/processor"
	"github.com/nimasrn/community-gateway/internal/repository"
	"github.com/nimasrn/community-gateway/internal/services"
	"github.com/nimasrn/community-gateway/internal/storage"
	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"github.com/nimasrn/community-gateway/pkg/prom"
	"github.com/nimasrn/community-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting callback processor", "version", version, "commit", commit, "date", date)

	readConf := pg.Config{
		User:     cfg.PostgresReadUser,
		Host:     cfg.PostgresReadHost,
		Port:     cfg.PostgresReadPort,
		Password: cfg.PostgresReadPassword,
		Database: cfg.PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDatabase,
	}

	db, err := pg.CreateReadWrite(readConf, writeConf, cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: cfg.AppName + "-processor",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)

	// reconciliation never opens a checkout, the client only satisfies the service
	payments, err := gateway.NewClient(&gateway.Config{
		TransactionURL: cfg.PaymentTransactionUrl,
		AuthString:     cfg.PaymentAuthString,
		FinishURL:      cfg.PaymentSuccessUrl,
		Timeout:        cfg.PaymentTimeout,
	})
	if err != nil {
		logger.Error("failed to create payment gateway client", "error", err)
		return
	}

	files := storage.NewLocal(cfg.AssetRootDir, nil)
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	chatRepo := repository.NewChatRepository(db)
	transactionService := services.NewTransactionService(
		repository.NewTransactionRepository(db),
		repository.NewPayoutRepository(db),
		groupRepo, chatRepo, userRepo, payments, files,
	)

	idempotencyConfig := processor.DefaultIdempotencyConfig()
	idempotencyConfig.MaxRetries = cfg.QueueMaxRetries
	idempotencyService := processor.NewIdempotencyService(redisAdap, idempotencyConfig)

	service := processor.NewProcessorService(redisAdap, processor.Options{
		Queue:     processor.QueueConfigFromEnv(),
		Consumers: 4,
		Workers:   32,
		Buffer:    1_000,
	})
	service.RegisterProcessor(processor.NewPaymentCallbackProcessor(transactionService, idempotencyService))

	if err = service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}

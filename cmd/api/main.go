package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/community-gateway/internal/config"
	gateway "github.com/nimasrn/community-gateway/internal/gateways"
	"github.com/nimasrn/community-gateway/internal/handlers"
	"github.com/nimasrn/community-gateway/internal/processor"
	"github.com/nimasrn/community-gateway/internal/queue"
	"github.com/nimasrn/community-gateway/internal/realtime"
	"github.com/nimasrn/community-gateway/internal/repository"
	"github.com/nimasrn/community-gateway/internal/services"
	"github.com/nimasrn/community-gateway/internal/storage"
	xhttp "github.com/nimasrn/community-gateway/pkg/http"
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

const relayTimeout = 2 * time.Second

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	s := xhttp.CreateServer(func(o *xhttp.ServerOption) {
		if cfg.HttpServerReadBufferSize > 0 {
			o.ReadBufferSize = cfg.HttpServerReadBufferSize
		}
		if cfg.HttpServerWriteBufferSize > 0 {
			o.WriteBufferSize = cfg.HttpServerWriteBufferSize
		}
	})
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RateLimitMiddleware(float64(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute))
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))

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

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)

	checks := map[string]handlers.HealthCheck{"postgres": db.Ping}

	// redis is optional: without it chat events are dropped and callbacks
	// are reconciled inline
	var relay realtime.Publisher = realtime.NopRelay{}
	var callbacks *queue.Queue
	if cfg.RedisAddr != "" {
		redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{cfg.RedisAddr},
			ClientName: cfg.AppName,
			DB:         cfg.RedisDatabase,
			Username:   cfg.RedisUsername,
			Password:   cfg.RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		checks["redis"] = func(ctx context.Context) error {
			return redisAdap.Client().Ping(ctx).Err()
		}

		async := realtime.NewAsyncRelay(realtime.NewRedisRelay(redisAdap), relayTimeout)
		defer async.Wait()
		relay = async

		if cfg.PaymentCallbackQueue != "" {
			callbacks, err = queue.NewQueue(context.Background(), redisAdap, processor.QueueConfigFromEnv())
			if err != nil {
				logger.Error("failed creating callback queue", "error", err)
				return
			}
		}
	}

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

	files := storage.NewLocal(cfg.AssetRootDir, map[storage.Kind]string{
		storage.UserPhoto:   cfg.AssetUserUrl,
		storage.GroupPhoto:  cfg.AssetGroupUrl,
		storage.GroupAsset:  cfg.AssetGroupAssetUrl,
		storage.Attachment:  cfg.AssetAttachmentUrl,
		storage.PayoutProof: cfg.AssetPayoutProofUrl,
	})

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	chatRepo := repository.NewChatRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)

	// services
	userService := services.NewUserService(userRepo, files)
	groupService := services.NewGroupService(groupRepo, chatRepo, userRepo, files)
	chatService := services.NewChatService(chatRepo, userRepo, files, relay)
	transactionService := services.NewTransactionService(transactionRepo, payoutRepo, groupRepo, chatRepo, userRepo, payments, files)

	// v1 handlers
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	if callbacks != nil {
		transactionHandler.WithCallbackQueue(callbacks)
	}

	g := s.Router.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(checks))
	handlers.RegisterUserRoutes(g, handlers.NewUserHandler(userService))
	handlers.RegisterGroupRoutes(g, handlers.NewGroupHandler(groupService))
	handlers.RegisterChatRoutes(g, handlers.NewChatHandler(chatService))
	handlers.RegisterTransactionRoutes(g, transactionHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
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

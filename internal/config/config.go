package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every configuration value of the platform. Nothing else may read
// the environment directly; binaries receive values through Get().
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=community_gateway"`
	AppDebug            bool   `env:"APP_DEBUG,default=1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR,default=:9100"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`
	AppBaseUrl          string `env:"APP_BASE_URL"`

	HttpListenAddr            string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpServerReadBufferSize  int           `env:"HTTP_SERVER_READ_BUFFER_SIZE"`
	HttpServerWriteBufferSize int           `env:"HTTP_SERVER_WRITE_BUFFER_SIZE"`
	HttpRequestTimeout        time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=5s"`
	RateLimitRPS              int           `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst            int           `env:"RATE_LIMIT_BURST,default=40"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=community:"`

	PromNamespace string `env:"PROM_NAMESPACE,default=community_gateway"`

	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=payment-callbacks"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=5"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=500ms"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=20"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	PaymentTransactionUrl string        `env:"PAYMENT_TRANSACTION_URL"`
	PaymentAuthString     string        `env:"PAYMENT_AUTH_STRING"`
	PaymentSuccessUrl     string        `env:"PAYMENT_SUCCESS_URL"`
	PaymentTimeout        time.Duration `env:"PAYMENT_TIMEOUT,default=15s"`
	PaymentCallbackQueue  string        `env:"PAYMENT_CALLBACK_QUEUE"`

	RelayListenAddr     string        `env:"RELAY_LISTEN_ADDR,default=:8090"`
	RelayAllowedOrigins string        `env:"RELAY_ALLOWED_ORIGINS"`
	RelaySendBuffer     int           `env:"RELAY_SEND_BUFFER,default=256"`
	RelayPongWait       time.Duration `env:"RELAY_PONG_WAIT,default=60s"`

	AssetRootDir        string `env:"ASSET_ROOT_DIR,default=public/uploads"`
	AssetUserUrl        string `env:"ASSET_USER_URL"`
	AssetGroupUrl       string `env:"ASSET_GROUP_URL"`
	AssetGroupAssetUrl  string `env:"ASSET_GROUP_ASSET_URL"`
	AssetAttachmentUrl  string `env:"ASSET_ATTACHMENT_URL"`
	AssetPayoutProofUrl string `env:"ASSET_PAYOUT_PROOF_URL"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Set replaces the loaded configuration. Used by binaries assembling a config
// in code and by tests.
func Set(c *Config) {
	config = c
}

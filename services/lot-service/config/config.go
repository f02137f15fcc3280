package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/spf13/viper"
)

// Config содержит все настройки сервиса
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	Redis struct {
		Enabled  bool
		Host     string
		Port     int
		Password string
		DB       int
		Prefix   string
		// CleanupInterval период очистки кэша в памяти, если Redis выключен
		CleanupInterval time.Duration
	}

	Kafka struct {
		Enabled           bool     `mapstructure:"enabled"`
		Brokers           []string `mapstructure:"brokers"`
		ClientID          string   `mapstructure:"client_id"`
		GroupID           string   `mapstructure:"group_id"`
		EventsTopic       string   `mapstructure:"events_topic"`
		Partitions        int      `mapstructure:"partitions"`
		ReplicationFactor int      `mapstructure:"replication_factor"`
	}

	Metrics struct {
		Enabled bool
		Port    int `mapstructure:"port"`
	}

	Security struct {
		CORSAllowOrigins []string
		RateLimit        int
		RateWindow       time.Duration
		RequestTimeout   time.Duration
	}

	FunPay struct {
		BaseURL          string
		UserAgent        string
		Locale           string
		RequestTimeout   time.Duration
		CloudflareBypass bool
	}

	Copy struct {
		Workers             int
		QueueSize           int
		ImageTimeout        time.Duration
		ImageMaxBytes       int64
		RetryOnExpiry       bool
		MaxSessionRefreshes int
		LockTTL             time.Duration
		JobTTL              time.Duration
		OperationTimeout    time.Duration
		DefaultCurrency     string
	}

	// Fields имена полей формы лота; меняются вместе с версткой маркетплейса
	Fields models.FieldLayout
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}

	var cfg Config

	v := viper.New()
	v.SetConfigName(configFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("../../config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// Продолжаем, если файл не найден, будем использовать только переменные окружения
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	cfg.ENV = v.GetString("env")
	if cfg.ENV == "" {
		cfg.ENV = "development"
		if envVar := os.Getenv("APP_ENV"); envVar != "" {
			cfg.ENV = envVar
		}
	}

	if err := cfg.Fields.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная схема полей формы: %w", err)
	}

	return &cfg, nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	// Основные настройки
	v.SetDefault("appName", "lot-service")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "development")

	// Настройки сервера
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	// копирование держит соединение до конца, поэтому таймаут записи большой
	v.SetDefault("server.writeTimeout", "30m")
	v.SetDefault("server.shutdownTimeout", "30s")

	// Настройки Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "lot-service:")
	v.SetDefault("redis.cleanupInterval", "5m")

	// Настройки Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "lot-service")
	v.SetDefault("kafka.group_id", "lot-service-worker")
	v.SetDefault("kafka.events_topic", "lot-copy-events")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)

	// Настройки метрик
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9100)

	// Настройки безопасности
	v.SetDefault("security.corsAllowOrigins", []string{"*"})
	v.SetDefault("security.rateLimit", 600)
	v.SetDefault("security.rateWindow", "1m")
	v.SetDefault("security.requestTimeout", "60s")

	// Настройки маркетплейса
	v.SetDefault("funpay.baseURL", "https://funpay.com")
	v.SetDefault("funpay.userAgent", "")
	v.SetDefault("funpay.locale", "ru")
	v.SetDefault("funpay.requestTimeout", "30s")
	v.SetDefault("funpay.cloudflareBypass", false)

	// Настройки копирования
	v.SetDefault("copy.workers", 4)
	v.SetDefault("copy.queueSize", 16)
	v.SetDefault("copy.imageTimeout", "10s")
	v.SetDefault("copy.imageMaxBytes", 10<<20)
	v.SetDefault("copy.retryOnExpiry", false)
	v.SetDefault("copy.maxSessionRefreshes", 1)
	v.SetDefault("copy.lockTTL", "30m")
	v.SetDefault("copy.jobTTL", "24h")
	v.SetDefault("copy.operationTimeout", "0s")
	v.SetDefault("copy.defaultCurrency", "RUB")

	// Схема полей формы лота
	layout := models.DefaultFieldLayout()
	v.SetDefault("fields.csrfToken", layout.CSRFToken)
	v.SetDefault("fields.offerId", layout.OfferID)
	v.SetDefault("fields.offerIdValue", layout.OfferIDValue)
	v.SetDefault("fields.nodeId", layout.NodeID)
	v.SetDefault("fields.price", layout.Price)
	v.SetDefault("fields.summary", layout.Summary)
	v.SetDefault("fields.description", layout.Description)
	v.SetDefault("fields.server", layout.Server)
	v.SetDefault("fields.amount", layout.Amount)
	v.SetDefault("fields.autoDelivery", layout.AutoDelivery)
	v.SetDefault("fields.checkedValue", layout.CheckedValue)
	v.SetDefault("fields.attributes", layout.Attributes)
	v.SetDefault("fields.pairFormat", layout.PairFormat)
	v.SetDefault("fields.pairJoiner", layout.PairJoiner)
	v.SetDefault("fields.photo", layout.Photo)
	v.SetDefault("fields.locales", layout.Locales)
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables(v *viper.Viper) {
	// Основные настройки
	v.BindEnv("appName", "APP_NAME")
	v.BindEnv("version", "APP_VERSION")
	v.BindEnv("logLevel", "LOG_LEVEL")
	v.BindEnv("env", "APP_ENV")

	// Настройки сервера
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.readTimeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.writeTimeout", "SERVER_WRITE_TIMEOUT")
	v.BindEnv("server.shutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT")

	// Настройки Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("redis.prefix", "REDIS_PREFIX")
	v.BindEnv("redis.cleanupInterval", "REDIS_CLEANUP_INTERVAL")

	// Настройки Kafka
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.client_id", "KAFKA_CLIENT_ID")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("kafka.events_topic", "KAFKA_EVENTS_TOPIC")
	v.BindEnv("kafka.partitions", "KAFKA_PARTITIONS")
	v.BindEnv("kafka.replication_factor", "KAFKA_REPLICATION_FACTOR")

	// Настройки метрик
	v.BindEnv("metrics.enabled", "METRICS_ENABLED")
	v.BindEnv("metrics.port", "METRICS_PORT")

	// Настройки безопасности
	v.BindEnv("security.corsAllowOrigins", "CORS_ALLOW_ORIGINS")
	v.BindEnv("security.rateLimit", "RATE_LIMIT")
	v.BindEnv("security.rateWindow", "RATE_WINDOW")
	v.BindEnv("security.requestTimeout", "REQUEST_TIMEOUT")

	// Настройки маркетплейса
	v.BindEnv("funpay.baseURL", "FUNPAY_BASE_URL")
	v.BindEnv("funpay.userAgent", "FUNPAY_USER_AGENT")
	v.BindEnv("funpay.locale", "FUNPAY_LOCALE")
	v.BindEnv("funpay.requestTimeout", "FUNPAY_REQUEST_TIMEOUT")
	v.BindEnv("funpay.cloudflareBypass", "FUNPAY_CLOUDFLARE_BYPASS")

	// Настройки копирования
	v.BindEnv("copy.workers", "COPY_WORKERS")
	v.BindEnv("copy.queueSize", "COPY_QUEUE_SIZE")
	v.BindEnv("copy.imageTimeout", "COPY_IMAGE_TIMEOUT")
	v.BindEnv("copy.imageMaxBytes", "COPY_IMAGE_MAX_BYTES")
	v.BindEnv("copy.retryOnExpiry", "COPY_RETRY_ON_EXPIRY")
	v.BindEnv("copy.maxSessionRefreshes", "COPY_MAX_SESSION_REFRESHES")
	v.BindEnv("copy.lockTTL", "COPY_LOCK_TTL")
	v.BindEnv("copy.jobTTL", "COPY_JOB_TTL")
	v.BindEnv("copy.operationTimeout", "COPY_OPERATION_TIMEOUT")
	v.BindEnv("copy.defaultCurrency", "COPY_DEFAULT_CURRENCY")
}

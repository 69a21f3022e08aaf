// Package config предоставляет загрузку конфигурации магазина из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию приложения.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	MySQL     MySQLConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	Jaeger    JaegerConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	AlfaBank  AlfaBankConfig
	Telegram  TelegramConfig
	Email     EmailConfig
	Client    ClientConfig
	Worker    WorkerConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name           string `env:"APP_NAME" envDefault:"jewelry-shop"`
	Env            string `env:"APP_ENV" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
}

// HTTPConfig содержит настройки публичного HTTP API.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"1337"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Addr возвращает адрес для HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MySQLConfig содержит настройки подключения к MySQL.
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"jewelry_shop"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки публикации событий.
// Пустой список брокеров отключает отправку outbox в Kafka.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_ORDERS_TOPIC" envDefault:"shop.orders"`
}

// Enabled возвращает true, если указан хотя бы один брокер.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// JWTConfig содержит настройки токенов операторов (RS256).
// PrivateKeyPath нужен только утилите выпуска токенов.
type JWTConfig struct {
	PrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"jewelry-shop"`
	TokenTTL       time.Duration `env:"JWT_TOKEN_TTL" envDefault:"720h"`
}

// Enabled возвращает true, если задан публичный ключ для проверки токенов.
func (c JWTConfig) Enabled() bool {
	return c.PublicKeyPath != ""
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"false"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"`
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RateLimitConfig содержит настройки ограничения запросов.
type RateLimitConfig struct {
	Enabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Limit   int           `env:"RATE_LIMIT_REQUESTS" envDefault:"120"`
	Window  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// AlfaBankConfig содержит настройки платёжного шлюза Альфа-Банка.
type AlfaBankConfig struct {
	PaymentURL  string        `env:"PAYMENT_URL" envDefault:"https://ecom.alfabank.by/payment/rest/"`
	Username    string        `env:"ALPHA_USERNAME"`
	Password    string        `env:"ALPHA_PASSWORD"`
	ReturnURL   string        `env:"RETURN_URL" envDefault:"http://localhost:1337/payments/success"`
	FailureURL  string        `env:"FAILURE_URL" envDefault:"http://localhost:1337/payments/failure"`
	OrderOffset uint64        `env:"ALPHA_ORDER_OFFSET" envDefault:"100000"`
	Timeout     time.Duration `env:"ALPHA_TIMEOUT" envDefault:"15s"`
}

// TelegramConfig содержит настройки бота для уведомлений операторов.
type TelegramConfig struct {
	BotToken      string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID        int64  `env:"TELEGRAM_CHAT_ID"`
	WebhookURL    string `env:"TELEGRAM_WEBHOOK_URL"`
	WebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`
	APIEndpoint   string `env:"TELEGRAM_API_ENDPOINT" envDefault:"https://api.telegram.org/bot%s/%s"`
}

// Enabled возвращает true, если бот настроен.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

// EmailConfig содержит настройки отправки писем через Resend.
type EmailConfig struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	From         string `env:"EMAIL_FROM"`
}

// Enabled возвращает true, если отправка писем настроена.
func (c EmailConfig) Enabled() bool {
	return c.ResendAPIKey != "" && c.From != ""
}

// ClientConfig содержит адрес клиентского приложения для редиректов.
type ClientConfig struct {
	BaseURL string `env:"BASE_CLIENT_URL" envDefault:"http://localhost:3000"`
}

// WorkerConfig содержит настройки фоновой очереди задач.
type WorkerConfig struct {
	Concurrency int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	QueueSize   int           `env:"WORKER_QUEUE_SIZE" envDefault:"256"`
	TaskTimeout time.Duration `env:"WORKER_TASK_TIMEOUT" envDefault:"30s"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return parse()
}

// LoadFromFile загружает конфигурацию из указанного .env файла.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("ошибка загрузки .env файла %s: %w", path, err)
	}

	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true, если приложение запущено в production режиме.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	ObjectStorage           `yaml:"object_storage"`
	AIProvider              `yaml:"ai_provider"`
	Billing                 `yaml:"billing"`
	Sweeper                 `yaml:"sweeper"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для настройки подключения к брокеру очередей.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// ObjectStorage структура для настройки S3-совместимого хранилища отчётов.
type ObjectStorage struct {
	S3Region          string        `yaml:"region" env-default:"us-east-1"`
	S3Bucket          string        `yaml:"bucket"`
	S3Endpoint        string        `yaml:"endpoint"`
	S3AccessKeyID     string        `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	UploadURLTTL      time.Duration `yaml:"upload_url_ttl" env-default:"15m"`
}

// AIProvider структура для настройки клиента генеративного сервиса.
type AIProvider struct {
	AnthropicAPIKey string        `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	AITimeout       time.Duration `yaml:"timeout" env-default:"120s"`
}

// Billing структура c настройками платёжного вебхука и начисления кредитов.
type Billing struct {
	WebhookSecret       string  `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	CommissionRate      float64 `yaml:"commission_rate" env-default:"0.1"`
	CreditsPlanStarter  int     `yaml:"credits_plan_starter" env-default:"3"`
	CreditsPlanPro      int     `yaml:"credits_plan_pro" env-default:"10"`
}

// Sweeper структура с настройками фоновой уборки брошенных загрузок.
type Sweeper struct {
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1h"`
	UploadMaxAge  time.Duration `yaml:"upload_max_age" env-default:"24h"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

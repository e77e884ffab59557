package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port           string   `yaml:"port"`
	GinMode        string   `yaml:"ginMode"`
	PublicBaseURL  string   `yaml:"publicBaseUrl"`
	UploadDir      string   `yaml:"uploadDir"`
	LogLevel       string   `yaml:"logLevel"`
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// OrderRatePerMinute caps anonymous order placement per IP; 0 disables it.
	OrderRatePerMinute int `yaml:"orderRatePerMinute"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // mysql, postgres or sqlite
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTtl"`
}

type OrdersConfig struct {
	RequirePOSVerification bool `yaml:"requirePosVerification"`
	TakeoutPrepMinutes     int  `yaml:"takeoutPrepMinutes"`
	DineInPrepMinutes      int  `yaml:"dineInPrepMinutes"`
	OrderNumberLength      int  `yaml:"orderNumberLength"`
	OrderNumberAttempts    int  `yaml:"orderNumberAttempts"`
}

type RealtimeConfig struct {
	RedisAddr    string `yaml:"redisAddr"`
	RedisChannel string `yaml:"redisChannel"`
	AMQPURL      string `yaml:"amqpUrl"`
	AMQPExchange string `yaml:"amqpExchange"`
	QueueSize    int    `yaml:"queueSize"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Orders   OrdersConfig   `yaml:"orders"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			GinMode:        "debug",
			PublicBaseURL:  "http://localhost:8080",
			UploadDir:      "public/uploads",
			LogLevel:       "info",
			AllowedOrigins: []string{"http://127.0.0.1:5500", "http://localhost:5173"},

			OrderRatePerMinute: 30,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "cafe.db",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Orders: OrdersConfig{
			RequirePOSVerification: true,
			TakeoutPrepMinutes:     10,
			DineInPrepMinutes:      15,
			OrderNumberLength:      5,
			OrderNumberAttempts:    10,
		},
		Realtime: RealtimeConfig{
			RedisChannel: "cafe:order-events",
			AMQPExchange: "cafe.order-events",
			QueueSize:    256,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CAFE_CONFIG (if any), then .env and the process environment.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CAFE_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	// a missing .env is normal outside development
	_ = godotenv.Load()

	applyEnv(&cfg)

	if cfg.Auth.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = envOrDefault("PORT", cfg.Server.Port)
	cfg.Server.GinMode = envOrDefault("GIN_MODE", cfg.Server.GinMode)
	cfg.Server.PublicBaseURL = envOrDefault("PUBLIC_BASE_URL", cfg.Server.PublicBaseURL)
	cfg.Server.UploadDir = envOrDefault("UPLOAD_DIR", cfg.Server.UploadDir)
	cfg.Server.LogLevel = envOrDefault("LOG_LEVEL", cfg.Server.LogLevel)
	cfg.Server.OrderRatePerMinute = envOrDefaultInt("ORDER_RATE_PER_MINUTE", cfg.Server.OrderRatePerMinute)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}

	cfg.Database.Driver = envOrDefault("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = envOrDefault("DB_DSN", cfg.Database.DSN)

	cfg.Auth.JWTSecret = envOrDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = envOrDefaultDuration("TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.Orders.RequirePOSVerification = envOrDefaultBool("REQUIRE_POS_VERIFICATION", cfg.Orders.RequirePOSVerification)
	cfg.Orders.TakeoutPrepMinutes = envOrDefaultInt("TAKEOUT_PREP_MINUTES", cfg.Orders.TakeoutPrepMinutes)
	cfg.Orders.DineInPrepMinutes = envOrDefaultInt("DINE_IN_PREP_MINUTES", cfg.Orders.DineInPrepMinutes)

	cfg.Realtime.RedisAddr = envOrDefault("REDIS_ADDR", cfg.Realtime.RedisAddr)
	cfg.Realtime.RedisChannel = envOrDefault("REDIS_CHANNEL", cfg.Realtime.RedisChannel)
	cfg.Realtime.AMQPURL = envOrDefault("AMQP_URL", cfg.Realtime.AMQPURL)
	cfg.Realtime.AMQPExchange = envOrDefault("AMQP_EXCHANGE", cfg.Realtime.AMQPExchange)
	cfg.Realtime.QueueSize = envOrDefaultInt("REALTIME_QUEUE_SIZE", cfg.Realtime.QueueSize)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

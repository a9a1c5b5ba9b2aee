package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server ServerConfig
	DB     DBConfig
	CORS   CORSConfig
	Log    LogConfig
	JWT    JWTConfig
	Engine EngineConfig
	Fees   FeeConfig
	Events EventsConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"Asia/Bangkok"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"Asia/Bangkok"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"25200"` // 7*60*60
}

type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET" required:"true"`
}

type EngineConfig struct {
	SweepInterval            time.Duration `envconfig:"ENGINE_SWEEP_INTERVAL" default:"60s"`
	SweepWorkers             int           `envconfig:"ENGINE_SWEEP_WORKERS" default:"8"`
	SuggestedPriceWindow     int           `envconfig:"ENGINE_SUGGESTED_PRICE_WINDOW" default:"20"`
	SettlementMaxAttempts    int           `envconfig:"ENGINE_SETTLEMENT_MAX_ATTEMPTS" default:"5"`
	SettlementBackoff        time.Duration `envconfig:"ENGINE_SETTLEMENT_BACKOFF" default:"50ms"`
	RestoreOnStart           bool          `envconfig:"ENGINE_RESTORE_ON_START" default:"true"`
	DefaultExpiryDays        int           `envconfig:"ENGINE_DEFAULT_EXPIRY_DAYS" default:"30"`
	AllowedExpiryDaysChoices []int         `envconfig:"ENGINE_EXPIRY_DAY_CHOICES" default:"3,7,14,30"`
}

// Rates are decimal strings so no float rounding happens before they reach
// the fee calculator.
type FeeConfig struct {
	SellerCommissionRate string `envconfig:"FEE_SELLER_COMMISSION_RATE" default:"0.04"`
	TransactionFeeRate   string `envconfig:"FEE_TRANSACTION_FEE_RATE" default:"0.03"`
	BuyerFeeRate         string `envconfig:"FEE_BUYER_FEE_RATE" default:"0"`
}

type EventsConfig struct {
	Driver        string        `envconfig:"EVENTS_DRIVER" default:"sarama"`
	Brokers       []string      `envconfig:"EVENTS_BROKERS" default:"localhost:9092"`
	Topic         string        `envconfig:"EVENTS_TOPIC" default:"offer-engine.events"`
	RelayInterval time.Duration `envconfig:"EVENTS_RELAY_INTERVAL" default:"2s"`
	BatchSize     int           `envconfig:"EVENTS_BATCH_SIZE" default:"100"`
	MaxAttempts   int           `envconfig:"EVENTS_MAX_ATTEMPTS" default:"10"`
}

const (
	EventsDriverSarama  = "sarama"
	EventsDriverKafkaGo = "kafka-go"
	EventsDriverLog     = "log"
)

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	// .env is optional; real environments inject variables directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with. Fee rates are checked
// where they are parsed.
func (c Config) Validate() error {
	e := c.Engine
	if e.SettlementMaxAttempts < 1 {
		return errors.New("ENGINE_SETTLEMENT_MAX_ATTEMPTS must be at least 1")
	}
	if e.SuggestedPriceWindow < 1 {
		return errors.New("ENGINE_SUGGESTED_PRICE_WINDOW must be at least 1")
	}
	if e.DefaultExpiryDays < 1 {
		return errors.New("ENGINE_DEFAULT_EXPIRY_DAYS must be at least 1")
	}
	if len(e.AllowedExpiryDaysChoices) > 0 && !slices.Contains(e.AllowedExpiryDaysChoices, e.DefaultExpiryDays) {
		return fmt.Errorf("default expiry %d days is not one of ENGINE_EXPIRY_DAY_CHOICES %v",
			e.DefaultExpiryDays, e.AllowedExpiryDaysChoices)
	}
	switch c.Events.Driver {
	case EventsDriverSarama, EventsDriverKafkaGo:
		if len(c.Events.Brokers) == 0 {
			return errors.New("EVENTS_BROKERS is required for kafka drivers")
		}
	case EventsDriverLog:
	default:
		return fmt.Errorf("unknown EVENTS_DRIVER %q", c.Events.Driver)
	}
	if c.Events.BatchSize < 1 {
		return errors.New("EVENTS_BATCH_SIZE must be at least 1")
	}
	return nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "Asia/Bangkok",
			MaxConns: 10,
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "Asia/Bangkok",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 25200,
		},
		JWT: JWTConfig{
			Secret: "test-secret",
		},
		Engine: EngineConfig{
			SweepInterval:            time.Second,
			SweepWorkers:             4,
			SuggestedPriceWindow:     20,
			SettlementMaxAttempts:    3,
			SettlementBackoff:        time.Millisecond,
			RestoreOnStart:           true,
			DefaultExpiryDays:        30,
			AllowedExpiryDaysChoices: []int{3, 7, 14, 30},
		},
		Fees: FeeConfig{
			SellerCommissionRate: "0.04",
			TransactionFeeRate:   "0.03",
			BuyerFeeRate:         "0",
		},
		Events: EventsConfig{
			Driver:        EventsDriverLog,
			Topic:         "offer-engine.events",
			RelayInterval: 50 * time.Millisecond,
			BatchSize:     100,
			MaxAttempts:   10,
		},
	}
}

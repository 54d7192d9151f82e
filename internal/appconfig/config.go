package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/shopAuth"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SHOPAUTH"

// Store backends.
const (
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Notifier backends.
const (
	NotifierTwilio = "twilio"
	NotifierLog    = "log"
)

// Audit sinks.
const (
	AuditSinkLog   = "log"
	AuditSinkKafka = "kafka"
)

type AppConfig struct {
	Server   ServerSettings   `mapstructure:"server"`
	Auth     AuthSettings     `mapstructure:"auth"`
	Twilio   TwilioSettings   `mapstructure:"twilio"`
	MongoDB  MongoSettings    `mapstructure:"mongodb"`
	Redis    RedisSettings    `mapstructure:"redis"`
	Store    StoreSettings    `mapstructure:"store"`
	Notifier NotifierSettings `mapstructure:"notifier"`
	Audit    AuditSettings    `mapstructure:"audit"`
	Kafka    KafkaSettings    `mapstructure:"kafka"`
	Metrics  MetricsSettings  `mapstructure:"metrics"`
}

type ServerSettings struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Env                string        `mapstructure:"env"`
	LogLevel           string        `mapstructure:"log_level"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthSettings keeps the integer-seconds keys of the legacy config.toml.
type AuthSettings struct {
	LoginOTPTTL         int           `mapstructure:"login_otp_ttl"`
	LoginOTPMaxAttempts int           `mapstructure:"login_otp_max_attempts"`
	OTPLength           int           `mapstructure:"otp_length"`
	OTPRetention        time.Duration `mapstructure:"otp_retention"`
	AuthTokenTTL        int           `mapstructure:"auth_token_ttl"`
	EnforceTokenTTL     bool          `mapstructure:"enforce_token_ttl"`
	OTPMessage          string        `mapstructure:"otp_message"`
	SendLimit           SendLimit     `mapstructure:"send_limit"`
	Grant               GrantSettings `mapstructure:"grant"`
}

type SendLimit struct {
	Enabled  bool          `mapstructure:"enabled"`
	MaxSends int           `mapstructure:"max_sends"`
	Window   time.Duration `mapstructure:"window"`
}

type GrantSettings struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Secret  string        `mapstructure:"secret"`
	Issuer  string        `mapstructure:"issuer"`
}

type TwilioSettings struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	SMSFromPh  string `mapstructure:"sms_from_ph"`
}

type MongoSettings struct {
	URI string `mapstructure:"uri"`
	DB  string `mapstructure:"db"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type StoreSettings struct {
	Backend          string        `mapstructure:"backend"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

type NotifierSettings struct {
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuditSettings struct {
	Enabled    bool   `mapstructure:"enabled"`
	Sink       string `mapstructure:"sink"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type KafkaSettings struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsSettings struct {
	Enabled           bool   `mapstructure:"enabled"`
	LatencyHistograms bool   `mapstructure:"latency_histograms"`
	Path              string `mapstructure:"path"`
}

// Load reads path (TOML) when it exists, then .env, then the environment.
// An empty path looks for config.toml in the working directory and is
// silently skipped when absent.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if path == "" {
		path = "config.toml"
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := bindEnvs(v, v.AllKeys()); err != nil {
		return nil, err
	}
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("auth.login_otp_ttl", 300)
	v.SetDefault("auth.login_otp_max_attempts", 5)
	v.SetDefault("auth.otp_length", 4)
	v.SetDefault("auth.otp_retention", "24h")
	v.SetDefault("auth.auth_token_ttl", 86400)
	v.SetDefault("auth.enforce_token_ttl", true)
	v.SetDefault("auth.otp_message", shopAuth.DefaultMessageTemplate)
	v.SetDefault("auth.send_limit.enabled", false)
	v.SetDefault("auth.send_limit.max_sends", 5)
	v.SetDefault("auth.send_limit.window", "15m")
	v.SetDefault("auth.grant.enabled", false)
	v.SetDefault("auth.grant.ttl", "10m")
	v.SetDefault("auth.grant.secret", "")
	v.SetDefault("auth.grant.issuer", "shopauth")

	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.sms_from_ph", "")

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.db", "shop")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sa")

	v.SetDefault("store.backend", StoreMongo)
	v.SetDefault("store.operation_timeout", "3s")

	v.SetDefault("notifier.backend", NotifierTwilio)
	v.SetDefault("notifier.timeout", "10s")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.sink", AuditSinkLog)
	v.SetDefault("audit.buffer_size", 1024)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "shopauth.audit")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency_histograms", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks the backend selections and the settings they need.
func (c *AppConfig) Validate() error {
	switch c.Store.Backend {
	case StoreRedis, StoreMemory:
	case StoreMongo:
		if c.MongoDB.URI == "" || c.MongoDB.DB == "" {
			return errors.New("mongodb uri and db are required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Notifier.Backend {
	case NotifierLog:
	case NotifierTwilio:
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.SMSFromPh == "" {
			return errors.New("twilio account_sid, auth_token and sms_from_ph are required")
		}
	default:
		return fmt.Errorf("unknown notifier backend %q", c.Notifier.Backend)
	}

	if c.Audit.Enabled {
		switch c.Audit.Sink {
		case AuditSinkLog:
		case AuditSinkKafka:
			if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
				return errors.New("kafka brokers and topic are required for the kafka audit sink")
			}
		default:
			return fmt.Errorf("unknown audit sink %q", c.Audit.Sink)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	engine := c.EngineConfig()
	return engine.Validate()
}

// Addr is the HTTP listen address.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// EngineConfig maps the file settings onto the engine configuration.
func (c *AppConfig) EngineConfig() shopAuth.Config {
	cfg := shopAuth.DefaultConfig()

	cfg.OTP.TTL = time.Duration(c.Auth.LoginOTPTTL) * time.Second
	cfg.OTP.MaxAttempts = c.Auth.LoginOTPMaxAttempts
	cfg.OTP.Length = c.Auth.OTPLength
	cfg.OTP.Retention = c.Auth.OTPRetention
	if c.Auth.OTPMessage != "" {
		cfg.OTP.MessageTemplate = c.Auth.OTPMessage
	}
	cfg.OTP.SendLimit.Enabled = c.Auth.SendLimit.Enabled
	cfg.OTP.SendLimit.MaxSends = c.Auth.SendLimit.MaxSends
	cfg.OTP.SendLimit.Window = c.Auth.SendLimit.Window
	if c.Redis.Prefix != "" {
		cfg.OTP.SendLimit.RedisPrefix = c.Redis.Prefix + ":otp_send"
	}

	cfg.Token.TTL = time.Duration(c.Auth.AuthTokenTTL) * time.Second
	cfg.Token.EnforceTTL = c.Auth.EnforceTokenTTL

	cfg.Grant.Enabled = c.Auth.Grant.Enabled
	cfg.Grant.TTL = c.Auth.Grant.TTL
	cfg.Grant.Issuer = c.Auth.Grant.Issuer
	if c.Auth.Grant.Secret != "" {
		cfg.Grant.PrivateKey = []byte(c.Auth.Grant.Secret)
	}

	cfg.Delivery.Timeout = c.Notifier.Timeout
	cfg.Store.OperationTimeout = c.Store.OperationTimeout

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.LatencyHistograms

	return cfg
}

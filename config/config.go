package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Gateways GatewaysConfig `mapstructure:"gateways"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

// LedgerConfig identifies the platform clearing wallet that balances
// externally-funded journals.
type LedgerConfig struct {
	ClearingWalletID string `mapstructure:"clearing_wallet_id"`
}

type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Batch    int           `mapstructure:"batch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// GatewaysConfig groups per-gateway credentials and routes.
type GatewaysConfig struct {
	VNPay VNPayConfig `mapstructure:"vnpay"`
	Momo  MomoConfig  `mapstructure:"momo"`
	PayOS PayOSConfig `mapstructure:"payos"`
}

// VNPayConfig holds VNPay credentials and per-flow routes.
type VNPayConfig struct {
	TmnCode    string            `mapstructure:"tmn_code"`
	HashSecret string            `mapstructure:"hash_secret"`
	PayURL     string            `mapstructure:"pay_url"`
	ReturnURLs map[string]string `mapstructure:"return_urls"` // keyed by flow
}

// IsConfiguredFor reports whether the gateway can serve the given flow.
// An empty flow checks credentials only.
func (c VNPayConfig) IsConfiguredFor(flow string) bool {
	if c.TmnCode == "" || c.HashSecret == "" || c.PayURL == "" {
		return false
	}
	return flow == "" || c.ReturnURLs[flowKey(flow)] != ""
}

// RedirectURL builds the browser return URL for a flow.
func (c VNPayConfig) RedirectURL(flow string, params map[string]string) (string, bool) {
	tpl, ok := c.ReturnURLs[flowKey(flow)]
	if !ok || tpl == "" {
		return "", false
	}
	return expandRoute(tpl, params), true
}

// MomoConfig holds MoMo credentials and per-flow routes.
type MomoConfig struct {
	PartnerCode  string            `mapstructure:"partner_code"`
	AccessKey    string            `mapstructure:"access_key"`
	SecretKey    string            `mapstructure:"secret_key"`
	Endpoint     string            `mapstructure:"endpoint"`
	IPNURL       string            `mapstructure:"ipn_url"`
	RedirectURLs map[string]string `mapstructure:"redirect_urls"` // keyed by flow
}

// IsConfiguredFor reports whether the gateway can serve the given flow.
// An empty flow checks credentials only.
func (c MomoConfig) IsConfiguredFor(flow string) bool {
	if c.PartnerCode == "" || c.AccessKey == "" || c.SecretKey == "" ||
		c.Endpoint == "" || c.IPNURL == "" {
		return false
	}
	return flow == "" || c.RedirectURLs[flowKey(flow)] != ""
}

// RedirectURL builds the app return URL for a flow.
func (c MomoConfig) RedirectURL(flow string, params map[string]string) (string, bool) {
	tpl, ok := c.RedirectURLs[flowKey(flow)]
	if !ok || tpl == "" {
		return "", false
	}
	return expandRoute(tpl, params), true
}

// PayOSConfig holds PayOS credentials and per-flow routes.
type PayOSConfig struct {
	ClientID    string            `mapstructure:"client_id"`
	APIKey      string            `mapstructure:"api_key"`
	ChecksumKey string            `mapstructure:"checksum_key"`
	BaseURL     string            `mapstructure:"base_url"`
	ReturnURLs  map[string]string `mapstructure:"return_urls"` // keyed by flow
	CancelURLs  map[string]string `mapstructure:"cancel_urls"` // keyed by flow
}

// IsConfiguredFor reports whether the gateway can serve the given flow.
// An empty flow checks credentials only.
func (c PayOSConfig) IsConfiguredFor(flow string) bool {
	if c.ClientID == "" || c.APIKey == "" || c.ChecksumKey == "" || c.BaseURL == "" {
		return false
	}
	key := flowKey(flow)
	return flow == "" || (c.ReturnURLs[key] != "" && c.CancelURLs[key] != "")
}

// RedirectURL builds the success return URL for a flow.
func (c PayOSConfig) RedirectURL(flow string, params map[string]string) (string, bool) {
	tpl, ok := c.ReturnURLs[flowKey(flow)]
	if !ok || tpl == "" {
		return "", false
	}
	return expandRoute(tpl, params), true
}

// CancelURL builds the cancel return URL for a flow.
func (c PayOSConfig) CancelURL(flow string, params map[string]string) (string, bool) {
	tpl, ok := c.CancelURLs[flowKey(flow)]
	if !ok || tpl == "" {
		return "", false
	}
	return expandRoute(tpl, params), true
}

// flowKey normalises a flow name into a config map key
// (PACKAGE_PURCHASE -> package_purchase).
func flowKey(flow string) string {
	return strings.ToLower(flow)
}

// expandRoute substitutes {placeholder} segments from params; any params not
// consumed by a placeholder are appended as query parameters.
func expandRoute(tpl string, params map[string]string) string {
	out := tpl
	leftover := url.Values{}
	for k, v := range params {
		ph := "{" + k + "}"
		if strings.Contains(out, ph) {
			out = strings.ReplaceAll(out, ph, url.QueryEscape(v))
			continue
		}
		leftover.Set(k, v)
	}
	if len(leftover) > 0 {
		sep := "?"
		if strings.Contains(out, "?") {
			sep = "&"
		}
		out += sep + leftover.Encode()
	}
	return out
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CPAY.
// Nested keys use underscore: CPAY_DATABASE_HOST, CPAY_GATEWAYS_VNPAY_TMN_CODE, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "coachpay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "coachpay")
	v.SetDefault("ledger.clearing_wallet_id", "")
	v.SetDefault("sweep.interval", "1m")
	v.SetDefault("sweep.timeout", "10m")
	v.SetDefault("sweep.batch", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CPAY_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

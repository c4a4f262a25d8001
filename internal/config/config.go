// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and IMPULSE_* environment variables, in increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PlaceholderRazorpayKey marks an unconfigured gateway; checkout is simulated.
const PlaceholderRazorpayKey = "YOUR_RAZORPAY_KEY"

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	Brevo    BrevoConfig    `mapstructure:"brevo"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	WebDir          string        `mapstructure:"web_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// DSN builds a libpq-compatible connection string unless URL is set.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// MigrateURL is the golang-migrate pgx/v5 URL for the same database.
func (c DatabaseConfig) MigrateURL() string {
	if c.URL != "" {
		if i := strings.Index(c.URL, "://"); i >= 0 {
			return "pgx5" + c.URL[i:]
		}
		return c.URL
	}
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel parses Level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// AdminConfig is the literal credential pair guarding the dashboard.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type RazorpayConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Currency  string `mapstructure:"currency"`
	Name      string `mapstructure:"name"`
	Image     string `mapstructure:"image"`
}

// Configured reports whether a real gateway key is present.
func (c RazorpayConfig) Configured() bool {
	return c.KeyID != "" && c.KeyID != PlaceholderRazorpayKey
}

type BrevoConfig struct {
	APIKeys     []string `mapstructure:"api_keys"`
	BaseURL     string   `mapstructure:"base_url"`
	SenderName  string   `mapstructure:"sender_name"`
	SenderEmail string   `mapstructure:"sender_email"`
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// WorkflowConfig tunes the registration workflow.
type WorkflowConfig struct {
	SimulatedPaymentDelay time.Duration `mapstructure:"simulated_payment_delay"`
	BackgroundTimeout     time.Duration `mapstructure:"background_timeout"`
	BackgroundAttempts    uint64        `mapstructure:"background_attempts"`
	RetryInterval         time.Duration `mapstructure:"retry_interval"`
	CheckoutTTL           time.Duration `mapstructure:"checkout_ttl"`
	CatalogCacheTTL       time.Duration `mapstructure:"catalog_cache_ttl"`
}

// SetDefaults registers local-development defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.web_dir", "./web")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Keys without a meaningful default still need registering so that
	// AutomaticEnv values reach Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("razorpay.key_secret", "")
	v.SetDefault("brevo.api_keys", []string{})
	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "impulse")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("admin.username", "admin")

	v.SetDefault("razorpay.key_id", PlaceholderRazorpayKey)
	v.SetDefault("razorpay.base_url", "https://api.razorpay.com")
	v.SetDefault("razorpay.currency", "INR")
	v.SetDefault("razorpay.name", "Impulse 2026")
	v.SetDefault("razorpay.image", "https://citimpulse.com/vite.svg")

	v.SetDefault("brevo.base_url", "https://api.brevo.com")
	v.SetDefault("brevo.sender_name", "IMPULSE 2026")
	v.SetDefault("brevo.sender_email", "noreply@citimpulse.com")

	v.SetDefault("workflow.simulated_payment_delay", 1500*time.Millisecond)
	v.SetDefault("workflow.background_timeout", 30*time.Second)
	v.SetDefault("workflow.background_attempts", 3)
	v.SetDefault("workflow.retry_interval", 500*time.Millisecond)
	v.SetDefault("workflow.checkout_ttl", 30*time.Minute)
	v.SetDefault("workflow.catalog_cache_ttl", 5*time.Minute)
}

// Load reads configuration. cfgFile may be empty; a missing default config
// file is not an error.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file, using process environment")
	}

	SetDefaults(v)
	v.SetEnvPrefix("IMPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("impulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/impulse")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// Comma-separated env values arrive as a single element.
	cfg.Brevo.APIKeys = splitList(cfg.Brevo.APIKeys)
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Admin.Password == "" {
		return errors.New("admin.password must be set (IMPULSE_ADMIN_PASSWORD)")
	}
	if c.Razorpay.Configured() && c.Razorpay.KeySecret == "" {
		return errors.New("razorpay.key_secret is required when razorpay.key_id is set")
	}
	if c.Workflow.BackgroundAttempts == 0 {
		return errors.New("workflow.background_attempts must be at least 1")
	}
	return nil
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

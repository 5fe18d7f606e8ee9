package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AMQP     AMQPConfig     `yaml:"amqp"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Report   ReportConfig   `yaml:"report"`
	// Principals with elevated roles and their bcrypt API key hashes.
	Principals []PrincipalConfig `yaml:"principals"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Store selects the backing store: "postgres" or "memory" (dev mode).
	Store string `yaml:"store"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// AMQPConfig contains event broker settings. An empty URL disables
// publication (noop publisher).
type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// ProtocolConfig contains the rental protocol constants. Zero values are
// replaced with documented defaults at validation time.
type ProtocolConfig struct {
	MinDurationSeconds     int64 `yaml:"min_duration_seconds"`
	MaxDurationSeconds     int64 `yaml:"max_duration_seconds"`
	RecoveryGraceSeconds   int64 `yaml:"recovery_grace_seconds"`
	DisputeWindowSeconds   int64 `yaml:"dispute_window_seconds"`
	ReputationMaxScore     int64 `yaml:"reputation_max_score"`
	ReputationInitialScore int64 `yaml:"reputation_initial_score"`
	ReputationGain         int64 `yaml:"reputation_gain"`
	ReputationLoss         int64 `yaml:"reputation_loss"`
	BlacklistFloor         int64 `yaml:"blacklist_floor"`
	TrustThreshold         int64 `yaml:"trust_threshold"`
	BlacklistMultiplier    int64 `yaml:"blacklist_multiplier"`
	MinSuccessPercent      int64 `yaml:"min_success_percent"`
	// Custody accounts on the external balance ledger.
	StreamCustodyAccount     string `yaml:"stream_custody_account"`
	CollateralCustodyAccount string `yaml:"collateral_custody_account"`
	// OperatorAccount may call emergencyRecover; ResolverAccount may resolve
	// disputes.
	OperatorAccount string `yaml:"operator_account"`
	ResolverAccount string `yaml:"resolver_account"`
}

// ReportConfig contains the recovery report job schedule.
type ReportConfig struct {
	RecoverableRentals string `yaml:"recoverable_rentals"`
}

// PrincipalConfig maps an account to a role and a bcrypt hash of its API key.
type PrincipalConfig struct {
	Account string   `yaml:"account"`
	Roles   []string `yaml:"roles"`
	KeyHash string   `yaml:"key_hash"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// AMQP
	if val := os.Getenv("AMQP_URL"); val != "" {
		c.AMQP.URL = val
	}
	if val := os.Getenv("AMQP_EXCHANGE"); val != "" {
		c.AMQP.Exchange = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("SERVER_STORE"); val != "" {
		c.Server.Store = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

// Validate checks the configuration and fills documented defaults.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Store == "" {
		c.Server.Store = "postgres"
	}
	if c.Server.Store != "postgres" && c.Server.Store != "memory" {
		return fmt.Errorf("unknown store type: %s", c.Server.Store)
	}

	// Database validation (only required for the postgres store)
	if c.Server.Store == "postgres" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Protocol defaults
	p := &c.Protocol
	if p.MinDurationSeconds == 0 {
		p.MinDurationSeconds = 60 // 1 minute
	}
	if p.MaxDurationSeconds == 0 {
		p.MaxDurationSeconds = 30 * 24 * 3600 // 30 days
	}
	if p.MinDurationSeconds > p.MaxDurationSeconds {
		return fmt.Errorf("min duration exceeds max duration")
	}
	if p.RecoveryGraceSeconds == 0 {
		p.RecoveryGraceSeconds = 7 * 24 * 3600 // 7 days
	}
	if p.DisputeWindowSeconds == 0 {
		p.DisputeWindowSeconds = 3 * 24 * 3600 // 3 days past end time
	}
	if p.ReputationMaxScore == 0 {
		p.ReputationMaxScore = 100
	}
	if p.ReputationInitialScore == 0 {
		p.ReputationInitialScore = 50
	}
	if p.ReputationGain == 0 {
		p.ReputationGain = 5
	}
	if p.ReputationLoss == 0 {
		p.ReputationLoss = 15
	}
	if p.BlacklistFloor == 0 {
		p.BlacklistFloor = 20
	}
	if p.TrustThreshold == 0 {
		p.TrustThreshold = 80
	}
	if p.BlacklistMultiplier == 0 {
		p.BlacklistMultiplier = 3
	}
	if p.MinSuccessPercent == 0 {
		p.MinSuccessPercent = 50
	}
	if p.StreamCustodyAccount == "" {
		p.StreamCustodyAccount = "custody:streams"
	}
	if p.CollateralCustodyAccount == "" {
		p.CollateralCustodyAccount = "custody:collateral"
	}
	if p.OperatorAccount == "" {
		return fmt.Errorf("protocol operator account is required")
	}
	if p.ResolverAccount == "" {
		return fmt.Errorf("dispute resolver account is required")
	}

	// Report defaults
	if c.Report.RecoverableRentals == "" {
		c.Report.RecoverableRentals = "0 0 6 * * *" // 6 AM UTC daily
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	TinyEmail TinyEmailConfig `yaml:"tinyemail"`
	Beehiiv   BeehiivConfig   `yaml:"beehiiv"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Export    ExportConfig    `yaml:"export"`
	Report    ReportConfig    `yaml:"report"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the run-lock Redis settings. When disabled the collector
// falls back to a Postgres advisory lock.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TinyEmailAccount is one brand account. TinyEmail issues one API key per
// brand, so credentials are per-account rather than per-platform.
type TinyEmailAccount struct {
	Code   string `yaml:"code"`  // short code used in env var names, e.g. "AC"
	Brand  string `yaml:"brand"` // display brand name, e.g. "American Conservative"
	APIKey string `yaml:"api_key"`
}

// KeyEnvVar returns the environment variable that carries this account's key.
func (a TinyEmailAccount) KeyEnvVar() string {
	return "TINYEMAIL_API_KEY_" + strings.ToUpper(a.Code)
}

// TinyEmailConfig holds TinyEmail API configuration
type TinyEmailConfig struct {
	BaseURL        string             `yaml:"base_url"`
	TimeoutSeconds int                `yaml:"timeout_seconds"`
	Accounts       []TinyEmailAccount `yaml:"accounts"`
}

// Timeout returns the configured timeout as a duration
func (c TinyEmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BeehiivBrand is one tracked publication within a workspace group.
type BeehiivBrand struct {
	Name string `yaml:"name"`
	// SkipTagFilter collects every non-CPM post for brands whose editors do
	// not apply newsletter content tags.
	SkipTagFilter bool `yaml:"skip_tag_filter"`
}

// BeehiivGroup is a Beehiiv workspace sharing one API key.
type BeehiivGroup struct {
	Name   string         `yaml:"name"`
	APIKey string         `yaml:"api_key"`
	Brands []BeehiivBrand `yaml:"brands"`
}

// KeyEnvVar returns the environment variable that carries this group's key.
func (g BeehiivGroup) KeyEnvVar() string {
	return "BEEHIIV_API_KEY_" + strings.ToUpper(g.Name)
}

// BeehiivConfig holds Beehiiv API configuration
type BeehiivConfig struct {
	BaseURL        string         `yaml:"base_url"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	Groups         []BeehiivGroup `yaml:"groups"`
}

// Timeout returns the configured timeout as a duration
func (c BeehiivConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SnowflakeConfig holds the optional warehouse mirror settings
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Enabled   bool   `yaml:"enabled"`
}

// ArchiveConfig holds the S3 run-snapshot settings
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"`
}

// GetAWSProfile returns the AWS profile, empty on ECS/Lambda (IAM role).
func (c ArchiveConfig) GetAWSProfile() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// ExportConfig controls the spreadsheet CSV rendering
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
	// Brand rows appear in sheet order, not alphabetical order.
	TinyEmailBrands []string `yaml:"tinyemail_brands"`
	BeehiivBrands   []string `yaml:"beehiiv_brands"`
}

// ReportConfig holds the SES report-email settings
type ReportConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Region     string   `yaml:"region"`
	FromEmail  string   `yaml:"from_email"`
	Recipients []string `yaml:"recipients"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.TinyEmail.BaseURL == "" {
		cfg.TinyEmail.BaseURL = "https://api.tinyemail.com/v1"
	}
	if cfg.TinyEmail.TimeoutSeconds == 0 {
		cfg.TinyEmail.TimeoutSeconds = 30
	}
	if cfg.Beehiiv.BaseURL == "" {
		cfg.Beehiiv.BaseURL = "https://api.beehiiv.com/v2"
	}
	if cfg.Beehiiv.TimeoutSeconds == 0 {
		cfg.Beehiiv.TimeoutSeconds = 30
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Snowflake.Database == "" {
		cfg.Snowflake.Database = "IGNITE_DATA_LAKE"
	}
	if cfg.Snowflake.Schema == "" {
		cfg.Snowflake.Schema = "NEWSLETTERS"
	}
	if cfg.Archive.S3Region == "" {
		cfg.Archive.S3Region = "us-west-2"
	}
	if cfg.Report.Region == "" {
		cfg.Report.Region = "us-west-2"
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "exports"
	}
	if len(cfg.Export.TinyEmailBrands) == 0 {
		cfg.Export.TinyEmailBrands = defaultTinyEmailBrands()
	}
	if len(cfg.Export.BeehiivBrands) == 0 {
		cfg.Export.BeehiivBrands = defaultBeehiivBrands()
	}

	return &cfg, nil
}

// defaultTinyEmailBrands is the spreadsheet row order for TinyEmail sections.
func defaultTinyEmailBrands() []string {
	return []string{
		"American Conservative AM",
		"American Conservative PM",
		"Conservatives Daily AM",
		"Conservatives Daily PM",
		"Worldly Reports AM",
		"Worldly Reports PM",
		"Patriots Wire AM",
		"Patriots Wire PM",
	}
}

// defaultBeehiivBrands is the spreadsheet row order for Beehiiv sections.
func defaultBeehiivBrands() []string {
	return []string{
		"Keeping Up With America",
		"Americans Daily Digest",
		"Republicans Report",
		"News Stand",
		"News Flash",
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if baseURL := os.Getenv("TINYEMAIL_BASE_URL"); baseURL != "" {
		cfg.TinyEmail.BaseURL = baseURL
	}
	if baseURL := os.Getenv("BEEHIIV_BASE_URL"); baseURL != "" {
		cfg.Beehiiv.BaseURL = baseURL
	}
	for i := range cfg.TinyEmail.Accounts {
		if key := os.Getenv(cfg.TinyEmail.Accounts[i].KeyEnvVar()); key != "" {
			cfg.TinyEmail.Accounts[i].APIKey = key
		}
	}
	for i := range cfg.Beehiiv.Groups {
		if key := os.Getenv(cfg.Beehiiv.Groups[i].KeyEnvVar()); key != "" {
			cfg.Beehiiv.Groups[i].APIKey = key
		}
	}
	if password := os.Getenv("SNOWFLAKE_PASSWORD"); password != "" {
		cfg.Snowflake.Password = password
	}
	if email := os.Getenv("REPORT_EMAIL"); email != "" {
		cfg.Report.Recipients = []string{email}
		cfg.Report.Enabled = true
	}

	return cfg, nil
}

// Validate checks all required settings before any network activity and
// reports everything missing at once, naming the env var to set.
func (c *Config) Validate() error {
	var missing []string

	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(c.TinyEmail.Accounts) == 0 && len(c.Beehiiv.Groups) == 0 {
		missing = append(missing, "at least one tinyemail account or beehiiv group")
	}
	for _, acct := range c.TinyEmail.Accounts {
		if acct.Code == "" || acct.Brand == "" {
			missing = append(missing, "tinyemail account code/brand")
			continue
		}
		if acct.APIKey == "" {
			missing = append(missing, acct.KeyEnvVar())
		}
	}
	for _, group := range c.Beehiiv.Groups {
		if group.Name == "" {
			missing = append(missing, "beehiiv group name")
			continue
		}
		if group.APIKey == "" {
			missing = append(missing, group.KeyEnvVar())
		}
	}
	if c.Snowflake.Enabled {
		if c.Snowflake.Account == "" || c.Snowflake.User == "" || c.Snowflake.Password == "" {
			missing = append(missing, "snowflake account/user/password")
		}
	}
	if c.Archive.Enabled && c.Archive.S3Bucket == "" {
		missing = append(missing, "archive s3_bucket")
	}
	if c.Report.Enabled {
		if c.Report.FromEmail == "" {
			missing = append(missing, "report from_email")
		}
		if len(c.Report.Recipients) == 0 {
			missing = append(missing, "report recipients (or REPORT_EMAIL)")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Package config handles configuration loading, environment overrides and
// config file resolution for poimap.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/poimap/internal/redaction"
)

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// WarehouseConfig selects and authenticates the POI data source.
type WarehouseConfig struct {
	Driver    string `yaml:"driver"` // "sqlite" | "postgres" | "snowflake" | "mongo"
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"` // #nosec G117 -- warehouse credential field
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
}

// ServerConfig controls the HTTP dashboard.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DashboardConfig holds presentation defaults.
type DashboardConfig struct {
	DefaultRows   int      `yaml:"default_rows"`
	Zoom          int      `yaml:"zoom"`
	Pitch         int      `yaml:"pitch"`
	ChartCacheTTL Duration `yaml:"chart_cache_ttl"`
}

// ExportConfig points at the S3-compatible bucket that receives published exports.
// An empty Endpoint disables publishing.
type ExportConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"` // #nosec G117 -- object storage credential field
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// NotifyConfig configures export notifications. No brokers disables them.
type NotifyConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Config is the root poimap configuration.
type Config struct {
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Server    ServerConfig    `yaml:"server"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Export    ExportConfig    `yaml:"export"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// Duration is a time.Duration that round-trips through YAML as "10m" style text.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			Driver: "sqlite",
			DSN:    "./poi.db",
			Table:  "POI_ADDRESS_US",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Dashboard: DashboardConfig{
			DefaultRows:   10,
			Zoom:          10,
			Pitch:         40,
			ChartCacheTTL: Duration(10 * time.Minute),
		},
		Export: ExportConfig{
			Bucket: "poi-exports",
			Prefix: "exports",
		},
		Notify: NotifyConfig{
			Topic: "poi-exports",
		},
	}
}

// Load reads config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	// Unmarshal into a plain map so only the keys that are present apply.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config.Load: %s: %w", path, err)
	}

	if wh, ok := raw["warehouse"].(map[string]any); ok {
		setString(wh, "driver", &cfg.Warehouse.Driver)
		setString(wh, "dsn", &cfg.Warehouse.DSN)
		setString(wh, "table", &cfg.Warehouse.Table)
		setString(wh, "account", &cfg.Warehouse.Account)
		setString(wh, "user", &cfg.Warehouse.User)
		setString(wh, "password", &cfg.Warehouse.Password)
		setString(wh, "warehouse", &cfg.Warehouse.Warehouse)
		setString(wh, "database", &cfg.Warehouse.Database)
		setString(wh, "schema", &cfg.Warehouse.Schema)
	}

	if srv, ok := raw["server"].(map[string]any); ok {
		setString(srv, "addr", &cfg.Server.Addr)
		setStrings(srv, "allowed_origins", &cfg.Server.AllowedOrigins)
	}

	if dash, ok := raw["dashboard"].(map[string]any); ok {
		setInt(dash, "default_rows", &cfg.Dashboard.DefaultRows)
		setInt(dash, "zoom", &cfg.Dashboard.Zoom)
		setInt(dash, "pitch", &cfg.Dashboard.Pitch)
		if v, ok := dash["chart_cache_ttl"].(string); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("config.Load: dashboard.chart_cache_ttl: %w", err)
			}
			cfg.Dashboard.ChartCacheTTL = Duration(d)
		}
	}

	if exp, ok := raw["export"].(map[string]any); ok {
		setString(exp, "endpoint", &cfg.Export.Endpoint)
		setString(exp, "access_key", &cfg.Export.AccessKey)
		setString(exp, "secret_key", &cfg.Export.SecretKey)
		if v, ok := exp["use_ssl"].(bool); ok {
			cfg.Export.UseSSL = v
		}
		setString(exp, "bucket", &cfg.Export.Bucket)
		setString(exp, "prefix", &cfg.Export.Prefix)
	}

	if n, ok := raw["notify"].(map[string]any); ok {
		setStrings(n, "brokers", &cfg.Notify.Brokers)
		setString(n, "topic", &cfg.Notify.Topic)
	}

	return cfg, nil
}

func setString(m map[string]any, key string, dst *string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

func setInt(m map[string]any, key string, dst *int) {
	if v, ok := m[key].(int); ok {
		*dst = v
	}
}

func setStrings(m map[string]any, key string, dst *[]string) {
	list, ok := m[key].([]any)
	if !ok {
		return
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = nil
	}
	*dst = out
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// LoadEnvFile loads KEY=value pairs from a .env file into the process
// environment. Variables already set are not overridden. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config.LoadEnvFile: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. Unset or empty variables
// leave the corresponding field untouched.
func ApplyEnv(cfg *Config) {
	envString("POIMAP_WAREHOUSE_DRIVER", &cfg.Warehouse.Driver)
	envString("POIMAP_WAREHOUSE_DSN", &cfg.Warehouse.DSN)
	envString("POIMAP_TABLE", &cfg.Warehouse.Table)
	envString("SNOWFLAKE_ACCOUNT", &cfg.Warehouse.Account)
	envString("SNOWFLAKE_USER", &cfg.Warehouse.User)
	envString("SNOWFLAKE_PASSWORD", &cfg.Warehouse.Password)
	envString("SNOWFLAKE_WAREHOUSE", &cfg.Warehouse.Warehouse)
	envString("SNOWFLAKE_DATABASE", &cfg.Warehouse.Database)
	envString("SNOWFLAKE_SCHEMA", &cfg.Warehouse.Schema)

	envString("POIMAP_ADDR", &cfg.Server.Addr)

	envString("MINIO_ENDPOINT", &cfg.Export.Endpoint)
	envString("MINIO_ACCESS_KEY", &cfg.Export.AccessKey)
	envString("MINIO_SECRET_KEY", &cfg.Export.SecretKey)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Export.UseSSL = b
		}
	}
	envString("POIMAP_EXPORT_BUCKET", &cfg.Export.Bucket)

	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		cfg.Notify.Brokers = splitList(v)
	}
	envString("KAFKA_TOPIC", &cfg.Notify.Topic)
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// ResolvePath returns the config file path and the source of the resolution.
// Priority: explicit flag value → POIMAP_CONFIG env → ~/.config/poimap/config.yaml.
// source is one of "flag", "env", or "default".
func ResolvePath(flagValue string) (path, source string) {
	if flagValue != "" {
		if p, err := normalizePath(flagValue); err == nil {
			return p, "flag"
		}
	}
	if env := os.Getenv("POIMAP_CONFIG"); env != "" {
		if p, err := normalizePath(env); err == nil {
			return p, "env"
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "poimap", "config.yaml"), "default"
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// Resolve loads the config file selected by flagValue and applies environment
// overrides. It is the single entry point used by the CLI.
func Resolve(flagValue string) (*Config, error) {
	path, _ := ResolvePath(flagValue)
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// Redacted returns a copy of cfg with credentials masked, suitable for printing.
func (c *Config) Redacted() *Config {
	out := *c
	out.Warehouse.DSN = redaction.Redact(c.Warehouse.DSN)
	out.Warehouse.Password = redaction.Secret(c.Warehouse.Password)
	out.Export.AccessKey = redaction.Secret(c.Export.AccessKey)
	out.Export.SecretKey = redaction.Secret(c.Export.SecretKey)
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	out.Notify.Brokers = append([]string(nil), c.Notify.Brokers...)
	return &out
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config.Marshal: %w", err)
	}
	return data, nil
}

const starter = `# poimap configuration
warehouse:
  driver: sqlite          # sqlite | postgres | snowflake | mongo
  dsn: ./poi.db           # sqlite path, postgres URL or mongo URI
  table: POI_ADDRESS_US   # table, or collection for mongo
  # Snowflake credentials; SNOWFLAKE_* environment variables take precedence.
  account: ""
  user: ""
  password: ""
  warehouse: ""
  database: ""
  schema: ""
server:
  addr: ":8080"
  allowed_origins: ["http://localhost:3000"]
dashboard:
  default_rows: 10
  zoom: 10
  pitch: 40
  chart_cache_ttl: 10m
export:
  endpoint: ""            # S3/MinIO endpoint; empty disables publishing
  access_key: ""
  secret_key: ""
  use_ssl: false
  bucket: poi-exports
  prefix: exports
notify:
  brokers: []             # Kafka brokers; empty disables notifications
  topic: poi-exports
`

// WriteStarter writes a commented starter config to path. It refuses to
// overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config.WriteStarter: %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config.WriteStarter: %w", err)
	}
	if err := os.WriteFile(path, []byte(starter), 0o600); err != nil {
		return fmt.Errorf("config.WriteStarter: %w", err)
	}
	return nil
}

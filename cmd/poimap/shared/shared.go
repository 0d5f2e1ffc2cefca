// Package shared holds the context passed to all CLI commands.
package shared

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/go-ports/poimap/internal/config"
	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/session"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// ConfigPath overrides the config file location.
	// When empty, resolution falls through to POIMAP_CONFIG env → ~/.config/poimap/config.yaml.
	ConfigPath string
	// EnvFile is a dotenv file loaded before the config is resolved.
	EnvFile string
	// Verbose enables debug logging.
	Verbose bool
}

// Setup loads the env file and configures logging. Logs go to stderr so
// stdout stays clean for command output and the MCP stdio transport.
func (c *Context) Setup() error {
	if err := config.LoadEnvFile(c.EnvFile); err != nil {
		return err
	}
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// Config resolves the effective configuration.
func (c *Context) Config() (*config.Config, error) {
	return config.Resolve(c.ConfigPath)
}

// OpenSession resolves the configuration and loads the warehouse.
func (c *Context) OpenSession(ctx context.Context, opts ...session.Option) (*session.Session, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	sess, err := session.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("load warehouse: %w", err)
	}
	return sess, nil
}

// SelectionFlags binds --category, --state, --city and --rows.
type SelectionFlags struct {
	Category string
	State    string
	City     string
	Rows     int
}

// Register adds the selection flags to fs.
func (s *SelectionFlags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&s.Category, "category", "", "Main category (default: first category)")
	fs.StringVar(&s.State, "state", models.AllOption, "State code or All")
	fs.StringVar(&s.City, "city", models.AllOption, "City or All")
	fs.IntVar(&s.Rows, "rows", 0, "Rows to show (default: dashboard.default_rows)")
}

// Selection returns the flag values as a FilterSelection.
func (s *SelectionFlags) Selection() models.FilterSelection {
	return models.FilterSelection{
		Category: s.Category,
		State:    s.State,
		City:     s.City,
		Rows:     s.Rows,
	}
}

package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/go-ports/poimap/internal/config"
	"github.com/go-ports/poimap/internal/models"
)

// SnowflakeSource reads the POI table from a Snowflake warehouse.
type SnowflakeSource struct {
	cfg   *sf.Config
	table string
}

func newSnowflake(cfg config.WarehouseConfig) (*SnowflakeSource, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"account", cfg.Account},
		{"user", cfg.User},
		{"password", cfg.Password},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("warehouse.Open: snowflake %s: %w", strings.Join(missing, ", "), ErrMissingCredentials)
	}
	return &SnowflakeSource{
		cfg: &sf.Config{
			Account:   cfg.Account,
			User:      cfg.User,
			Password:  cfg.Password,
			Warehouse: cfg.Warehouse,
			Database:  cfg.Database,
			Schema:    cfg.Schema,
		},
		table: cfg.Table,
	}, nil
}

// Describe implements Source.
func (s *SnowflakeSource) Describe() string {
	return fmt.Sprintf("snowflake %s@%s/%s/%s (table %s)",
		s.cfg.User, s.cfg.Account, s.cfg.Database, s.cfg.Schema, s.table)
}

// Fetch implements Source.
func (s *SnowflakeSource) Fetch(ctx context.Context) (*models.Table, error) {
	dsn, err := sf.DSN(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("warehouse.SnowflakeSource.Fetch dsn: %w", err)
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse.SnowflakeSource.Fetch: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectAll(s.table))
	if err != nil {
		return nil, fmt.Errorf("warehouse.SnowflakeSource.Fetch: %w", err)
	}
	defer rows.Close()

	t, err := scanTable(rows)
	if err != nil {
		return nil, fmt.Errorf("warehouse.SnowflakeSource.Fetch scan: %w", err)
	}
	slog.Debug("warehouse fetched", "driver", "snowflake", "table", s.table, "rows", len(t.Records))
	return t, nil
}

// Package warehouse reads the POI table from the configured data source.
//
// Every source performs exactly one read per Fetch: acquire a connection, run
// a single "select everything" query, release the connection. Filtering is
// never pushed down; the caller filters in memory.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-ports/poimap/internal/config"
	"github.com/go-ports/poimap/internal/models"
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown warehouse driver")
	// ErrMissingCredentials is returned by Open when required connection settings are empty.
	ErrMissingCredentials = errors.New("missing warehouse credentials")
	// ErrInvalidTable is returned when the table name is not a plain identifier.
	ErrInvalidTable = errors.New("invalid table name")
)

// Source is a read-only POI data source.
type Source interface {
	// Fetch reads the full POI table.
	Fetch(ctx context.Context) (*models.Table, error)
	// Describe returns a human-readable, credential-free description.
	Describe() string
}

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

func validateTable(table string) error {
	if !tableRe.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}

// Open returns the Source selected by cfg.Driver. No connection is made until Fetch.
func Open(cfg config.WarehouseConfig) (Source, error) {
	if err := validateTable(cfg.Table); err != nil {
		return nil, fmt.Errorf("warehouse.Open: %w", err)
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("warehouse.Open: sqlite path: %w", ErrMissingCredentials)
		}
		return NewSQLite(cfg.DSN, cfg.Table), nil
	case "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("warehouse.Open: postgres dsn: %w", ErrMissingCredentials)
		}
		return &PostgresSource{dsn: cfg.DSN, table: cfg.Table}, nil
	case "snowflake":
		src, err := newSnowflake(cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "mongo", "mongodb":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("warehouse.Open: mongo uri: %w", ErrMissingCredentials)
		}
		return &MongoSource{uri: cfg.DSN, database: cfg.Database, collection: cfg.Table}, nil
	}
	return nil, fmt.Errorf("warehouse.Open: %w: %q", ErrUnknownDriver, cfg.Driver)
}

func selectAll(table string) string {
	return "SELECT * FROM " + table
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

// tableBuilder maps rows with arbitrary column sets onto POI records. The six
// well-known columns are matched case-insensitively; every other column is
// kept in Extra and listed once in ExtraColumns, in first-seen order.
type tableBuilder struct {
	table models.Table
	seen  map[string]bool
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{
		table: models.Table{Records: models.RecordSet{}},
		seen:  make(map[string]bool),
	}
}

func (b *tableBuilder) add(cols []string, vals []any) {
	rec := &models.POIRecord{}
	for i, col := range cols {
		v := normalize(vals[i])
		switch strings.ToUpper(col) {
		case models.ColName:
			if s, ok := toString(v); ok {
				rec.Name = s
			}
		case models.ColCategory:
			rec.Category = stringPtr(v)
		case models.ColCity:
			rec.City = stringPtr(v)
		case models.ColState:
			rec.State = stringPtr(v)
		case models.ColLatitude:
			rec.Latitude = floatPtr(v)
		case models.ColLongitude:
			rec.Longitude = floatPtr(v)
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[col] = v
			if !b.seen[col] {
				b.seen[col] = true
				b.table.ExtraColumns = append(b.table.ExtraColumns, col)
			}
		}
	}
	b.table.Records = append(b.table.Records, rec)
}

func (b *tableBuilder) result() *models.Table {
	t := b.table
	return &t
}

// scanTable drains rows from a database/sql query into a Table.
func scanTable(rows *sql.Rows) (*models.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	b := newTableBuilder()
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		b.add(cols, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b.result(), nil
}

func normalize(v any) any {
	if bs, ok := v.([]byte); ok {
		return string(bs)
	}
	return v
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

func stringPtr(v any) *string {
	s, ok := toString(v)
	if !ok {
		return nil
	}
	return &s
}

// toFloat converts a driver value to float64. Coordinates may arrive as native
// numbers, numeric strings (Snowflake NUMBER) or decimal types with a String method.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(x.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func floatPtr(v any) *float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return nil
	}
	return &f
}

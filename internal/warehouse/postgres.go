package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/redaction"
)

// PostgresSource reads the POI table over a single pgx connection.
type PostgresSource struct {
	dsn   string
	table string
}

// Describe implements Source.
func (s *PostgresSource) Describe() string {
	return fmt.Sprintf("postgres %s (table %s)", redaction.Redact(s.dsn), s.table)
}

// Fetch implements Source.
func (s *PostgresSource) Fetch(ctx context.Context) (*models.Table, error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse.PostgresSource.Fetch connect: %w", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, selectAll(s.table))
	if err != nil {
		return nil, fmt.Errorf("warehouse.PostgresSource.Fetch: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, fd := range fields {
		cols[i] = fd.Name
	}

	b := newTableBuilder()
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("warehouse.PostgresSource.Fetch scan: %w", err)
		}
		for i, v := range vals {
			vals[i] = pgValue(v)
		}
		b.add(cols, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse.PostgresSource.Fetch: %w", err)
	}

	t := b.result()
	slog.Debug("warehouse fetched", "driver", "postgres", "table", s.table, "rows", len(t.Records))
	return t, nil
}

// pgValue unwraps NUMERIC columns, which pgx decodes as pgtype.Numeric.
func pgValue(v any) any {
	n, ok := v.(pgtype.Numeric)
	if !ok {
		return v
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}

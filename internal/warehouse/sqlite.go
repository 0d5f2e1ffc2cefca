package warehouse

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver with database/sql

	"github.com/go-ports/poimap/internal/models"
)

// SQLiteSource reads the POI table from a local SQLite file.
type SQLiteSource struct {
	path  string
	table string
}

// NewSQLite returns a source reading table from the database file at path.
func NewSQLite(path, table string) *SQLiteSource {
	return &SQLiteSource{path: path, table: table}
}

// Describe implements Source.
func (s *SQLiteSource) Describe() string {
	return fmt.Sprintf("sqlite %s (table %s)", s.path, s.table)
}

// Fetch implements Source. The file is opened read-only so a missing
// database fails instead of being created empty.
func (s *SQLiteSource) Fetch(ctx context.Context) (*models.Table, error) {
	db, err := sql.Open("sqlite3", fileURI(s.path, "ro"))
	if err != nil {
		return nil, fmt.Errorf("warehouse.SQLiteSource.Fetch: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectAll(s.table))
	if err != nil {
		return nil, fmt.Errorf("warehouse.SQLiteSource.Fetch: %w", err)
	}
	defer rows.Close()

	t, err := scanTable(rows)
	if err != nil {
		return nil, fmt.Errorf("warehouse.SQLiteSource.Fetch scan: %w", err)
	}
	slog.Debug("warehouse fetched", "driver", "sqlite", "table", s.table, "rows", len(t.Records))
	return t, nil
}

// ---------------------------------------------------------------------------
// CSV import
// ---------------------------------------------------------------------------

// ImportCSV loads a CSV file with a header row into table in the SQLite
// database at path, creating both if missing. LATITUDE and LONGITUDE are
// stored as REAL, every other column as TEXT. Empty cells become NULL.
// All rows are inserted in one transaction. It returns the number of rows
// inserted.
func ImportCSV(ctx context.Context, path, table string, r io.Reader) (int, error) {
	if err := validateTable(table); err != nil {
		return 0, fmt.Errorf("warehouse.ImportCSV: %w", err)
	}

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, errors.New("warehouse.ImportCSV: empty input, expected a header row")
	}
	if err != nil {
		return 0, fmt.Errorf("warehouse.ImportCSV header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	db, err := sql.Open("sqlite3", fileURI(path, "rwc"))
	if err != nil {
		return 0, fmt.Errorf("warehouse.ImportCSV: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createTableSQL(table, header)); err != nil {
		return 0, fmt.Errorf("warehouse.ImportCSV create: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("warehouse.ImportCSV begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, header))
	if err != nil {
		return 0, fmt.Errorf("warehouse.ImportCSV prepare: %w", err)
	}
	defer stmt.Close()

	n := 0
	args := make([]any, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("warehouse.ImportCSV line %d: %w", n+2, err)
		}
		for i, v := range rec {
			if v == "" {
				args[i] = nil
			} else {
				args[i] = v
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("warehouse.ImportCSV insert line %d: %w", n+2, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("warehouse.ImportCSV commit: %w", err)
	}
	slog.Info("csv imported", "path", path, "table", table, "rows", n)
	return n, nil
}

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// fileURI builds a SQLite URI filename for path. The characters SQLite treats
// specially in the path part of a URI are percent-encoded.
func fileURI(path, mode string) string {
	return "file:" + uriEscaper.Replace(path) + "?mode=" + mode
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createTableSQL(table string, header []string) string {
	cols := make([]string, len(header))
	for i, h := range header {
		typ := "TEXT"
		switch strings.ToUpper(h) {
		case models.ColLatitude, models.ColLongitude:
			typ = "REAL"
		}
		cols[i] = quoteIdent(h) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", "))
}

func insertSQL(table string, header []string) string {
	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, h := range header {
		cols[i] = quoteIdent(h)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// Package importcmd implements the `poimap import` command.
package importcmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-ports/poimap/cmd/poimap/shared"
	"github.com/go-ports/poimap/internal/warehouse"
)

// Command implements `poimap import`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	db    string
	table string
}

// New creates the import command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load a POI CSV file into a local SQLite warehouse",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}

	f := c.cmd.Flags()
	f.StringVar(&c.db, "db", "", "SQLite database file (default: warehouse.dsn when the driver is sqlite)")
	f.StringVar(&c.table, "table", "", "Table name (default: warehouse.table)")

	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	cfg, err := c.ctx.Config()
	if err != nil {
		return err
	}

	db := c.db
	if db == "" {
		if d := strings.ToLower(cfg.Warehouse.Driver); d != "sqlite" && d != "sqlite3" {
			return fmt.Errorf("import: warehouse driver is %q; pass --db to import into a SQLite file", cfg.Warehouse.Driver)
		}
		db = cfg.Warehouse.DSN
	}
	table := c.table
	if table == "" {
		table = cfg.Warehouse.Table
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer f.Close()

	n, err := warehouse.ImportCSV(cmd.Context(), db, table, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s (table %s)\n", n, db, table)
	return nil
}

package e2e_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/poimap/internal/checkers"
)

// ---------------------------------------------------------------------------
// Help and version
// ---------------------------------------------------------------------------

func TestHelp_HappyPath(t *testing.T) {
	c := qt.New(t)

	out, err := runCmd(t, "--help")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "poimap")
	for _, sub := range []string{"serve", "select", "export", "counts", "import", "config", "mcp", "version"} {
		c.Assert(out, qt.Contains, sub)
	}
}

func TestVersion_HappyPath(t *testing.T) {
	c := qt.New(t)

	out, err := runCmd(t, "version")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Matches, `poimap dev \(commit .*\)\n`)
}

// ---------------------------------------------------------------------------
// Import
// ---------------------------------------------------------------------------

func TestImport_HappyPath(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "poi.csv")
	c.Assert(os.WriteFile(csvPath, []byte(poiCSV), 0o600), qt.IsNil)
	dbPath := filepath.Join(dir, "imported.db")

	out, err := runCmd(t, "--config", filepath.Join(dir, "missing.yaml"), "import", csvPath, "--db", dbPath)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "Imported 6 rows into "+dbPath+" (table POI_ADDRESS_US)\n")

	cfgPath := filepath.Join(dir, "config.yaml")
	c.Assert(os.WriteFile(cfgPath, []byte("warehouse:\n  dsn: "+dbPath+"\n"), 0o600), qt.IsNil)
	out, err = runCmd(t, "--config", cfgPath, "counts", "category")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Restaurant")
}

func TestImport_MissingFile(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	_, err := runCmd(t, "--config", filepath.Join(dir, "missing.yaml"), "import", filepath.Join(dir, "nope.csv"), "--db", filepath.Join(dir, "x.db"))
	c.Assert(err, qt.ErrorMatches, "import: open .*nope.csv: no such file or directory")
}

// ---------------------------------------------------------------------------
// Select
// ---------------------------------------------------------------------------

func TestSelect_Table(t *testing.T) {
	c := qt.New(t)
	cfgPath, _ := newWarehouse(c)

	out, err := runCmd(t, "--config", cfgPath, "select", "--category", "Restaurant", "--state", "TX", "--rows", "1")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Category: Restaurant | State: TX | City: All\n")
	c.Assert(out, qt.Contains, "Total POIs in selection: 2\n")
	c.Assert(out, qt.Contains, "Joe's Diner")
	c.Assert(strings.Contains(out, "Lone Star Grill"), qt.IsFalse)
	c.Assert(out, qt.Contains, "Showing 1 of 2 rows.")
}

func TestSelect_DefaultsAndReset(t *testing.T) {
	c := qt.New(t)
	cfgPath, _ := newWarehouse(c)

	out, err := runCmd(t, "--config", cfgPath, "select", "--state", "NY")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Reset state to All\n")
	c.Assert(out, qt.Contains, "Category: Cafe | State: All | City: All\n")
	c.Assert(out, qt.Contains, "Total POIs in selection: 2\n")
}

func TestSelect_JSON(t *testing.T) {
	c := qt.New(t)
	cfgPath, _ := newWarehouse(c)

	out, err := runCmd(t, "--config", cfgPath, "select", "--category", "Cafe", "--city", "Denver", "--format", "json")
	c.Assert(err, qt.IsNil)
	c.Assert(out, checkers.JSONPathEquals("$.count"), float64(1))
	c.Assert(out, checkers.JSONPathEquals("$.map.center"), map[string]any{"lat": 39.74, "lon": -104.99})
	c.Assert(out, checkers.JSONPathEquals("$.table.rows[0].POI_NAME"), "Bean There")
	c.Assert(out, checkers.JSONPathEquals("$.state_counts[0].key"), "TX")
	c.Assert(out, checkers.JSONPathEquals("$.state_counts[0].count"), float64(3))
}

func TestSelect_MarkdownReport(t *testing.T) {
	c := qt.New(t)
	cfgPath, _ := newWarehouse(c)

	report := filepath.Join(t.TempDir(), "report.md")
	out, err := runCmd(t, "--config", cfgPath, "select", "--category", "Restaurant", "--format", "markdown", "--output", report)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "Wrote "+report+" (3 POIs)\n")

	data, err := os.ReadFile(report)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Contains, "count: 3")
	c.Assert(string(data), qt.Contains, "# POI selection: Restaurant / All / All")
}

func TestSelect_UnknownFormat(t *testing.T) {
	c := qt.New(t)

	_, err := runCmd(t, "select", "--format", "xml")
	c.Assert(err, qt.ErrorMatches, `select: unknown format "xml".*`)
}

func TestSelect_MissingWarehouse(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	c.Assert(os.WriteFile(cfgPath, []byte("warehouse:\n  dsn: "+filepath.Join(dir, "absent.db")+"\n"), 0o600), qt.IsNil)

	_, err := runCmd(t, "--config", cfgPath, "select")
	c.Assert(err, qt.ErrorMatches, "load warehouse: session.New: warehouse.SQLiteSource.Fetch: .*")
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

func TestExport_FileAndStdout(t *testing.T) {
	c := qt.New(t)
	cfgPath, _ := newWarehouse(c)

	c.Run("stdout", func(c *qt.C) {
		out, err := runCmd(t, "--config", cfgPath, "export", "--category", "Restaurant", "--state", "TX", "--rows", "1", "--out", "-")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Equals,
			"POI_NAME,CATEGORY_MAIN,CITY,STATE,LATITUDE,LONGITUDE\n"+
				"Joe's Diner,Restaurant,Austin,TX,30.26,-97.74\n"+
				"Lone Star Grill,Restaurant,Dallas,TX,32.78,-96.8\n")
	})

	c.Run("file with extra columns", func(c *qt.C) {
		path := filepath.Join(c.TempDir(), "out.csv")
		out, err := runCmd(t, "--config", cfgPath, "export", "--category", "Cafe", "--city", "Denver", "--extra", "--out", path)
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Equals, "Wrote 1 records to "+path+"\n")
		data, err := os.ReadFile(path)
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Equals,
			"POI_NAME,CATEGORY_MAIN,CITY,STATE,LATITUDE,LONGITUDE,ZIP\n"+
				"Bean There,Cafe,Denver,CO,39.74,-104.99,80202\n")
	})

	c.Run("publish without endpoint", func(c *qt.C) {
		_, err := runCmd(t, "--config", cfgPath, "export", "--publish")
		c.Assert(err, qt.ErrorMatches, "session.Publish: .*not configured.*")
	})
}

// ---------------------------------------------------------------------------
// Counts
// ---------------------------------------------------------------------------

func TestCounts(t *testing.T) {
	c := qt.New(t)
	cfgPath, _ := newWarehouse(c)

	out, err := runCmd(t, "--config", cfgPath, "counts", "state", "--json", "--limit", "1")
	c.Assert(err, qt.IsNil)
	c.Assert(out, checkers.JSONPathEquals("$.total"), float64(5))
	c.Assert(out, checkers.JSONPathEquals("$.counts"), []any{map[string]any{"key": "TX", "count": float64(3)}})

	_, err = runCmd(t, "--config", cfgPath, "counts", "zip")
	c.Assert(err, qt.ErrorMatches, `counts: unknown attribute "zip".*`)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfig_InitAndShow(t *testing.T) {
	c := qt.New(t)

	t.Setenv("SNOWFLAKE_PASSWORD", "hunter2")
	cfgPath := filepath.Join(t.TempDir(), "poimap", "config.yaml")

	out, err := runCmd(t, "--config", cfgPath, "config", "init")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Created "+cfgPath)

	_, err = runCmd(t, "--config", cfgPath, "config", "init")
	c.Assert(err, qt.ErrorMatches, ".*already exists")

	out, err = runCmd(t, "--config", cfgPath, "config", "show")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "# config: "+cfgPath+" (flag)")
	c.Assert(out, qt.Contains, "driver: sqlite")
	c.Assert(out, qt.Contains, "[REDACTED]")
	c.Assert(strings.Contains(out, "hunter2"), qt.IsFalse)
}

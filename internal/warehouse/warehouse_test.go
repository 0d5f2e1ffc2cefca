package warehouse_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/poimap/internal/config"
	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/warehouse"
)

const sampleCSV = `POI_NAME,CATEGORY_MAIN,CITY,STATE,LATITUDE,LONGITUDE,ZIP
Joe's Diner,Restaurant,Austin,TX,30.26,-97.74,78701
Bean There,Cafe,Denver,CO,39.74,-104.99,
"Grill, The",Restaurant,,TX,,-96.8,75201
`

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_Drivers(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name     string
		cfg      config.WarehouseConfig
		wantDesc string
		wantErr  error
	}{
		{
			name:     "sqlite",
			cfg:      config.WarehouseConfig{Driver: "sqlite", DSN: "./poi.db", Table: "POI_ADDRESS_US"},
			wantDesc: "sqlite ./poi.db (table POI_ADDRESS_US)",
		},
		{
			name:     "postgres dsn is redacted",
			cfg:      config.WarehouseConfig{Driver: "postgres", DSN: "postgres://poi:pw@db/poi", Table: "poi"},
			wantDesc: "postgres postgres://poi:[REDACTED]@db/poi (table poi)",
		},
		{
			name:     "snowflake",
			cfg:      config.WarehouseConfig{Driver: "SNOWFLAKE", Account: "acct", User: "me", Password: "pw", Database: "DB", Schema: "PUBLIC", Table: "POI_ADDRESS_US"},
			wantDesc: "snowflake me@acct/DB/PUBLIC (table POI_ADDRESS_US)",
		},
		{
			name:     "mongo default database",
			cfg:      config.WarehouseConfig{Driver: "mongo", DSN: "mongodb://localhost:27017", Table: "pois"},
			wantDesc: "mongo mongodb://localhost:27017 (collection poi.pois)",
		},
		{
			name:    "unknown driver",
			cfg:     config.WarehouseConfig{Driver: "oracle", Table: "POI"},
			wantErr: warehouse.ErrUnknownDriver,
		},
		{
			name:    "snowflake without credentials",
			cfg:     config.WarehouseConfig{Driver: "snowflake", Account: "acct", Table: "POI"},
			wantErr: warehouse.ErrMissingCredentials,
		},
		{
			name:    "postgres without dsn",
			cfg:     config.WarehouseConfig{Driver: "postgres", Table: "POI"},
			wantErr: warehouse.ErrMissingCredentials,
		},
		{
			name:    "table with sql",
			cfg:     config.WarehouseConfig{Driver: "sqlite", DSN: "x.db", Table: "POI; DROP TABLE POI"},
			wantErr: warehouse.ErrInvalidTable,
		},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			src, err := warehouse.Open(tt.cfg)
			if tt.wantErr != nil {
				c.Assert(errors.Is(err, tt.wantErr), qt.IsTrue, qt.Commentf("err = %v", err))
				c.Assert(src, qt.IsNil)
				return
			}
			c.Assert(err, qt.IsNil)
			c.Assert(src.Describe(), qt.Equals, tt.wantDesc)
		})
	}
}

func TestOpen_SnowflakeListsMissingFields(t *testing.T) {
	c := qt.New(t)
	_, err := warehouse.Open(config.WarehouseConfig{Driver: "snowflake", User: "me", Table: "POI"})
	c.Assert(err, qt.ErrorMatches, "warehouse.Open: snowflake account, password: missing warehouse credentials")
}

// ---------------------------------------------------------------------------
// SQLite import and fetch
// ---------------------------------------------------------------------------

func TestSQLite_ImportThenFetch(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "poi.db")

	n, err := warehouse.ImportCSV(ctx, path, "POI_ADDRESS_US", strings.NewReader(sampleCSV))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)

	tbl, err := warehouse.NewSQLite(path, "POI_ADDRESS_US").Fetch(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(tbl.Records, qt.HasLen, 3)
	c.Assert(tbl.ExtraColumns, qt.DeepEquals, []string{"ZIP"})

	joe := tbl.Records[0]
	c.Assert(joe.Name, qt.Equals, "Joe's Diner")
	c.Assert(*joe.Category, qt.Equals, "Restaurant")
	c.Assert(*joe.City, qt.Equals, "Austin")
	c.Assert(*joe.State, qt.Equals, "TX")
	c.Assert(*joe.Latitude, qt.Equals, 30.26)
	c.Assert(*joe.Longitude, qt.Equals, -97.74)
	c.Assert(joe.Extra["ZIP"], qt.Equals, "78701")

	bean := tbl.Records[1]
	c.Assert(bean.Extra["ZIP"], qt.IsNil)

	grill := tbl.Records[2]
	c.Assert(grill.Name, qt.Equals, "Grill, The")
	c.Assert(grill.City, qt.IsNil)
	c.Assert(grill.Latitude, qt.IsNil)
	c.Assert(*grill.Longitude, qt.Equals, -96.8)
	c.Assert(grill.HasCoordinates(), qt.IsFalse)
}

func TestSQLite_PathWithURICharacters(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "q?a#b%20c")
	c.Assert(os.Mkdir(dir, 0o755), qt.IsNil)
	path := filepath.Join(dir, "poi?v=1#x.db")

	n, err := warehouse.ImportCSV(ctx, path, "POI", strings.NewReader(sampleCSV))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)

	_, err = os.Stat(path)
	c.Assert(err, qt.IsNil)

	tbl, err := warehouse.NewSQLite(path, "POI").Fetch(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(tbl.Records, qt.HasLen, 3)
}

func TestSQLite_ImportAppends(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "poi.db")

	for range 2 {
		_, err := warehouse.ImportCSV(ctx, path, "POI", strings.NewReader(sampleCSV))
		c.Assert(err, qt.IsNil)
	}
	tbl, err := warehouse.NewSQLite(path, "POI").Fetch(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(tbl.Records, qt.HasLen, 6)
}

func TestSQLite_LowercaseColumns(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "poi.db")

	_, err := warehouse.ImportCSV(ctx, path, "poi", strings.NewReader("poi_name,category_main,latitude,longitude\nA,Cafe,1.5,2.5\n"))
	c.Assert(err, qt.IsNil)

	tbl, err := warehouse.NewSQLite(path, "poi").Fetch(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(tbl.ExtraColumns, qt.HasLen, 0)
	c.Assert(tbl.Records[0].Name, qt.Equals, "A")
	c.Assert(*tbl.Records[0].Latitude, qt.Equals, 1.5)
	c.Assert(tbl.Records[0].State, qt.IsNil)
}

func TestSQLite_EmptyTable(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "poi.db")

	n, err := warehouse.ImportCSV(ctx, path, "POI", strings.NewReader(strings.Join(models.Columns, ",")+"\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 0)

	tbl, err := warehouse.NewSQLite(path, "POI").Fetch(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(tbl.Records, qt.HasLen, 0)
	c.Assert(tbl.Records, qt.IsNotNil)
}

func TestSQLite_Errors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("missing database file", func(c *qt.C) {
		_, err := warehouse.NewSQLite(filepath.Join(c.TempDir(), "nope.db"), "POI").Fetch(ctx)
		c.Assert(err, qt.ErrorMatches, "warehouse.SQLiteSource.Fetch: .*")
	})

	c.Run("missing table", func(c *qt.C) {
		path := filepath.Join(c.TempDir(), "poi.db")
		_, err := warehouse.ImportCSV(ctx, path, "OTHER", strings.NewReader("POI_NAME\nx\n"))
		c.Assert(err, qt.IsNil)
		_, err = warehouse.NewSQLite(path, "POI").Fetch(ctx)
		c.Assert(err, qt.ErrorMatches, "warehouse.SQLiteSource.Fetch: no such table.*")
	})

	c.Run("import of empty input", func(c *qt.C) {
		_, err := warehouse.ImportCSV(ctx, filepath.Join(c.TempDir(), "poi.db"), "POI", strings.NewReader(""))
		c.Assert(err, qt.ErrorMatches, ".*expected a header row")
	})

	c.Run("import of ragged rows", func(c *qt.C) {
		_, err := warehouse.ImportCSV(ctx, filepath.Join(c.TempDir(), "poi.db"), "POI", strings.NewReader("A,B\n1\n"))
		c.Assert(err, qt.ErrorMatches, "warehouse.ImportCSV line 2: .*")
	})

	c.Run("import into invalid table name", func(c *qt.C) {
		_, err := warehouse.ImportCSV(ctx, filepath.Join(c.TempDir(), "poi.db"), "1POI", strings.NewReader("A\n"))
		c.Assert(errors.Is(err, warehouse.ErrInvalidTable), qt.IsTrue)
	})
}

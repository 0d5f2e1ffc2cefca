// Package e2e_test exercises the poimap CLI, MCP server and HTTP server
// in-process against a temporary SQLite warehouse.
package e2e_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	rootcmd "github.com/go-ports/poimap/cmd/poimap/root"
	"github.com/go-ports/poimap/internal/config"
	"github.com/go-ports/poimap/internal/session"
	"github.com/go-ports/poimap/internal/warehouse"
)

// poiCSV is the fixture warehouse: five located POIs, one without a latitude.
const poiCSV = `POI_NAME,CATEGORY_MAIN,CITY,STATE,LATITUDE,LONGITUDE,ZIP
Joe's Diner,Restaurant,Austin,TX,30.26,-97.74,78701
Bean There,Cafe,Denver,CO,39.74,-104.99,80202
Lone Star Grill,Restaurant,Dallas,TX,32.78,-96.8,75201
Cafe Luna,Cafe,Austin,TX,30.27,-97.75,78702
Golden Gate Eats,Restaurant,San Francisco,CA,37.77,-122.42,94103
Nowhere Inn,Restaurant,Marfa,TX,,-104.02,79843
`

// newWarehouse imports poiCSV into a fresh SQLite file and returns a config
// file pointing at it.
func newWarehouse(c *qt.C) (configPath, dbPath string) {
	c.TB.Helper()

	dir := c.TB.TempDir()
	dbPath = filepath.Join(dir, "poi.db")
	n, err := warehouse.ImportCSV(context.Background(), dbPath, "POI_ADDRESS_US", strings.NewReader(poiCSV))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 6)

	configPath = filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("warehouse:\n  driver: sqlite\n  dsn: %q\n  table: POI_ADDRESS_US\n", dbPath)
	c.Assert(os.WriteFile(configPath, []byte(body), 0o600), qt.IsNil)
	return configPath, dbPath
}

// newSession loads a session over a fresh fixture warehouse.
func newSession(c *qt.C) *session.Session {
	c.TB.Helper()

	configPath, _ := newWarehouse(c)
	cfg, err := config.Load(configPath)
	c.Assert(err, qt.IsNil)
	sess, err := session.New(context.Background(), cfg)
	c.Assert(err, qt.IsNil)
	c.TB.Cleanup(func() { _ = sess.Close() })
	return sess
}

// runCmd executes the root command with the provided args and returns the
// captured stdout output along with any execution error.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := rootcmd.New()
	root.SetOut(&buf)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	execErr := root.ExecuteContext(context.Background())

	return buf.String(), execErr
}

// Package export encodes record sets as CSV downloads and publishes them to
// S3-compatible object storage.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-ports/poimap/internal/models"
)

// Filename is the suggested name of a downloaded selection.
const Filename = "filtered_poi_data.csv"

// ContentType is the media type of the CSV encoding.
const ContentType = "text/csv"

// Options controls the CSV encoding.
type Options struct {
	// ExtraColumns are pass-through columns appended after the six declared
	// columns, in the given order. Nil writes the declared columns only.
	ExtraColumns []string
}

// WriteCSV writes rs as comma-separated UTF-8 text: a header row with the
// declared column order, then one row per record. Null values are empty
// fields. An empty rs produces a header-only file.
func WriteCSV(w io.Writer, rs models.RecordSet, opts Options) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(models.Columns)+len(opts.ExtraColumns))
	header = append(header, models.Columns...)
	header = append(header, opts.ExtraColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range rs {
		row[0] = r.Name
		row[1] = str(r.Category)
		row[2] = str(r.City)
		row[3] = str(r.State)
		row[4] = num(r.Latitude)
		row[5] = num(r.Longitude)
		for i, col := range opts.ExtraColumns {
			row[len(models.Columns)+i] = FormatValue(r.Extra[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export.WriteCSV: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	return nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// FormatValue renders a pass-through column value as text. Nil is "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

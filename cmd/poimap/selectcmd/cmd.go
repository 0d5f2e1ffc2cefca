// Package selectcmd implements the `poimap select` command.
package selectcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/poimap/cmd/poimap/shared"
	"github.com/go-ports/poimap/internal/dashboard"
	"github.com/go-ports/poimap/internal/markdown"
)

const (
	formatTable    = "table"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

// Command implements `poimap select`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	sel    shared.SelectionFlags
	format string
	output string
}

// New creates the select command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "select",
		Short: "Run the category → state → city filter and print the selection",
		RunE:  c.run,
	}

	f := c.cmd.Flags()
	c.sel.Register(f)
	f.StringVarP(&c.format, "format", "f", formatTable, "Output format: table, json or markdown")
	f.StringVarP(&c.output, "output", "o", "", "Write to this file instead of stdout")

	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	switch c.format {
	case formatTable, formatJSON, formatMarkdown:
	default:
		return fmt.Errorf("select: unknown format %q (want table, json or markdown)", c.format)
	}

	sess, err := c.ctx.OpenSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	v := sess.Select(c.sel.Selection())

	if c.output != "" && c.format == formatMarkdown {
		if err := markdown.WriteReport(c.output, v, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d POIs)\n", c.output, v.Count)
		return nil
	}

	out := cmd.OutOrStdout()
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return fmt.Errorf("select: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch c.format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatMarkdown:
		_, err := io.WriteString(out, markdown.RenderReport(v))
		return err
	}
	return writeTable(out, v)
}

func writeTable(out io.Writer, v *dashboard.View) error {
	for _, a := range v.Reset {
		fmt.Fprintf(out, "Reset %s to %s\n", a, resolvedValue(v, string(a)))
	}
	fmt.Fprintf(out, "Category: %s | State: %s | City: %s\n", v.Selection.Category, v.Selection.State, v.Selection.City)
	fmt.Fprintf(out, "Total POIs in selection: %d\n", v.Count)
	if v.Empty {
		fmt.Fprintln(out, "No records match this selection.")
		return nil
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(v.Table.Columns, "\t"))
	for _, r := range v.Table.Rows {
		fmt.Fprintln(tw, strings.Join([]string{
			r.Name, deref(r.Category), deref(r.City), deref(r.State), coord(r.Latitude), coord(r.Longitude),
		}, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(v.Table.Rows) < v.Count {
		fmt.Fprintf(out, "\nShowing %d of %d rows.\n", len(v.Table.Rows), v.Count)
	}
	return nil
}

func resolvedValue(v *dashboard.View, attr string) string {
	switch attr {
	case "category":
		return v.Selection.Category
	case "state":
		return v.Selection.State
	}
	return v.Selection.City
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func coord(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

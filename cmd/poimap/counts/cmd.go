// Package countscmd implements the `poimap counts` command.
package countscmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-ports/poimap/cmd/poimap/shared"
	"github.com/go-ports/poimap/internal/models"
)

// Command implements `poimap counts`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	limit  int
	asJSON bool
}

// New creates the counts command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:       "counts <category|state|city>",
		Short:     "Print dataset-wide POI counts grouped by an attribute",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(models.AttrCategory), string(models.AttrState), string(models.AttrCity)},
		RunE:      c.run,
	}

	f := c.cmd.Flags()
	f.IntVar(&c.limit, "limit", 0, "Show only the largest N groups")
	f.BoolVar(&c.asJSON, "json", false, "Print JSON")

	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	attr, ok := models.ParseAttribute(args[0])
	if !ok {
		return fmt.Errorf("counts: unknown attribute %q (want category, state or city)", args[0])
	}

	sess, err := c.ctx.OpenSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	counts := sess.Counts(attr)
	total := counts.Total()
	if c.limit > 0 && c.limit < len(counts) {
		counts = counts[:c.limit]
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		return json.NewEncoder(out).Encode(map[string]any{
			"attribute": attr,
			"total":     total,
			"counts":    counts,
		})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, cnt := range counts {
		fmt.Fprintf(tw, "%s\t%d\t\n", cnt.Key, cnt.Count)
	}
	fmt.Fprintf(tw, "total\t%d\t\n", total)
	return tw.Flush()
}

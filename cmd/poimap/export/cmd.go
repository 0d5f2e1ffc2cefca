// Package exportcmd implements the `poimap export` command.
package exportcmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-ports/poimap/cmd/poimap/shared"
	"github.com/go-ports/poimap/internal/export"
)

// Command implements `poimap export`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	sel     shared.SelectionFlags
	out     string
	extra   bool
	publish bool
}

// New creates the export command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "export",
		Short: "Write the full selection as CSV, or publish it to object storage",
		Long: `Write every record of the selection (not only the displayed rows) as CSV.

With --publish the CSV is uploaded to the configured S3/MinIO bucket and an
"export.published" event is sent to Kafka when brokers are configured.`,
		RunE: c.run,
	}

	f := c.cmd.Flags()
	c.sel.Register(f)
	f.StringVar(&c.out, "out", export.Filename, `Output file, or "-" for stdout`)
	f.BoolVar(&c.extra, "extra", false, "Append the warehouse's additional columns")
	f.BoolVar(&c.publish, "publish", false, "Upload to object storage instead of writing a file")

	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	sess, err := c.ctx.OpenSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	sel := c.sel.Selection()

	if c.publish {
		rcpt, err := sess.Publish(cmd.Context(), sel, c.extra)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Published %d records to s3://%s/%s\n", rcpt.Records, rcpt.Bucket, rcpt.Key)
		return nil
	}

	if c.out == "-" {
		_, err := sess.WriteCSV(out, sel, c.extra)
		return err
	}

	f, err := os.Create(c.out)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	bw := bufio.NewWriter(f)
	n, err := sess.WriteCSV(bw, sel, c.extra)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(out, "Wrote %d records to %s\n", n, c.out)
	return nil
}

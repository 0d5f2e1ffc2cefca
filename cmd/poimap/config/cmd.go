// Package configcmd implements the `poimap config` command group.
package configcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/poimap/cmd/poimap/shared"
	"github.com/go-ports/poimap/internal/config"
)

// Command implements `poimap config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration with secrets redacted",
			RunE:  c.runShow,
		},
		newConfigInit(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	path, source := config.ResolvePath(c.ctx.ConfigPath)
	cfg, err := c.ctx.Config()
	if err != nil {
		return err
	}
	b, err := cfg.Redacted().Marshal()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# config: %s (%s)\n", path, source)
	fmt.Fprint(out, string(b))
	return nil
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func newConfigInit(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := config.ResolvePath(ctx.ConfigPath)
			if err := config.WriteStarter(path); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			fmt.Fprintln(out, "Edit the warehouse section, or put credentials in .env.")
			return nil
		},
	}
}

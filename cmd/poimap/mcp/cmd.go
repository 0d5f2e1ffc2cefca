// Package mcpcmd implements the `poimap mcp` command.
package mcpcmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/poimap/cmd/poimap/shared"
	internalmcp "github.com/go-ports/poimap/internal/mcp"
)

// Command implements `poimap mcp`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the mcp command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "mcp",
		Short: "Start the poimap MCP server (stdio transport)",
		RunE:  c.run,
	}
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
	return internalmcp.Serve(cmd.Context(), sess)
}

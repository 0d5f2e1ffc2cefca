// Package servecmd implements the `poimap serve` command.
package servecmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/poimap/cmd/poimap/shared"
	"github.com/go-ports/poimap/internal/server"
)

// Command implements `poimap serve`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	addr string
}

// New creates the serve command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and JSON API over HTTP",
		RunE:  c.run,
	}
	c.cmd.Flags().StringVar(&c.addr, "addr", "", "Listen address (default: server.addr)")
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

	if c.addr != "" {
		sess.Config.Server.Addr = c.addr
	}
	return server.New(sess).Run(cmd.Context())
}

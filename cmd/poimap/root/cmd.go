// Package rootcmd wires the root cobra.Command for the poimap CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	configcmd "github.com/go-ports/poimap/cmd/poimap/config"
	countscmd "github.com/go-ports/poimap/cmd/poimap/counts"
	exportcmd "github.com/go-ports/poimap/cmd/poimap/export"
	importcmd "github.com/go-ports/poimap/cmd/poimap/importcmd"
	mcpcmd "github.com/go-ports/poimap/cmd/poimap/mcp"
	selectcmd "github.com/go-ports/poimap/cmd/poimap/selectcmd"
	servecmd "github.com/go-ports/poimap/cmd/poimap/serve"
	"github.com/go-ports/poimap/cmd/poimap/shared"
	versioncmd "github.com/go-ports/poimap/cmd/poimap/version"
)

// New creates and returns the root cobra.Command for the poimap CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "poimap",
		Short:         "poimap: explore a POI warehouse by category, state and city",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return ctx.Setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&ctx.ConfigPath, "config", "",
		"Config file (default: $POIMAP_CONFIG env → ~/.config/poimap/config.yaml)")
	pf.StringVar(&ctx.EnvFile, "env-file", ".env", "Dotenv file with warehouse credentials; ignored when missing")
	pf.BoolVarP(&ctx.Verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		servecmd.New(ctx).Cmd(),
		selectcmd.New(ctx).Cmd(),
		exportcmd.New(ctx).Cmd(),
		countscmd.New(ctx).Cmd(),
		importcmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
		versioncmd.New(ctx).Cmd(),
	)

	return root
}

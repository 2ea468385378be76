// File: cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/printer-snatcher/internal/api"
	"github.com/xkilldash9x/printer-snatcher/internal/observability"
)

// newServeCmd creates the `serve` command.
func newServeCmd(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the printer info API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				port, _ := cmd.Flags().GetInt("port")
				cfg.SetServerPort(port)
			}
			if err := applyBrowserFlags(cmd, cfg); err != nil {
				return err
			}

			logger := observability.GetLogger()
			snatcher, err := a.newSnatcher(cfg, logger)
			if err != nil {
				return err
			}

			handlers := api.NewHandlers(logger, snatcher, api.NewInfo(cfg.API()))
			return api.NewServer(cfg.Server(), handlers, logger).Run(cmd.Context())
		},
	}

	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides server.port and PORT)")
	addBrowserFlags(serveCmd)
	return serveCmd
}

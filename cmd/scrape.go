// File: cmd/scrape.go
package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/printer-snatcher/internal/api"
	"github.com/xkilldash9x/printer-snatcher/internal/config"
	"github.com/xkilldash9x/printer-snatcher/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newScrapeCmd creates the `scrape` command, a one-shot version of the API.
func newScrapeCmd(a *app) *cobra.Command {
	scrapeCmd := &cobra.Command{
		Use:   "scrape <ipv4>",
		Short: "Scrapes one printer and prints the response envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := applyBrowserFlags(cmd, cfg); err != nil {
				return err
			}
			info := api.NewInfo(cfg.API())

			host, err := api.ParseIPv4(args[0])
			if err != nil {
				if werr := writeEnvelope(cmd, api.InvalidAddressEnvelope(info)); werr != nil {
					return werr
				}
				return err
			}

			snatcher, err := a.newSnatcher(cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			rec, err := snatcher.Snatch(cmd.Context(), host)
			return writeEnvelope(cmd, api.ResultEnvelope(info, rec, err))
		},
	}

	addBrowserFlags(scrapeCmd)
	return scrapeCmd
}

func writeEnvelope(cmd *cobra.Command, env api.Envelope) error {
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// addBrowserFlags registers the browser overrides shared by serve and scrape.
func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("headful", false, "show the browser window instead of running headless")
	cmd.Flags().String("chrome", "", "path to the Chrome or Chromium executable")
}

func applyBrowserFlags(cmd *cobra.Command, cfg config.Interface) error {
	if cmd.Flags().Changed("headful") {
		headful, err := cmd.Flags().GetBool("headful")
		if err != nil {
			return err
		}
		cfg.SetBrowserHeadless(!headful)
	}
	if cmd.Flags().Changed("chrome") {
		path, err := cmd.Flags().GetString("chrome")
		if err != nil {
			return err
		}
		cfg.SetBrowserExecPath(path)
	}
	return nil
}

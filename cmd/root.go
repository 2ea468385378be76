// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/printer-snatcher/internal/api"
	"github.com/xkilldash9x/printer-snatcher/internal/browser"
	"github.com/xkilldash9x/printer-snatcher/internal/config"
	"github.com/xkilldash9x/printer-snatcher/internal/observability"
	"github.com/xkilldash9x/printer-snatcher/internal/printer"
	"github.com/xkilldash9x/printer-snatcher/internal/reachability"
)

type contextKey string

const configKey contextKey = "config"

// snatcherFactory builds the scraper from configuration. Tests replace it.
type snatcherFactory func(cfg config.Interface, logger *zap.Logger) (api.Snatcher, error)

// app holds what the subcommands share.
type app struct {
	cfgFile     string
	newSnatcher snatcherFactory
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&app{newSnatcher: buildSnatcher})
}

func newRootCmdWith(a *app) *cobra.Command {
	serveCmd := newServeCmd(a)

	rootCmd := &cobra.Command{
		Use:     "snatcher",
		Short:   "Printer Info Snatcher returns HP Enterprise printer details as JSON.",
		Version: Version,
		// Usage on every scrape failure is noise; errors are printed by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := initializeConfig(v, a.cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.NewDefaultConfig().Logger())
				return err
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Configuration loaded.",
				zap.String("version", Version),
				zap.String("config_file", v.ConfigFileUsed()))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
		// Running the binary without a subcommand serves the API.
		RunE: serveCmd.RunE,
	}
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(serveCmd, newScrapeCmd(a), newVersionCmd())
	return rootCmd
}

// initializeConfig layers defaults, the config file and the environment
// into v. A missing ./config.yaml is fine; a missing --config file is not.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to expand config path %q: %w", cfgFile, err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// getConfigFromContext returns the configuration stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in command context")
	}
	return cfg, nil
}

// buildSnatcher wires the prober, the browser manager and the scraper.
func buildSnatcher(cfg config.Interface, logger *zap.Logger) (api.Snatcher, error) {
	prober, err := reachability.New(cfg.Probe(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reachability prober: %w", err)
	}
	manager := browser.NewManager(cfg.Browser(), cfg.Scraper(), logger)
	return printer.NewSnatcher(prober, manager, cfg.Scraper(), logger), nil
}

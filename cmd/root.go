package cmd

import (
	"context"

	"github.com/choiway/contactsheet/internal/config"
	"github.com/choiway/contactsheet/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Used for flags.
	cfgFile  string
	logLevel string

	// Set by PersistentPreRunE before any subcommand runs.
	cfg    *config.Config
	logger *logrus.Logger

	rootCmd = &cobra.Command{
		Use:   "contactsheet",
		Short: "Photo gallery and document utility",
		Long: `Contactsheet keeps a photo gallery's capture dates in a JSON cache,
serves the gallery with a /api/photos listing, writes web thumbnails and
renders markdown manuscripts to print ready PDFs.
`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}

	cfg = c
	logger = logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	return nil
}

// Execute executes the root command.
func Execute(ctx context.Context) error {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./contactsheet.yaml, then "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// stringFlag copies a flag into target when it was given on the command
// line, so flags override the config file.
func stringFlag(cmd *cobra.Command, name string, target *string) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetString(name)
	}
}

func intFlag(cmd *cobra.Command, name string, target *int) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetInt(name)
	}
}

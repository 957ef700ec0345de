package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/ticketscan/internal/config"
	"github.com/MeKo-Tech/ticketscan/internal/logging"
	"github.com/MeKo-Tech/ticketscan/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Error from the last configuration load, reported by PersistentPreRunE.
	configErr error
	// Configuration file path.
	cfgFile string
	// Closes the log file, if any.
	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ticketscan",
	Short: "Count job tickets in scanned PDF bundles",
	Long: `ticketscan recognises the pages of a scanned PDF bundle, counts the job
tickets it contains and exports the relevant pages.

Two modes are supported:
- ACGOLD: a ticket starts on a page whose header carries a trade line and a
  qualifier and runs until the health and safety checklist page. Only those
  pages are exported.
- BMD: every occurrence of "trade" counts, and the whole document is exported.

Examples:
  ticketscan scan bundle.pdf
  ticketscan scan bundle.pdf --mode bmd --format json
  ticketscan export pdf --out ./out
  ticketscan export docx template.docx --address "1 New Road"
  ticketscan serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/ticketscan, /etc/ticketscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to a rotating file instead of stderr")
	rootCmd.PersistentFlags().String("store-dir", "", "directory holding saved scans")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store-dir"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if globalConfig == nil && configErr == nil {
			initConfig()
		}
		if configErr != nil {
			return fmt.Errorf("error loading configuration: %w", configErr)
		}

		cfg := GetConfig()
		cleanup, err := logging.Setup(cfg.ToLoggingConfig())
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		logCleanup = cleanup
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if logCleanup == nil {
			return nil
		}
		err := logCleanup()
		logCleanup = nil
		return err
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configLoader = config.NewLoader()
	if cfgFile != "" {
		globalConfig, configErr = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, configErr = configLoader.Load()
	}
}

// GetConfig returns the global configuration including bound CLI flags.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
		if configErr != nil {
			d := config.DefaultConfig()
			return &d
		}
	}

	// Flag binding happens after the initial load, so unmarshal again.
	var cfg config.Config
	if err := GetConfigLoader().GetViper().Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling updated configuration: %v\n", err)
		return globalConfig
	}
	return &cfg
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

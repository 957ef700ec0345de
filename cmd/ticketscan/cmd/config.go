package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/ticketscan/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [FILE]",
	Short: "Write a configuration file holding every default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			filename = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if fileExists(filename) && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", filename)
		}
		if err := config.GenerateDefaultConfigFile(filename); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filename)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		w := cmd.OutOrStdout()

		if used := GetConfigLoader().GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(w, "# config file: %s\n", used)
		} else {
			_, _ = fmt.Fprintln(w, "# no config file found; searched:")
			for _, p := range config.GetConfigSearchPaths() {
				_, _ = fmt.Fprintf(w, "#   %s\n", p)
			}
		}
		if cfg.Scan.Password != "" {
			cfg.Scan.Password = "********"
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := GetConfig().Validate(); err != nil {
			return errors.Join(errors.New("configuration is invalid"), err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	// Config commands must work on an invalid configuration, so they skip
	// validation and keep the default logger.
	configCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if globalConfig != nil {
			return nil
		}
		cfg, err := GetConfigLoader().LoadWithoutValidation()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		globalConfig, configErr = cfg, nil
		return nil
	}
}

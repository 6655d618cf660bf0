package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i474232898/radar-archive/internal/config"
)

func newConfigCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the user settings file",
	}

	var baseDir string
	define := &cobra.Command{
		Use:   "define",
		Short: "Create or update the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := s.config()
			if err != nil {
				return err
			}
			if err := config.DefineConfigs(cfg.SettingsPath, config.Settings{BaseDir: baseDir}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "settings written to %s\n", cfg.SettingsPath)
			return nil
		},
	}
	define.Flags().StringVar(&baseDir, "base-dir", "", "Root of the local radar archive")
	_ = define.MarkFlagRequired("base-dir")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := s.config()
			if err != nil {
				return err
			}
			settings, err := config.ReadConfigs(cfg.SettingsPath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), settings)
		},
	}

	cmd.AddCommand(define, show)
	return cmd
}

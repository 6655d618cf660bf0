// Package cli implements the radarctl command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/i474232898/radar-archive/internal/app"
	"github.com/i474232898/radar-archive/internal/config"
	"github.com/i474232898/radar-archive/internal/radar"
)

// state is shared by every subcommand of one invocation.
type state struct {
	verbose    bool
	configPath string

	cfg        *config.AppConfig
	components *app.Components
}

func (s *state) config() (*config.AppConfig, error) {
	if s.cfg != nil {
		return s.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if s.configPath != "" {
		cfg.SettingsPath = s.configPath
		if cfg.Settings, err = config.LoadSettings(s.configPath); err != nil {
			return nil, err
		}
	}
	s.cfg = cfg
	return cfg, nil
}

func (s *state) app() (*app.Components, error) {
	if s.components != nil {
		return s.components, nil
	}
	cfg, err := s.config()
	if err != nil {
		return nil, err
	}
	// A private registry keeps CLI metrics out of the global one.
	c, err := app.Build(cfg, prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	s.components = c
	return c, nil
}

// NewRootCmd builds the radarctl command tree.
func NewRootCmd() *cobra.Command {
	s := &state{}
	root := &cobra.Command{
		Use:   "radarctl",
		Short: "Search and download weather radar archives",
		Long: `radarctl discovers weather radar files in public cloud buckets
(NOAA NEXRAD, FMI, IDEAM) or a local archive, parses their filenames and
downloads them into a local archive tree.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !s.verbose {
				log.SetOutput(io.Discard)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().StringVar(&s.configPath, "config", "", "Use alternate settings file")

	root.AddCommand(newFindCmd(s))
	root.AddCommand(newDownloadCmd(s))
	root.AddCommand(newInfoCmd(s))
	root.AddCommand(newGroupCmd(s))
	root.AddCommand(newNetworksCmd(s))
	root.AddCommand(newRadarsCmd(s))
	root.AddCommand(newNearestCmd(s))
	root.AddCommand(newConfigCmd(s))
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseWindow parses optional --start/--end flags; both or neither.
func parseWindow(start, end string) (*time.Time, *time.Time, error) {
	if start == "" && end == "" {
		return nil, nil, nil
	}
	if start == "" || end == "" {
		return nil, nil, fmt.Errorf("%w: --start and --end must be given together", radar.ErrInvalidArgument)
	}
	st, err := radar.ParseTime(start)
	if err != nil {
		return nil, nil, err
	}
	et, err := radar.ParseTime(end)
	if err != nil {
		return nil, nil, err
	}
	return &st, &et, nil
}

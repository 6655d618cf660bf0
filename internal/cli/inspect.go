package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/i474232898/radar-archive/internal/geo"
	"github.com/i474232898/radar-archive/internal/registry"
)

func newInfoCmd(s *state) *cobra.Command {
	var (
		network      string
		ignoreErrors bool
	)
	cmd := &cobra.Command{
		Use:   "info FILE...",
		Short: "Parse radar filenames",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.app()
			if err != nil {
				return err
			}
			name, err := c.Registry.CheckNetwork(network)
			if err != nil {
				return err
			}
			infos, err := c.Search.InfoFromFilepaths(name, args, ignoreErrors)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), infos)
		},
	}
	cmd.Flags().StringVarP(&network, "network", "n", "", "Radar network (e.g. NEXRAD)")
	cmd.Flags().BoolVar(&ignoreErrors, "ignore-errors", false, "Return an empty result for unparsable names")
	_ = cmd.MarkFlagRequired("network")
	return cmd
}

func newGroupCmd(s *state) *cobra.Command {
	var (
		network string
		by      []string
	)
	cmd := &cobra.Command{
		Use:   "group FILE...",
		Short: "Group radar files by filename or time keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.app()
			if err != nil {
				return err
			}
			name, err := c.Registry.CheckNetwork(network)
			if err != nil {
				return err
			}
			groups, err := c.Search.GroupFilepaths(name, args, by...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), groups)
		},
	}
	cmd.Flags().StringVarP(&network, "network", "n", "", "Radar network (e.g. NEXRAD)")
	cmd.Flags().StringSliceVar(&by, "by", nil, "Group keys, e.g. radar_acronym,year,month")
	_ = cmd.MarkFlagRequired("network")
	return cmd
}

func newNetworksCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the available radar networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.app()
			if err != nil {
				return err
			}
			for _, n := range c.Registry.AvailableNetworks() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newRadarsCmd(s *state) *cobra.Command {
	var (
		network    string
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "radars [RADAR]",
		Short: "List radars, or show the coverage and location of one radar",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.app()
			if err != nil {
				return err
			}
			if network != "" {
				if network, err = c.Registry.CheckNetwork(network); err != nil {
					return err
				}
			}
			if len(args) == 1 {
				if network == "" {
					return fmt.Errorf("--network is required to describe a radar")
				}
				rd, err := c.Registry.Radar(network, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rd)
			}
			st, et, err := parseWindow(start, end)
			if err != nil {
				return err
			}
			names, err := c.Registry.AvailableRadars(network, st, et)
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&network, "network", "n", "", "Radar network; empty lists every network")
	cmd.Flags().StringVar(&start, "start", "", "Only radars operating after this time")
	cmd.Flags().StringVar(&end, "end", "", "Only radars operating before this time")
	return cmd
}

func newNearestCmd(s *state) *cobra.Command {
	var (
		network  string
		address  string
		lon, lat float64
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Find the radars closest to a location or address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.app()
			if err != nil {
				return err
			}
			if network != "" {
				if network, err = c.Registry.CheckNetwork(network); err != nil {
					return err
				}
			}
			var radars []registry.NearestRadar
			if address != "" {
				cfg, err := s.config()
				if err != nil {
					return err
				}
				radars, err = geo.NearestToAddress(cmd.Context(), geo.NewGoogle(cfg.GeocoderAPIKey), c.Registry, network, address, limit)
				if err != nil {
					return err
				}
			} else {
				if !cmd.Flags().Changed("lon") || !cmd.Flags().Changed("lat") {
					return fmt.Errorf("either --address or --lon and --lat are required")
				}
				if radars, err = c.Registry.Nearest(network, lon, lat, limit); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), radars)
		},
	}
	cmd.Flags().StringVarP(&network, "network", "n", "", "Radar network; empty searches every network")
	cmd.Flags().StringVar(&address, "address", "", "Address to geocode (needs GOOGLE_GEOCODER_API_KEY)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in degrees")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().IntVar(&limit, "limit", 1, "Number of radars to return")
	return cmd
}

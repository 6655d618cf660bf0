package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i474232898/radar-archive/internal/download"
	"github.com/i474232898/radar-archive/internal/radar"
)

type windowFlags struct {
	network string
	radar   string
	start   string
	end     string
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&w.network, "network", "n", "", "Radar network (e.g. NEXRAD)")
	cmd.Flags().StringVarP(&w.radar, "radar", "r", "", "Radar name (e.g. KABR)")
	cmd.Flags().StringVar(&w.start, "start", "", "Start time, YYYY-MM-DD[THH:MM:SS] UTC")
	cmd.Flags().StringVar(&w.end, "end", "", "End time, YYYY-MM-DD[THH:MM:SS] UTC")
	_ = cmd.MarkFlagRequired("network")
	_ = cmd.MarkFlagRequired("radar")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func newFindCmd(s *state) *cobra.Command {
	var (
		w            windowFlags
		protocol     string
		baseDir      string
		ignoreErrors bool
		daily        bool
	)
	cmd := &cobra.Command{
		Use:   "find",
		Short: "List the archive files of a radar within a time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.app()
			if err != nil {
				return err
			}
			network, err := c.Registry.CheckNetwork(w.network)
			if err != nil {
				return err
			}
			radarName, err := c.Registry.CheckRadar(network, w.radar)
			if err != nil {
				return err
			}
			start, end, err := parseWindow(w.start, w.end)
			if err != nil {
				return err
			}
			p, err := radar.CheckProtocol(protocol)
			if err != nil {
				return err
			}
			req := radar.SearchRequest{
				Network:      network,
				Radar:        radarName,
				Start:        start,
				End:          end,
				Protocol:     p,
				BaseDir:      baseDir,
				IgnoreErrors: ignoreErrors,
				Verbose:      s.verbose,
			}
			find := c.Search.FindFiles
			if daily {
				find = c.Search.FindFilesDaily
			}
			files, err := find(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	w.register(cmd)
	cmd.Flags().StringVarP(&protocol, "protocol", "p", "s3", "Where to search: s3, gcs, local")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Local archive root (local protocol only)")
	cmd.Flags().BoolVar(&ignoreErrors, "ignore-errors", false, "Skip files whose name matches no pattern")
	cmd.Flags().BoolVar(&daily, "daily", false, "Search day by day")
	return cmd
}

func newDownloadCmd(s *state) *cobra.Command {
	var (
		w    windowFlags
		opts download.Options
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the archive files of a radar into the local archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.app()
			if err != nil {
				return err
			}
			network, err := c.Registry.CheckNetwork(w.network)
			if err != nil {
				return err
			}
			radarName, err := c.Registry.CheckRadar(network, w.radar)
			if err != nil {
				return err
			}
			start, end, err := parseWindow(w.start, w.end)
			if err != nil {
				return err
			}
			opts.Verbose = s.verbose
			report, err := c.Downloads.DownloadFiles(cmd.Context(), network, radarName, *start, *end, opts)
			if err != nil {
				return err
			}
			for _, f := range report.Filepaths {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			if len(report.Failures) > 0 {
				for _, f := range report.Failures {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %s\n", f.Remote, f.Error)
				}
				return fmt.Errorf("%d of %d files could not be downloaded", len(report.Failures), report.Found)
			}
			return nil
		},
	}
	w.register(cmd)
	cmd.Flags().StringVarP(&opts.Protocol, "protocol", "p", "s3", "Bucket to download from: s3 or gcs")
	cmd.Flags().StringVar(&opts.BaseDir, "base-dir", "", "Local archive root (defaults to the configured base_dir)")
	cmd.Flags().IntVarP(&opts.NThreads, "threads", "t", 0, "Parallel downloads (defaults to N_THREADS)")
	cmd.Flags().BoolVar(&opts.ForceDownload, "force", false, "Download files already present locally")
	cmd.Flags().BoolVar(&opts.CheckDataIntegrity, "check-integrity", true, "Compare local and remote file sizes")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "Log every completed download")
	return cmd
}

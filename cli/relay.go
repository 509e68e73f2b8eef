package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ka2n/cmsrelay/api"
	"github.com/ka2n/cmsrelay/api/relay"
	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

var (
	reportPath string
	deadline   time.Duration
	noProgress bool
	strict     bool
	clearCache bool

	relayCmd = &cobra.Command{
		Use:   "relay",
		Short: "Download every referenced file and upload it to the backend",
		Long: `relay reads the whole listing, then downloads and uploads the referenced
files on a fixed number of workers. A file that cannot be relayed is reported
and does not stop the others. The command fails only when the listing cannot
be read at all, or with --strict when any file was not relayed.`,
		Args: cobra.NoArgs,
		RunE: runRelay,
	}
)

func init() {
	relayCmd.Flags().StringVarP(&reportPath, "report", "r", "", "Write the run report as JSON to this file")
	relayCmd.Flags().DurationVar(&deadline, "deadline", 0, "Abort the whole run after this duration (0 for none)")
	relayCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Log every file instead of showing a progress bar")
	relayCmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any file failed")
	relayCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Empty the download cache before relaying")
	rootCmd.AddCommand(relayCmd)
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(rootCmd.PersistentFlags(), &flags)
	if err != nil {
		return err
	}
	if clearCache && cfg.CacheDir != "" {
		if err := relay.ClearCache(cfg.CacheDir); err != nil {
			return err
		}
	}
	runner, err := api.NewRunner(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	var out *api.Outcome
	if !noProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		out, err = runWithProgress(ctx, runner.Relay)
	} else {
		out, err = runner.Relay(ctx, relay.LogObserver{})
	}
	if err != nil {
		return err
	}

	if reportPath != "" {
		if err := writeReport(reportPath, out.Report); err != nil {
			return err
		}
	}
	if err := printReport(os.Stdout, out); err != nil {
		return err
	}

	if strict && out.Report.Succeeded != out.Report.Total {
		return failure.New(RelayIncomplete,
			failure.Message(fmt.Sprintf("%d of %d files were not relayed", out.Report.Total-out.Report.Succeeded, out.Report.Total)),
		)
	}
	return nil
}

func writeReport(path string, report *relay.Report) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return failure.Wrap(err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return failure.Wrap(err, failure.WithCode(ReportWrite),
			failure.Message("Cannot write the report file"),
			failure.Context{"path": path},
		)
	}
	return nil
}

package cli

import (
	"fmt"
	"time"

	"github.com/ka2n/cmsrelay/api"
	"github.com/ka2n/cmsrelay/config"
	"github.com/ka2n/cmsrelay/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// overrides holds the persistent flags that replace config values when set
type overrides struct {
	configPath string

	baseURL   string
	token     string
	cacheDir  string
	workers   int
	attempts  int
	delay     time.Duration
	timeout   time.Duration
	pageSize  int
	rateLimit float64
	strategy  strategyFlag
}

var (
	flags overrides

	// Root command
	rootCmd = &cobra.Command{
		Use:           "cmsrelay",
		Short:         "Relay files referenced by a CMS listing back into the CMS",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `cmsrelay pages through a collection of the content-management backend,
collects the file URLs nested in every record, downloads each file from its
origin and uploads it to the backend, attached to the entry it came from.

Settings come from an optional YAML file (--config), the CMSRELAY_BASE_URL,
CMSRELAY_TOKEN and CMSRELAY_CACHE_DIR environment variables, and flags, in
increasing order of precedence.`,
	}

	// Version information
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Version command
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print detailed version information about cmsrelay",
		Run: func(cmd *cobra.Command, args []string) {
			commit := Commit
			if commit == "none" && api.VersionCommit != "" {
				commit = api.VersionCommit
			}
			fmt.Printf("cmsrelay version %s\n", Version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", Date)
		},
	}
)

func init() {
	registerOverrides(rootCmd.PersistentFlags(), &flags)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcp.Command(func() (config.Config, error) {
		return loadConfig(rootCmd.PersistentFlags(), &flags)
	}))
}

func registerOverrides(fs *pflag.FlagSet, o *overrides) {
	fs.StringVarP(&o.configPath, "config", "c", "", "Path to a YAML config file")
	fs.StringVar(&o.baseURL, "base-url", "", "Backend base URL")
	fs.StringVar(&o.token, "token", "", "Backend API token")
	fs.StringVar(&o.cacheDir, "cache-dir", "", "Directory for cached downloads (disabled when empty)")
	fs.IntVarP(&o.workers, "workers", "w", 0, "Number of files processed concurrently")
	fs.IntVar(&o.attempts, "attempts", 0, "Attempts per download, including the first one")
	fs.DurationVar(&o.delay, "retry-delay", 0, "Delay before a retry")
	fs.DurationVar(&o.timeout, "timeout", 0, "Timeout of a single request")
	fs.IntVar(&o.pageSize, "page-size", 0, "Listing page size")
	fs.Float64Var(&o.rateLimit, "rate-limit", 0, "Maximum downloads started per second (0 for unlimited)")
	fs.Var(&o.strategy, "strategy", "Retry strategy: constant or exponential")
}

// loadConfig reads the config file and applies the flags that were given on the command line
func loadConfig(fs *pflag.FlagSet, o *overrides) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	if fs.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if fs.Changed("token") {
		cfg.Token = o.token
	}
	if fs.Changed("cache-dir") {
		cfg.CacheDir = o.cacheDir
	}
	if fs.Changed("workers") {
		cfg.Pool.Workers = o.workers
	}
	if fs.Changed("attempts") {
		cfg.Pool.Attempts = o.attempts
	}
	if fs.Changed("retry-delay") {
		cfg.Pool.RetryDelay = o.delay
	}
	if fs.Changed("timeout") {
		cfg.Pool.RequestTimeout = o.timeout
	}
	if fs.Changed("page-size") {
		cfg.Listing.PageSize = o.pageSize
	}
	if fs.Changed("rate-limit") {
		cfg.Pool.RateLimit = o.rateLimit
	}
	if o.strategy.IsSet {
		cfg.Pool.Strategy = o.strategy.Value
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Run executes the main CLI functionality
func Run() error {
	return rootCmd.Execute()
}

// Command systemjumps polls the EVE Online jumps feed and stores every pull
// as a new column of a wide per-system table.
//
// Usage:
//
//	systemjumps serve [-c systemjumps.yaml]
//	systemjumps show [--table name] [--limit n]
//	systemjumps validate [-c systemjumps.yaml]
//	systemjumps config [-c systemjumps.yaml]
//	systemjumps version
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caeruleus1F/systemjumps/internal/config"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

var rootCmd = &cobra.Command{
	Use:   "systemjumps",
	Short: "Poll the EVE jumps feed into a SQL table",
	Long: `systemjumps fetches the per-system jump counts, keeps the latest document
in a local cache file, and adds one column per pull to a wide table keyed by
solarSystemID. The next pull is scheduled from the feed's cachedUntil time.

Configuration is read from an optional YAML file (--config) and environment
variables, which take precedence:

  DATABASE_URL        Database connection string (or DB_HOST + DB_NAME)
  DB_DRIVER           postgres, pgx or mysql (default: "postgres")
  DB_HOST, DB_NAME, DB_USER, DB_PASSWORD
  SOURCE_URL          Jumps document URL (default: EVE API)
  CACHE_PATH          Local document cache (default: "jumps.xml")
  SAFETY_MARGIN       Added to the feed's cache window (default: "5m")
  RETRY_INTERVAL      Delay after a failed attempt (default: "1m")
  FETCH_TIMEOUT       HTTP timeout (default: "30s")
  DB_OP_TIMEOUT       Per-statement timeout (default: "5s")
  TABLE_NAMING_MODE   fixed or period (default: "fixed")
  TABLE_NAME          Table, or table prefix in period mode (default: "systemjumps")
  REDIS_ADDR          Redis address for pull history (optional)
  HISTORY_RETENTION   TTL of pull history records (default: "720h")
  METRICS_ENABLED     Enable Prometheus metrics (default: "false")
  METRICS_PATH        Metrics endpoint path (default: "/metrics")
  METRICS_PORT        Metrics server port (default: "9090")
  LOG_FILE            Also append log lines to this file (optional)

Exit codes:
  0 - success
  1 - runtime error
  2 - invalid configuration`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("systemjumps version %s (commit: %s)\n", version, commit)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print effective configuration as JSON (secrets masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		data, err := cfg.MaskedJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration (no connections made)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		fmt.Println("configuration valid")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to YAML config file (optional)")
	rootCmd.AddCommand(serveCmd, showCmd, validateCmd, configCmd, versionCmd)
}

func main() {
	os.Exit(execute())
}

func execute() int {
	err := rootCmd.Execute()
	return exitCode(err)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var verrs config.ValidationErrors
	if errors.As(err, &verrs) {
		return exitInvalidConfig
	}
	return exitRuntimeError
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

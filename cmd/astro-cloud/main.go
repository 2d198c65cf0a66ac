package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbcurtin/astro-cloud/clientcli"
	"github.com/jbcurtin/astro-cloud/config"
)

var version = "dev"

var (
	configFiles []string
	jsonOutput  bool
	quiet       bool
	query       string
)

var rootCmd = &cobra.Command{
	Use:     "astro-cloud",
	Version: version,
	Short:   "Index FITS headers in cloud object storage",
	Long: `astro-cloud reads the headers of FITS files stored in S3-compatible
object storage with HTTP range requests, without downloading the data.

Configuration is read from ./astro-cloud.yaml (or --config), ASTROCLOUD_*
environment variables and flags, in increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}
		fallback := "warn"
		if cmd.Name() == serveCmd.Name() {
			fallback = "info"
		}
		setupLogging(cfg, fallback)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "config file path, repeatable (default: ./astro-cloud.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: ASTROCLOUD_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("db-type", "", "index cache database: sqlite, postgres (default: sqlite)")
	rootCmd.PersistentFlags().String("db-dsn", "", "index cache connection string (default: astro-cloud.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&query, "query", "", "JMESPath query applied to JSON output")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if formatter, ferr := getFormatter(); ferr == nil {
			_ = formatter.FormatError(os.Stderr, err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func getFormatter() (clientcli.Formatter, error) {
	return clientcli.NewFormatter(jsonOutput, quiet, query)
}

// profilesPath returns ASTROCLOUD_CLIENT_CONFIG or ~/.astro-cloud/config.yaml.
func profilesPath() string {
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/clientcli"
	"github.com/jbcurtin/astro-cloud/config"
	"github.com/jbcurtin/astro-cloud/database"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the header index cache",
	Long: `Inspect indexes stored by 'astro-cloud index --cache'.

The cache lives in the database configured under database (sqlite by
default, see --db-type and --db-dsn).`,
}

var cacheListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cached indexes",
	Args:    cobra.NoArgs,
	RunE:    runCacheList,
}

var cacheDeleteCmd = &cobra.Command{
	Use:     "delete <url>",
	Aliases: []string{"rm"},
	Short:   "Remove a cached index",
	Args:    cobra.ExactArgs(1),
	RunE:    runCacheDelete,
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
}

// withCacheClient runs fn with a client backed by the configured database.
func withCacheClient(cmd *cobra.Command, fn func(*clientcli.Client, clientcli.Formatter) error) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	formatter, err := getFormatter()
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open index cache: %w", err)
	}
	defer func() { _ = db.Close() }()

	client, err := clientcli.New(&clientcli.Config{Service: astrocloud.ServicePublic}, clientcli.WithRepo(db.GetRepo()))
	if err != nil {
		return err
	}

	return fn(client, formatter)
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	return withCacheClient(cmd, func(client *clientcli.Client, formatter clientcli.Formatter) error {
		summaries, err := client.Cached(cmd.Context())
		if err != nil {
			return err
		}
		return formatter.FormatCacheList(os.Stdout, summaries)
	})
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	return withCacheClient(cmd, func(client *clientcli.Client, formatter clientcli.Formatter) error {
		if err := client.Forget(cmd.Context(), args[0]); err != nil {
			return err
		}
		return formatter.FormatForget(os.Stdout, args[0])
	})
}

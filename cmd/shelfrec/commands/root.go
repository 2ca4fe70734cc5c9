// Package commands implements the shelfrec command line.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	dataDir    string
	server     string
	apiKey     string
	logLevel   string
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "shelfrec",
		Short: "Recommend books, courses and movies from local datasets or a shelfrecd server",
		Long: `shelfrec ranks catalog items by rating after filtering them by title
(substring, then fuzzy), category and author or publisher.

Without --server the datasets are read from --data-dir (books.csv,
courses.csv, movies.csv) or from the paths of --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (YAML); defaults apply when empty")
	pf.StringVarP(&opts.dataDir, "data-dir", "d", "./data", "directory holding books.csv, courses.csv and movies.csv")
	pf.StringVarP(&opts.server, "server", "s", "", "shelfrecd base URL; query the server instead of local datasets")
	pf.StringVar(&opts.apiKey, "api-key", os.Getenv("SHELFREC_API_KEY"), "API key for --server")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newRecommendCommand(opts),
		newDomainsCommand(opts),
		newUploadCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

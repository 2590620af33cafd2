// Command surrealkv-core is the CLI entrypoint this engine has instead of
// the teacher's HTTP router: a cobra root with serve/bootstrap/catalog
// subcommands, grounded on forbearing-gst/cmd/gg/root.go's
// PersistentFlags-in-init/AddCommand shape even though that tool is a code
// generator, not a server — no teacher entrypoint actually blocks on a
// signal, so serve's RunE is original, written against bootstrap.Bootstrap
// and bootstrap.Run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forbearing/surrealkv-core/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:     "surrealkv-core",
	Short:   "multi-model query engine",
	Long:    "surrealkv-core runs and inspects the query-execution engine core.",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (defaults to ./config.ini)")
	cobra.OnInitialize(func() {
		if configFile != "" {
			config.SetConfigFile(configFile)
		}
	})

	rootCmd.AddCommand(serveCmd, bootstrapCmd, catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

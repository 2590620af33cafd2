package main

import (
	"github.com/spf13/cobra"

	"github.com/forbearing/surrealkv-core/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bootstrap the engine and block until terminated",
	Long:  "serve wires the configured kv store, RBAC, jwks and notify collaborators, then blocks until SIGINT/SIGTERM/SIGQUIT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := bootstrap.Bootstrap(); err != nil {
			return err
		}
		return bootstrap.Run()
	},
}

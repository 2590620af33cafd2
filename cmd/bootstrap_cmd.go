package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forbearing/surrealkv-core/bootstrap"
	"github.com/forbearing/surrealkv-core/config"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Run bootstrap once and exit",
	Long:  "bootstrap wires every collaborator serve would, then tears them down immediately. Useful for smoke-testing config and migrating the kv store's schema without holding the process open.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := bootstrap.Bootstrap(); err != nil {
			return err
		}
		defer bootstrap.Cleanup()
		fmt.Printf("bootstrap ok: node=%s kv_backend=%s\n", config.App.Server.NodeID, config.App.Kv.Backend)
		return nil
	},
}

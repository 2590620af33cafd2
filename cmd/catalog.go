package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forbearing/surrealkv-core/bootstrap"
	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/types/consts"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the persisted catalog",
}

var catalogDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump every catalog entry as key + pretty-printed JSON",
	Long:  "dump bootstraps the configured kv store, opens a read-only transaction on it and prints every key/value pair in the catalog's keyspace, in key order. Every catalog value is JSON (§6.5), so values are re-indented for readability rather than printed raw.",
	RunE:  runCatalogDump,
}

func init() {
	catalogCmd.AddCommand(catalogDumpCmd)
}

func runCatalogDump(cmd *cobra.Command, args []string) error {
	rt, err := bootstrap.Bootstrap()
	if err != nil {
		return err
	}
	defer bootstrap.Cleanup()

	ctx := context.Background()
	tx, err := rt.Store.Begin(ctx, consts.TxReadOptimistic)
	if err != nil {
		return err
	}
	defer tx.Cancel(ctx)

	it, err := tx.StreamKeysVals(ctx, kvs.KeyRange{}, kvs.CacheReadOnly, consts.Forward)
	if err != nil {
		return err
	}
	defer it.Close()

	count := 0
	for it.Next(ctx) {
		kv := it.KeyValue()
		fmt.Printf("%s\n%s\n\n", kv.Key, prettyJSON(kv.Value))
		count++
	}
	if err := it.Err(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d entries\n", count)
	return nil
}

// prettyJSON re-indents a catalog value for display, falling back to the raw
// bytes for any value that is not valid JSON.
func prettyJSON(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}

// This program performs administrative tasks against the data directory of
// a stopped node.
package main

import (
	"fmt"
	"os"

	"github.com/simplechain/node/app/tooling/admin/commands"
	"github.com/simplechain/node/foundation/blockchain/storage"
	"github.com/simplechain/node/foundation/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

var dataDir string

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "Inspect the chain kept by a stopped node",
		Version:      build,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "zblock/data", "Data directory of the node.")

	balsCmd := &cobra.Command{
		Use:   "bals [pubkey]",
		Short: "Print the account balances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pubkey string
			if len(args) == 1 {
				pubkey = args[0]
			}

			return withStorage(log, func(strg *storage.Storage) error {
				return commands.Balances(os.Stdout, strg, pubkey)
			})
		},
	}

	blocksCmd := &cobra.Command{
		Use:   "blocks",
		Short: "Print the blocks of the chain in height order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(log, func(strg *storage.Storage) error {
				return commands.Blocks(os.Stdout, strg)
			})
		},
	}

	rootCmd.AddCommand(balsCmd, blocksCmd)

	return rootCmd.Execute()
}

// withStorage opens the data directory read only for the command.
func withStorage(log *zap.SugaredLogger, fn func(strg *storage.Storage) error) error {
	log.Infow("admin", "status", "open storage", "dataDir", dataDir)

	strg, err := storage.Open(dataDir, storage.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer strg.Close()

	return fn(strg)
}

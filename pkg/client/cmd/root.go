package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var host string
var useMsgPack bool

var rootCmd = &cobra.Command{
	Use:   "webbridge",
	Short: "Talk to a running webbridge dev server",
	Long: `Talk to a running webbridge dev server.

The dev server exposes the same routes and events an embedded web view sees.
These commands let you fetch routes and exchange events from a terminal.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "127.0.0.1:8080", "Dev server to connect to")
	rootCmd.PersistentFlags().BoolVar(&useMsgPack, "msgpack", false, "[ADVANCED] exchange events as MessagePack frames")

	rootCmd.PersistentFlags().MarkHidden("msgpack")

	rootCmd.AddCommand(watchCmd, emitCmd, getCmd)
}

package main

import (
	"log"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ttevents",
		Short: "Builds TikTok Events API request bodies from tag runtime events",
		// main logs the returned error once.
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newBuildCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

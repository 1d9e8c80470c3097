package cmd

import (
	"tunedeck/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the tunedeck HTTP server",
	Long:  `Start the tunedeck API server: auth, tracks, playlists, sharing and cloning.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func runServer() {
	server.Start()
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

package cmd

import (
	"log"

	"tunedeck/config"
	"tunedeck/db"
	"tunedeck/model"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migration",
	Long:  `Connect to MySQL and migrate the tunedeck schema to the current model set.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.CloseGormDB()

		if err := db.AutoMigrateModels(
			&model.User{},
			&model.Playlist{},
			&model.Track{},
			&model.TrackPlaylist{},
			&model.PlaylistUserPermission{},
			&model.RefreshToken{},
		); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

		log.Println("Migration completed.")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

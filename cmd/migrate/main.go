// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate up | down | steps N | version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"winery_backend/internal/config"
	"winery_backend/internal/database"
	"winery_backend/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", "console")
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	utils.InitLogger(cfg.Log.Level, cfg.Log.Format)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|steps N|version")
		os.Exit(2)
	}

	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	m, err := database.NewMigrator(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}
	defer m.Close()

	switch os.Args[1] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		if len(os.Args) < 3 {
			log.Fatal().Msg("steps requires a count, e.g. steps -1")
		}
		n, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			log.Fatal().Err(convErr).Msg("Invalid step count")
		}
		err = m.Steps(n)
	case "version":
		version, dirty, verr := m.Version()
		if verr == nil {
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
		}
		err = verr
	default:
		log.Fatal().Str("command", os.Args[1]).Msg("Unknown command")
	}
	if err != nil {
		log.Error().Err(err).Msg("Migration command failed")
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/vncsmyrnk/pollvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollvote/internal/config"
)

const usage = "usage: migrations <up|down|version>"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var pg config.Postgres
	if err := config.ReadPostgres(&pg); err != nil {
		log.Fatal(err)
	}
	dsn := pg.DSN()

	switch os.Args[1] {
	case "up":
		if err := postgres.MigrateUp(dsn); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Migrations applied successfully.")
	case "down":
		if err := postgres.MigrateDown(dsn); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Migrations reverted successfully.")
	case "version":
		version, dirty, err := postgres.MigrationVersion(dsn)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
	default:
		log.Fatal(usage)
	}
}

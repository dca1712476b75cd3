// Command migrate applies, reverts or reports database migrations.
//
//	migrate [up|down|status]
package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/sportsclub/server/internal/shared/config"
	"github.com/sportsclub/server/internal/shared/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		err = database.Migrate(db)
	case "down":
		err = database.Rollback(db)
	case "status":
		err = database.Status(db)
	default:
		log.Fatalf("Unknown command %q (want up, down or status)", command)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", command, err)
	}
	log.Printf("Migration %s complete", command)
}

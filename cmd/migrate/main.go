// This file is used to run history database migrations
// How to run:
// go run cmd/migrate/main.go                  # Apply the schema
// go run cmd/migrate/main.go -retries 10      # More connection retries
package main

import (
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/alcyonehq/alcyone/config"
	"github.com/alcyonehq/alcyone/internal/constants"
	"github.com/alcyonehq/alcyone/internal/db"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	var (
		retries   = flag.Int("retries", 5, "Number of connection retries")
		retryWait = flag.Duration("retry-wait", 3*time.Second, "Wait time between retries")
	)
	flag.Parse()

	opts := db.Options{
		Host:     config.GetEnv(constants.EnvDBHost, db.DefaultHost),
		Port:     config.GetEnvInt(constants.EnvDBPort, db.DefaultPort),
		User:     config.GetEnv(constants.EnvDBUser, db.DefaultUser),
		Password: config.GetEnv(constants.EnvDBPassword, db.DefaultPassword),
		DBName:   config.GetEnv(constants.EnvDBName, db.DefaultDBName),
	}

	var (
		conn *gorm.DB
		err  error
	)
	for attempt := 1; attempt <= *retries; attempt++ {
		conn, err = db.New(opts)
		if err == nil {
			break
		}
		log.Printf("Connection attempt %d/%d failed: %v", attempt, *retries, err)
		if attempt < *retries {
			time.Sleep(*retryWait)
		}
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(conn); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration complete")
}

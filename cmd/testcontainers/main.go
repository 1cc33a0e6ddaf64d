package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/taskpilot/taskpilot/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run a throwaway MariaDB container with the documents schema applied, for
local development against a real database.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	}

	ctx := context.Background()
	mdb, err := testutil.StartMariaDB(ctx)
	if err != nil {
		log.Fatalf("Failed to start MariaDB container: %v\n", err)
	}

	log.Printf("DB_TYPE=mariadb")
	log.Printf("DB_HOST=%s", mdb.Host)
	log.Printf("DB_PORT=%s", mdb.Port)
	log.Printf("DB_DATABASE=%s", mdb.Database)
	log.Printf("DB_USER=%s", mdb.User)
	log.Printf("DB_PASSWORD=%s", mdb.Password)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Printf("Received signal: %v, terminating container...\n", sig)
	if err := mdb.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate container: %v\n", err)
	}
}

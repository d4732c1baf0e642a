package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/kiemxuonline/kiemxu/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to $KIEMXU_CONFIG or ./config.yaml)")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	if *migrateOnly {
		if errMigrate := app.Migrate(*configPath); errMigrate != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", errMigrate)
			os.Exit(1)
		}
		fmt.Println("migrations applied")
		return
	}

	if errRun := app.RunServer(*configPath); errRun != nil {
		log.WithError(errRun).Fatal("server exited")
	}
}

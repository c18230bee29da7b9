// README: Schema migration CLI: up, down [N], version.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"carpool/internal/infra"
	"carpool/internal/logging"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	dsn := os.Getenv("CARPOOL_DB_DSN")
	if dsn == "" {
		fatalf("CARPOOL_DB_DSN is required")
	}
	log := logging.New(os.Getenv("LOG_LEVEL"))

	switch args[0] {
	case "up":
		if err := infra.Migrate(dsn, log); err != nil {
			fatalf("%v", err)
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				fatalf("down: invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := infra.MigrateDown(dsn, steps, log); err != nil {
			fatalf("%v", err)
		}
		log.Info("migrations rolled back", "steps", steps)
	case "version":
		v, dirty, ok, err := infra.MigrationVersion(dsn, log)
		if err != nil {
			fatalf("%v", err)
		}
		if !ok {
			fmt.Println("version: none")
			return
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: carpool-migrate <command> [args]

Commands:
  up         Apply all pending migrations
  down [N]   Roll back N migrations (default 1)
  version    Print the applied migration version

Environment:
  CARPOOL_DB_DSN   Postgres connection string`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "carpool-migrate: "+format+"\n", args...)
	os.Exit(1)
}

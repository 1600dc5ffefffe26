package main

import (
	"embed"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"
)

const (
	cmdUp      = "up"
	cmdDown    = "down"
	cmdVersion = "version"
	usage      = "usage: go run ./cmd/migrate [up|down|version] [steps]"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

var (
	loadEnvFunc     = godotenv.Load
	newMigratorFunc = newMigrator
)

func main() {
	_ = loadEnvFunc()

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	dsn := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	m, err := newMigratorFunc(dsn)
	if err != nil {
		log.Fatalf("open migrator: %v", err)
	}
	defer m.Close()

	msg, err := run(m, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	log.Println(msg)
}

func run(m migrator, args []string) (string, error) {
	switch args[0] {
	case cmdUp:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return "", fmt.Errorf("apply migrations up: %w", err)
		}
		return "migrations up complete", nil
	case cmdDown:
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return "", fmt.Errorf("invalid down steps: %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil {
			return "", fmt.Errorf("apply migrations down: %w", err)
		}
		return fmt.Sprintf("migrations down complete (%d rolled back)", steps), nil
	case cmdVersion:
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return "no migrations applied", nil
		}
		if err != nil {
			return "", fmt.Errorf("read current version: %w", err)
		}
		if dirty {
			return fmt.Sprintf("current version: %d (dirty)", version), nil
		}
		return fmt.Sprintf("current version: %d", version), nil
	}
	return "", fmt.Errorf("unknown command %q. %s", args[0], usage)
}

func newMigrator(dsn string) (migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, driverURL(dsn))
}

// driverURL points a postgres DSN at the pgx/v5 migrate driver.
func driverURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

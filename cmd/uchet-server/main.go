// Package main is the entrypoint for the uchet backend server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/xotizwf-create/Uchet/internal/config"
	"github.com/xotizwf-create/Uchet/internal/server"
	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/demo"
)

const usage = `Usage: uchet-server [command]
       uchet-server serve              Start the backend (HTTP endpoint, optional COMMS transport).
       uchet-server migrate up         Run database migrations.
       uchet-server migrate down       Roll back one migration (optional; not all migrations support down).
       uchet-server migrate status     Show migration status.
       uchet-server ensure-db [name]   Create database if missing (default name: uchet_test). Uses DATABASE_URL host/user.
       uchet-server clear              Truncate all data tables; schema is preserved.
       uchet-server seed [file]        Seed demo data from a fixture file (built-in fixture when omitted).

Commands:
  serve            (default) Start the uchet backend.
  migrate up       Run database migrations only.
  migrate down     Roll back last migration (optional).
  migrate status   Show current migration status.
  ensure-db [name] Create database (e.g. uchet_test) on same host as DATABASE_URL; then run tests with that URL.
  clear            Truncate contracts, warehouse, and price list data; schema preserved.
  seed [file]      Seed the demo fixture (file argument, then FIXTURE_FILE, then built-in).

Environment: DATABASE_URL (required), MIGRATION_PATH, HTTP_ADDR (default :8080), COMMS_URL, SEED_DEMO, FIXTURE_FILE. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("uchet-server migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("uchet-server migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("uchet-server migrate status: %v", err)
			}
		case "down":
			if err := runMigrateDown(); err != nil {
				log.Fatalf("uchet-server migrate down: %v", err)
			}
		default:
			log.Fatalf("uchet-server migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("uchet-server clear: %v", err)
		}
		return
	case "seed":
		fixtureFile := ""
		if len(args) > 1 {
			fixtureFile = args[1]
		}
		if err := runSeed(fixtureFile); err != nil {
			log.Fatalf("uchet-server seed: %v", err)
		}
		return
	case "ensure-db":
		dbName := "uchet_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("uchet-server ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("uchet-server: %v", err)
	}
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
}

func runMigrateDown() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationDown(ctx, pool, cfg.MigrationPath)
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearData(ctx, pool); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	// Replace path with target database name; query (e.g. sslmode) is kept on u.RawQuery.
	u.Path = "/" + dbName
	targetURL := u.String()
	ctx := context.Background()
	if err := db.EnsureDatabase(ctx, targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

func runSeed(fixtureFileOverride string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	fixturePath := fixtureFileOverride
	if fixturePath == "" {
		fixturePath = cfg.FixtureFile
	}
	fixture, err := demo.LoadFixture(fixturePath)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.SeedDemo(ctx, pool, fixture); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/db"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/migrate"
)

// command is one migrate subcommand. Commands with a nil dbRun only touch
// the migrations directory and never open a connection.
type command struct {
	usage  string
	fsRun  func(dir string, args []string) error
	dbRun  func(ctx context.Context, sqlDB *sql.DB, dir string, args []string) error
	hasArg bool
}

var commands = map[string]command{
	"up": {
		usage: "apply every pending migration",
		dbRun: gooseCommand("up"),
	},
	"down": {
		usage: "roll back the newest migration",
		dbRun: gooseCommand("down"),
	},
	"status": {
		usage: "print applied and pending migrations",
		dbRun: gooseCommand("status"),
	},
	"version": {
		usage:  "migrate up or down to <YYYYMMDDHHMMSS>",
		hasArg: true,
		dbRun: func(ctx context.Context, sqlDB *sql.DB, dir string, args []string) error {
			if dir == "" {
				return migrate.MigrateToVersionEmbedded(ctx, sqlDB, args[0])
			}
			return migrate.MigrateToVersion(ctx, sqlDB, dir, args[0])
		},
	},
	"create": {
		usage:  "scaffold <name> as the next migration",
		hasArg: true,
		fsRun: func(dir string, args []string) error {
			created, err := migrate.CreateSQLMigration(sourceDir(dir), args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Println("created migration:", created.Path)
			return nil
		},
	},
	"validate": {
		usage: "check filenames and goose annotations",
		fsRun: func(dir string, _ []string) error {
			if err := migrate.ValidateDir(sourceDir(dir)); err != nil {
				return err
			}
			fmt.Println("migration validation passed")
			return nil
		},
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	dir := flag.String("dir", "", "migrations directory; database commands use the embedded set when empty, create and validate use "+migrate.DefaultDir)
	flag.Usage = usage
	flag.Parse()

	name := flag.Arg(0)
	if name == "" {
		name = "up"
	}
	cmd, ok := commands[name]
	if !ok {
		usage()
		os.Exit(2)
	}
	args := flag.Args()
	if len(args) > 0 {
		args = args[1:]
	}
	if cmd.hasArg && len(args) == 0 {
		fmt.Fprintf(os.Stderr, "migrate %s: missing argument\n", name)
		os.Exit(2)
	}

	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": name, "dir": *dir})
	if err := run(ctx, logg, cmd, *dir, args); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, cmd command, dir string, args []string) error {
	if cmd.fsRun != nil {
		return cmd.fsRun(dir, args)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	return cmd.dbRun(ctx, sqlDB, dir, args)
}

func gooseCommand(name string) func(ctx context.Context, sqlDB *sql.DB, dir string, _ []string) error {
	return func(ctx context.Context, sqlDB *sql.DB, dir string, _ []string) error {
		if dir == "" {
			return migrate.RunEmbedded(ctx, sqlDB, name)
		}
		return migrate.Run(ctx, sqlDB, dir, name)
	}
}

func sourceDir(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-dir path] <command> [arg]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", name, commands[name].usage)
	}
}

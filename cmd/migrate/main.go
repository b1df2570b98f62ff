package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/propertyloyalty/points-backend/pkg/config"
	"github.com/propertyloyalty/points-backend/pkg/db"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command> [arg]

commands:
  up              apply every pending migration
  down            roll back the newest migration
  redo            roll back and re-apply the newest migration
  reset           roll back every migration
  status          list migrations and whether they are applied
  to <version>    move the schema to <version> (YYYYMMDDHHMMSS)
  create <name>   write an empty migration into -dir
  validate        check migration names and goose markers in -dir

flags:
`

type runFunc func(*migrate.Migrator, context.Context) ([]migrate.Applied, error)

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "migrations directory (default: migrations compiled into the binary)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, arg := flag.Arg(0), flag.Arg(1)

	// create and validate only touch files.
	switch command {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		if arg == "" {
			exitf("create needs a migration name")
		}
		path, err := migrate.CreateSQLMigration(target, arg)
		if err != nil {
			exitf("%v", err)
		}
		fmt.Println(path)
		return
	case "validate":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		if err := migrate.ValidateDir(target); err != nil {
			exitf("%v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	run, err := commandFor(command, arg)
	if err != nil {
		exitf("%v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		exitf("config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"command":   command,
		"db_driver": cfg.DB.Driver,
		"env":       cfg.App.Env,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(ctx, logg, "database unavailable", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		fail(ctx, logg, "database handle unavailable", err)
	}
	source, err := migrate.Source(*dir)
	if err != nil {
		fail(ctx, logg, "migrations unavailable", err)
	}
	migrator, err := migrate.NewMigrator(sqlDB, migrate.Dialect(cfg.DB), source)
	if err != nil {
		fail(ctx, logg, "migrator unavailable", err)
	}

	if command == "status" {
		printStatus(ctx, logg, migrator)
		return
	}

	start := time.Now()
	applied, err := run(migrator, ctx)
	if err != nil {
		fail(ctx, logg, "migration failed", err)
	}
	for _, a := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     a.Version,
			"path":        a.Path,
			"duration_ms": a.Duration.Milliseconds(),
			"empty":       a.Empty,
		}), "migration applied")
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"count":       len(applied),
		"duration_ms": time.Since(start).Milliseconds(),
	}), "migrate finished")
}

func commandFor(command, arg string) (runFunc, error) {
	switch command {
	case "up":
		return (*migrate.Migrator).Up, nil
	case "down":
		return (*migrate.Migrator).Down, nil
	case "redo":
		return (*migrate.Migrator).Redo, nil
	case "reset":
		return (*migrate.Migrator).Reset, nil
	case "status":
		return nil, nil
	case "to":
		version, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || len(arg) != 14 {
			return nil, fmt.Errorf("to needs a YYYYMMDDHHMMSS version, got %q", arg)
		}
		return func(m *migrate.Migrator, ctx context.Context) ([]migrate.Applied, error) {
			return m.To(ctx, version)
		}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func printStatus(ctx context.Context, logg *logger.Logger, migrator *migrate.Migrator) {
	statuses, err := migrator.Status(ctx)
	if err != nil {
		fail(ctx, logg, "status failed", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		appliedAt := "pending"
		if s.Applied {
			appliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, appliedAt, s.Path)
	}
	_ = w.Flush()
}

func fail(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "migrate: "+format+"\n", args...)
	os.Exit(1)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/angelmondragon/shootpay-backend/internal/bootstrap"
	"github.com/angelmondragon/shootpay-backend/pkg/db"
	"github.com/angelmondragon/shootpay-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; defaults to the embedded schema (create uses "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	proc := bootstrap.Start("migrate")
	defer proc.Shutdown()
	logg := proc.Logger
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": *dir})

	fsys := migrate.Migrations()
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}

	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		proc.Must(ctx, "create migration", err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		proc.Must(ctx, "validate migrations", migrate.Validate(fsys))
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, proc.Config.DB, logg)
	proc.Must(ctx, "database", err)
	proc.OnShutdown("database", dbClient.Close)
	sqlDB, err := dbClient.DB().DB()
	proc.Must(ctx, "sql database", err)

	runner, err := migrate.NewRunner(sqlDB, fsys, logg)
	proc.Must(ctx, "migration runner", err)
	proc.Must(ctx, "goose "+*cmd, run(ctx, runner, *cmd, *version))
}

func run(ctx context.Context, runner *migrate.Runner, cmd, version string) error {
	switch cmd {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			applied := "pending"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-24s %s\n", applied, st.Source.Path)
		}
		return nil
	case "version":
		target, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid -version %q (expected YYYYMMDDHHMMSS): %w", version, err)
		}
		return runner.To(ctx, target)
	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}
}

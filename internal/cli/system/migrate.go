package system

import (
	"fmt"

	"github.com/julianstephens/habitboard/internal/cli"
)

type MigrateCmd struct {
	Status bool `help:"Show the schema version and pending migrations without applying them."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	migrator, ok := ctx.Store.(cli.Migrator)
	if !ok {
		return fmt.Errorf("migrate command only supports SQLite and PostgreSQL storage")
	}

	if c.Status {
		status, err := migrator.MigrationStatus()
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		ctx.Printf("Schema version: %d (latest %d)\n", status.Current, status.Latest)
		if len(status.Pending) == 0 {
			ctx.Println("Database is up to date.")
			return nil
		}
		ctx.Println("Pending migrations:")
		for _, m := range status.Pending {
			ctx.Printf("  %03d_%s\n", m.Version, m.Name)
		}
		return nil
	}

	count, err := migrator.Migrate(func(msg string) {
		ctx.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}

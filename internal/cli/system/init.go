package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/storage/sqlite"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing SQLite database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		store, ok := ctx.Store.(*sqlite.Store)
		if !ok {
			return fmt.Errorf("--force only supports SQLite storage")
		}
		dbPath := store.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			// Close first to release the file
			if err := store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
			ctx.Store = sqlite.New(dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized habitboard storage at: %s\n", ctx.Store.GetConfigPath())
	return nil
}

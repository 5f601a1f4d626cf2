package backups

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/habitboard/internal/backup"
	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/logger"
	"github.com/julianstephens/habitboard/internal/storage/sqlite"
)

var errNotSQLite = errors.New("backups only support SQLite storage")

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Snapshot the database." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List snapshots, newest first."`
	Restore BackupRestoreCmd `cmd:"" help:"Replace the database with a snapshot."`
}

func manager(ctx *cli.Context) (*backup.Manager, error) {
	store, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		return nil, errNotSQLite
	}
	return backup.NewManager(store.GetConfigPath(), backup.WithClock(ctx.Clock)), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	snap, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	ctx.Printf("✓ Backup created: %s\n", snap.Name())
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	snaps, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(snaps) == 0 {
		ctx.Println("No backups found.")
		ctx.Printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	ctx.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(snaps), backup.DefaultRetention)
	for _, s := range snaps {
		ctx.Printf("  %s  %s  (%.1f KB)\n", s.Taken.Format("2006-01-02 15:04:05"), s.Name(), float64(s.Size)/1024.0)
	}
	ctx.Printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	File string `arg:"" help:"Path or file name of the snapshot to restore."`
	Yes  bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	path, err := c.resolve(mgr)
	if err != nil {
		return err
	}

	if !c.Yes {
		ctx.Println("⚠️  This replaces the current database with the snapshot.")
		ctx.Println("⚠️  Stop every other habitboard process (TUI, serve) first.")
		ctx.Printf("\nRestore from: %s\n", path)
		ctx.Printf("Continue? [y/N]: ")
		answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			ctx.Println("Restore cancelled.")
			return nil
		}
	}

	dbPath := ctx.Store.GetConfigPath()
	if err := ctx.Store.Close(); err != nil {
		logger.Warn("Failed to close database before restore", "error", err)
	}
	previous, err := mgr.Restore(path)
	ctx.Store = sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	if previous.Path != "" {
		ctx.Printf("Saved the replaced database as: %s\n", previous.Name())
	}
	ctx.Println("✓ Database restored.")
	return nil
}

// resolve accepts a path or a snapshot file name in the backup directory.
func (c *BackupRestoreCmd) resolve(mgr *backup.Manager) (string, error) {
	if _, err := os.Stat(c.File); err == nil {
		return filepath.Abs(c.File)
	}
	if !filepath.IsAbs(c.File) {
		candidate := filepath.Join(mgr.Dir(), c.File)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("backup file not found: %s (also looked in %s)", c.File, mgr.Dir())
}

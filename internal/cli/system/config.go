package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/keyring"
	"github.com/julianstephens/habitboard/internal/storage/postgres"
)

type ConfigCmd struct {
	SetConnection    ConfigSetConnectionCmd    `cmd:"" help:"Store a database connection string in the OS keyring."`
	GetConnection    ConfigGetConnectionCmd    `cmd:"" help:"Show the stored connection string with its password masked."`
	DeleteConnection ConfigDeleteConnectionCmd `cmd:"" help:"Remove the stored connection string."`
	Status           ConfigStatusCmd           `cmd:"" help:"Check OS keyring availability."`
}

// ConfigSetConnectionCmd stores database connection credentials in the OS keyring
type ConfigSetConnectionCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL or Redis connection string to store in keyring."`
}

func (cmd *ConfigSetConnectionCmd) Run(ctx *cli.Context) error {
	conn := strings.TrimSpace(cmd.ConnectionString)
	switch {
	case strings.HasPrefix(conn, "redis://") || strings.HasPrefix(conn, "rediss://"):
	case postgres.IsConnString(conn):
		if _, err := postgres.ValidateConnString(conn); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			// The keyring is encrypted, so embedded credentials are allowed here
			ctx.Println("⚠️  Warning: Connection string contains embedded credentials.")
			ctx.Println("   It will be stored as-is in the encrypted OS keyring.")
		}
	default:
		return errors.New("connection string must be a PostgreSQL or Redis connection string")
	}

	if err := keyring.SetConnectionString(conn); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}

	ctx.Println("✓ Connection string stored successfully in OS keyring")
	ctx.Println("  You can now use habitboard without the --config flag")
	return nil
}

// ConfigGetConnectionCmd retrieves the stored connection string
type ConfigGetConnectionCmd struct{}

func (cmd *ConfigGetConnectionCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'habitboard config set-connection' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}
	ctx.Println(cli.MaskPassword(connStr))
	return nil
}

// ConfigDeleteConnectionCmd removes the stored connection string
type ConfigDeleteConnectionCmd struct{}

func (cmd *ConfigDeleteConnectionCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	ctx.Println("✓ Connection string deleted from OS keyring")
	return nil
}

// ConfigStatusCmd checks the availability of the OS keyring
type ConfigStatusCmd struct{}

func (cmd *ConfigStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	ctx.Println("✓ OS keyring is available")
	if _, err := keyring.GetConnectionString(); err == nil {
		ctx.Println("✓ Connection string is stored in keyring")
	} else if errors.Is(err, keyring.ErrNotFound) {
		ctx.Println("ℹ No connection string stored in keyring")
	}
	if user, err := keyring.GetSessionUser(); err == nil {
		ctx.Printf("✓ Signed in as %s\n", user)
	}
	return nil
}

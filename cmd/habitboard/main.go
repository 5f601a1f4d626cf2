package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/cli/backups"
	"github.com/julianstephens/habitboard/internal/cli/habits"
	"github.com/julianstephens/habitboard/internal/cli/system"
	"github.com/julianstephens/habitboard/internal/cli/tracking"
	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/errors"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/keyring"
	"github.com/julianstephens/habitboard/internal/logger"
)

var CLI struct {
	Version    kong.VersionFlag
	Config     string `help:"SQLite path, PostgreSQL connection string, redis:// URL or memory:. PostgreSQL credentials must NOT be embedded; use ${env_db}, .pgpass or 'habitboard config set-connection' instead." type:"string" default:"${config_path}"`
	User       string `help:"User whose board to open. Overrides ${env_user} and the signed-in session."`
	Debug      bool   `help:"Log debug output to stderr."`
	Optimistic bool   `help:"Use version-checked writes, retrying when another client saved first."`

	Init     system.InitCmd    `cmd:"" help:"Initialize habitboard storage."`
	Migrate  system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Login    system.LoginCmd   `cmd:"" help:"Sign in as a user."`
	Logout   system.LogoutCmd  `cmd:"" help:"Sign out."`
	Whoami   system.WhoamiCmd  `cmd:"" help:"Show the signed-in user."`
	Settings system.ConfigCmd  `cmd:"" name:"config" help:"Manage the stored database connection."`
	Tui      system.TuiCmd     `cmd:"" help:"Launch the interactive board." default:"1"`
	Serve    system.ServeCmd   `cmd:"" help:"Serve the board over HTTP."`
	Backup   backups.BackupCmd `cmd:"" help:"Manage SQLite database snapshots."`

	Habit habits.HabitCmd   `cmd:"" help:"Manage habits."`
	Item  habits.ItemCmd    `cmd:"" help:"Manage a habit's checklist items."`
	Check tracking.CheckCmd `cmd:"" help:"Toggle a checklist item for a day."`
	Done  tracking.DoneCmd  `cmd:"" help:"Toggle a habit done for a day."`
	Week  tracking.WeekCmd  `cmd:"" help:"Show the board for a week."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Weekly habit board"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
			"listen_addr": constants.DefaultListenAddr,
			"env_db":      constants.EnvDBConnection,
			"env_user":    constants.EnvUser,
		},
	)

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: logDir()}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	config, trusted := cli.ResolveConfig(CLI.Config)
	store, err := cli.OpenBackend(config, trusted)
	if err != nil {
		errors.Fatal(err)
	}

	appCtx := &cli.Context{
		Store:      store,
		Session:    identity.NewSession(cli.ResolveUser(CLI.User, keyring.GetSessionUser)),
		Optimistic: CLI.Optimistic,
	}

	err = ctx.Run(appCtx)
	if cerr := appCtx.Close(); cerr != nil {
		logger.Warn("Failed to close storage", "error", cerr)
	}
	errors.Fatal(err)
}

// logDir is the directory holding the default database; logs go beneath it.
func logDir() string {
	path, err := cli.ExpandPath(constants.DefaultConfigPath)
	if err != nil {
		return os.TempDir()
	}
	return filepath.Dir(path)
}

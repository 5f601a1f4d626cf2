package system

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/keyring"
)

// LoginCmd remembers the user whose board later commands open
type LoginCmd struct {
	User string `arg:"" help:"User ID to sign in as."`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	user := strings.TrimSpace(c.User)
	if user == "" {
		return errors.New("user ID cannot be empty")
	}
	if strings.Contains(user, "/") {
		return fmt.Errorf("user ID %q must not contain '/'", user)
	}
	if err := keyring.SetSessionUser(user); err != nil {
		return fmt.Errorf("failed to store session in keyring: %w", err)
	}
	ctx.Session.SignIn(user)
	ctx.Printf("✓ Signed in as %s\n", user)
	return nil
}

// LogoutCmd forgets the signed-in user
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	err := keyring.DeleteSessionUser()
	ctx.Session.SignOut()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			ctx.Println("ℹ Not signed in")
			return nil
		}
		return fmt.Errorf("failed to remove session from keyring: %w", err)
	}
	ctx.Println("✓ Signed out")
	if os.Getenv(constants.EnvUser) != "" {
		ctx.Printf("  %s is still set and will keep selecting a user\n", constants.EnvUser)
	}
	return nil
}

// WhoamiCmd prints the signed-in user
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *cli.Context) error {
	user, ok := ctx.Session.Current()
	if !ok {
		return identity.ErrSignedOut
	}
	ctx.Println(user)
	return nil
}

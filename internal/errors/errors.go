package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitboard/internal/board"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/logger"
	"github.com/julianstephens/habitboard/internal/migration"
	"github.com/julianstephens/habitboard/internal/storage"
	"github.com/julianstephens/habitboard/internal/storage/postgres"
	"github.com/julianstephens/habitboard/internal/validation"
	"github.com/julianstephens/habitboard/internal/week"
)

var hints = []struct {
	err  error
	hint string
}{
	{identity.ErrSignedOut, "sign in with 'habitboard login <user>' or pass --user"},
	{storage.ErrVersionConflict, "the board changed while saving; run the command again"},
	{board.ErrUndecodableField, "the stored board has a malformed entry; restore a backup or repair the document before saving"},
	{storage.ErrClosed, "the store was closed before the command finished"},
	{validation.ErrEmptyTitle, "give the habit a title, e.g. 'habitboard habit add \"Drink water\"'"},
	{validation.ErrInvalidColor, "colors are hex values like #3B82F6 or #39f"},
	{validation.ErrInvalidDay, "days are monday..sunday, or mon..sun"},
	{validation.ErrEmptyLabel, "checklist items need a label"},
	{week.ErrInvalidKey, "week keys look like 2026-W05"},
	{postgres.ErrEmbeddedCredentials, "store it with 'habitboard config set-connection' or use PGPASSWORD / ~/.pgpass"},
	{migration.ErrSchemaTooNew, "upgrade habitboard to a build that knows this schema"},
}

// Hint returns a suggestion for errors the user can act on, or "".
func Hint(err error) string {
	if err == nil {
		return ""
	}
	for _, h := range hints {
		if stderrors.Is(err, h.err) {
			return h.hint
		}
	}
	return ""
}

// Format formats an error message with a consistent "Error: " prefix and,
// when one applies, a hint on the next line
func Format(err error) string {
	if err == nil {
		return ""
	}
	if hint := Hint(err); hint != "" {
		return fmt.Sprintf("Error: %v\nHint: %s", err, hint)
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintln(os.Stderr, Formatf(format, args...))
	os.Exit(1)
}

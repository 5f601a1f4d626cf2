package constants

import "time"

const (
	AppName            = "habitboard"
	DefaultKeyringUser = "database-connection"
	SessionKeyringUser = "session-user"
	DefaultConfigPath  = "~/.config/habitboard/habitboard.db"
	Version            = "v0.1.0"

	// Environment overrides
	EnvDBConnection = "HABITBOARD_DB_CONNECTION"
	EnvUser         = "HABITBOARD_USER"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DayLabelFormat renders a weekday descriptor date, e.g. "Jan 2"
	DayLabelFormat = "Jan 2"

	// Document layout
	UserDocumentPrefix = "users/"
	FieldHabits        = "habits"
	FieldCompletions   = "completions"

	// DefaultColor is applied to habits created without a color
	DefaultColor = "#3B82F6"

	// Live subscription constants
	PostgresNotifyChannel = "habitboard_documents"
	RedisKeyPrefix        = "habitboard:doc:"
	RedisChannelPrefix    = "habitboard:changes:"
	SQLitePollInterval    = 2 * time.Second

	// SyncTimeout bounds how long one-shot commands wait for the first snapshot
	SyncTimeout = 10 * time.Second

	// DefaultWriteRetries bounds optimistic write retries when enabled
	DefaultWriteRetries = 5

	// HTTP server
	DefaultListenAddr = "127.0.0.1:8085"
)

// PresetColors is the palette offered when picking a habit color.
var PresetColors = []string{
	"#EF4444", // Red
	"#F97316", // Orange
	"#F59E0B", // Amber
	"#84CC16", // Lime
	"#22C55E", // Green
	"#14B8A6", // Teal
	"#3B82F6", // Blue
	"#8B5CF6", // Violet
	"#EC4899", // Pink
	"#6B7280", // Gray
}

// UserDocumentKey returns the document key holding all board data for a user.
func UserDocumentKey(userID string) string {
	return UserDocumentPrefix + userID
}

package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitboard/internal/constants"
)

var (
	// ErrNotFound is returned when no entry is stored in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// GetConnectionString retrieves the document store connection string from the OS keyring.
// Returns ErrNotFound if no credentials are stored.
func GetConnectionString() (string, error) {
	return get(constants.DefaultKeyringUser)
}

// SetConnectionString stores the document store connection string in the OS keyring.
func SetConnectionString(connStr string) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	return set(constants.DefaultKeyringUser, connStr)
}

// DeleteConnectionString removes the connection string from the OS keyring.
func DeleteConnectionString() error {
	return del(constants.DefaultKeyringUser)
}

// GetSessionUser returns the user id remembered by the last login.
func GetSessionUser() (string, error) {
	return get(constants.SessionKeyringUser)
}

// SetSessionUser remembers userID as the signed-in user.
func SetSessionUser(userID string) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}
	return set(constants.SessionKeyringUser, userID)
}

// DeleteSessionUser forgets the signed-in user.
func DeleteSessionUser() error {
	return del(constants.SessionKeyringUser)
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	// ErrNotFound means the keyring answered and is merely empty
	return err == nil || err == keyring.ErrNotFound
}

func get(user string) (string, error) {
	value, err := keyring.Get(constants.AppName, user)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

func set(user, value string) error {
	if err := keyring.Set(constants.AppName, user, value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", user, err)
	}
	return nil
}

func del(user string) error {
	if err := keyring.Delete(constants.AppName, user); err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", user, err)
	}
	return nil
}

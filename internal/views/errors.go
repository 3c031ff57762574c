package views

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrInvalidUsername  = errors.New("Enter only your username, not a full email address")
	ErrEmptyUsername    = errors.New("username is required")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTooManyTags      = fmt.Errorf("%w: at most %d interest tags", ErrInvalidInput, MaxInterestTags)
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrNoProfile        = errors.New("profile required")
	ErrProfileExists    = errors.New("profile already exists")
	ErrSessionFull      = errors.New("session is full")
	ErrNotMember        = errors.New("not a session member")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("connection already exists")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFound maps a missing row onto ErrNotFound and leaves other errors alone.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

package views

import (
	"context"
	"strings"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/types"
)

// CodeSender issues and redeems sign-in codes.
type CodeSender interface {
	Request(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (database.Account, error)
}

type Login struct {
	*base
	codes CodeSender
}

func (l *Login) Campuses(ctx context.Context) ([]types.Campus, error) {
	campuses, err := l.db.ListCampuses(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.Campus, 0, len(campuses))
	for _, c := range campuses {
		out = append(out, types.FromCampus(c))
	}
	return out, nil
}

// ValidateUsername checks the local part typed on the login screen.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	if strings.ContainsAny(username, "@.") {
		return ErrInvalidUsername
	}
	return nil
}

func CampusEmail(username string, campus database.Campus) string {
	return strings.TrimSpace(username) + "@" + campus.Domain
}

// RequestCode sends a sign-in code to username at the campus domain and
// returns the address it was sent to. The username is validated before any
// gateway call.
func (l *Login) RequestCode(ctx context.Context, campusId, username string) (string, error) {
	if err := ValidateUsername(username); err != nil {
		return "", err
	}

	campus, err := l.loader.GetCampus(ctx, campusId)
	if err != nil {
		return "", notFound(err, "campus")
	}

	email := CampusEmail(username, campus)
	if err := l.codes.Request(ctx, email); err != nil {
		return "", err
	}
	return email, nil
}

func (l *Login) Verify(ctx context.Context, email, code string) (database.Account, error) {
	return l.codes.Verify(ctx, email, code)
}

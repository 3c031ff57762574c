package views

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/identity"
	"github.com/devquest008/campus-connect/internal/types"
)

const (
	MaxInterestTags = 8

	maxNameLength = 60
	maxBioLength  = 280
	maxTagLength  = 32
	minYear       = 1
	maxYear       = 6
)

type IdentityRefresher interface {
	Refresh(ctx context.Context, account database.Account) (identity.State, error)
}

type ProfileInput struct {
	CampusId     string   `json:"campus_id,omitempty"`
	DisplayName  string   `json:"display_name"`
	Department   *string  `json:"department,omitempty"`
	Year         *int     `json:"year,omitempty"`
	Bio          *string  `json:"bio,omitempty"`
	InterestTags []string `json:"interest_tags"`
}

type Profile struct {
	*base
	ids IdentityRefresher
}

// ToggleTag adds tag when absent and removes it when present. Adding past
// MaxInterestTags is a no-op.
func ToggleTag(tags []string, tag string) []string {
	if i := slices.Index(tags, tag); i >= 0 {
		return slices.Delete(slices.Clone(tags), i, i+1)
	}
	if len(tags) >= MaxInterestTags {
		return slices.Clone(tags)
	}
	return append(slices.Clone(tags), tag)
}

// NormalizeTags trims tags and drops blanks and duplicates.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		if len(t) > maxTagLength {
			return nil, invalidf("tag %q exceeds %d characters", t, maxTagLength)
		}
		out = append(out, t)
	}
	if len(out) > MaxInterestTags {
		return nil, ErrTooManyTags
	}
	return out, nil
}

type profileFields struct {
	displayName string
	department  *string
	year        *int
	bio         *string
	tags        []string
}

func (p *Profile) validate(in ProfileInput) (profileFields, error) {
	var f profileFields
	var err error

	if f.displayName, err = p.clean("display name", in.DisplayName, maxNameLength); err != nil {
		return f, err
	}
	if f.department, err = p.optional("department", in.Department, maxNameLength); err != nil {
		return f, err
	}
	if f.bio, err = p.optional("bio", in.Bio, maxBioLength); err != nil {
		return f, err
	}
	if in.Year != nil && (*in.Year < minYear || *in.Year > maxYear) {
		return f, invalidf("year must be between %d and %d", minYear, maxYear)
	}
	f.year = in.Year

	tags := make([]string, 0, len(in.InterestTags))
	for _, t := range in.InterestTags {
		tags = append(tags, p.policy.Sanitize(t))
	}
	if f.tags, err = NormalizeTags(tags); err != nil {
		return f, err
	}
	return f, nil
}

func emailDomain(email string) string {
	_, domain, _ := strings.Cut(email, "@")
	return strings.ToLower(domain)
}

func (p *Profile) campusFor(ctx context.Context, account database.Account, campusId string) (database.Campus, error) {
	domain := emailDomain(account.Email)

	if campusId == "" {
		campuses, err := p.db.ListCampuses(ctx)
		if err != nil {
			return database.Campus{}, err
		}
		for _, c := range campuses {
			if strings.EqualFold(c.Domain, domain) {
				return c, nil
			}
		}
		return database.Campus{}, invalidf("no campus for domain %q", domain)
	}

	campus, err := p.loader.GetCampus(ctx, campusId)
	if err != nil {
		return campus, notFound(err, "campus")
	}
	if !strings.EqualFold(campus.Domain, domain) {
		return campus, invalidf("email domain does not belong to %s", campus.ShortCode)
	}
	return campus, nil
}

func (p *Profile) Get(ctx context.Context, userId string) (types.Profile, error) {
	prof, err := p.profile(ctx, userId)
	if err != nil {
		return types.Profile{}, err
	}
	return types.FromProfile(prof), nil
}

// Setup creates the profile of a freshly signed in account. The username is
// the local part of the account email.
func (p *Profile) Setup(ctx context.Context, account database.Account, in ProfileInput) (identity.State, error) {
	_, err := p.loader.GetProfileByUserId(ctx, account.Id)
	switch {
	case err == nil:
		return identity.State{}, ErrProfileExists
	case !errors.Is(err, sql.ErrNoRows):
		return identity.State{}, err
	}

	f, err := p.validate(in)
	if err != nil {
		return identity.State{}, err
	}

	campus, err := p.campusFor(ctx, account, in.CampusId)
	if err != nil {
		return identity.State{}, err
	}

	username, _, _ := strings.Cut(account.Email, "@")
	if _, err := p.db.CreateProfile(ctx, database.CreateProfileParams{
		UserId:       account.Id,
		CampusId:     campus.Id,
		Username:     username,
		DisplayName:  f.displayName,
		Department:   f.department,
		Year:         f.year,
		Bio:          f.bio,
		InterestTags: f.tags,
	}); err != nil {
		return identity.State{}, err
	}

	p.loader.Invalidate("profiles", account.Id)
	return p.ids.Refresh(ctx, account)
}

func (p *Profile) Update(ctx context.Context, account database.Account, in ProfileInput) (identity.State, error) {
	if _, err := p.profile(ctx, account.Id); err != nil {
		return identity.State{}, err
	}

	f, err := p.validate(in)
	if err != nil {
		return identity.State{}, err
	}

	if _, err := p.db.UpdateProfile(ctx, database.UpdateProfileParams{
		UserId:       account.Id,
		DisplayName:  f.displayName,
		Department:   f.department,
		Year:         f.year,
		Bio:          f.bio,
		InterestTags: f.tags,
	}); err != nil {
		return identity.State{}, notFound(err, "profile")
	}

	p.loader.Invalidate("profiles", account.Id)
	return p.ids.Refresh(ctx, account)
}

// ToggleInterest flips tag on the stored profile.
func (p *Profile) ToggleInterest(ctx context.Context, userId, tag string) (types.Profile, error) {
	prof, err := p.profile(ctx, userId)
	if err != nil {
		return types.Profile{}, err
	}

	tag = strings.TrimSpace(p.policy.Sanitize(tag))
	if tag == "" || len(tag) > maxTagLength {
		return types.Profile{}, invalidf("invalid tag")
	}

	tags := ToggleTag(prof.InterestTags, tag)
	if slices.Equal(tags, prof.InterestTags) {
		return types.FromProfile(prof), nil
	}

	updated, err := p.db.SetInterestTags(ctx, userId, tags)
	if err != nil {
		return types.Profile{}, notFound(err, "profile")
	}
	p.loader.Invalidate("profiles", userId)
	return types.FromProfile(updated), nil
}

func (p *Profile) SetVisibility(ctx context.Context, userId string, crossCampus bool) (types.Profile, error) {
	updated, err := p.db.SetCrossCampusVisible(ctx, userId, crossCampus)
	if err != nil {
		return types.Profile{}, notFound(err, "profile")
	}
	p.loader.Invalidate("profiles", userId)
	return types.FromProfile(updated), nil
}

func (p *Profile) Badges(ctx context.Context, userId string) ([]types.Badge, error) {
	badges, err := p.db.ListBadges(ctx, userId)
	if err != nil {
		return nil, err
	}

	out := make([]types.Badge, 0, len(badges))
	for _, b := range badges {
		out = append(out, types.FromBadge(b))
	}
	return out, nil
}

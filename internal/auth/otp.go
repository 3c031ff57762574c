package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCodeTTL        = 10 * time.Minute
	DefaultSendInterval   = 30 * time.Second
	DefaultSendBurst      = 3
	DefaultVerifyInterval = time.Minute
	DefaultVerifyBurst    = 5
	codeDigits            = 6
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrRateLimited  = errors.New("too many attempts, try again later")
	ErrInvalidCode  = errors.New("invalid or expired code")
)

// Store is the part of the gateway used for one-time codes.
type Store interface {
	GetOrCreateAccount(ctx context.Context, email string) (database.Account, error)
	CreateOneTimeCode(ctx context.Context, email, codeHash string, expiresAt time.Time) (database.OneTimeCode, error)
	ListActiveOneTimeCodes(ctx context.Context, email string, now time.Time) ([]database.OneTimeCode, error)
	ConsumeOneTimeCode(ctx context.Context, id string, at time.Time) error
}

type Mailer interface {
	SendCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// LogMailer writes codes to the log instead of sending mail.
type LogMailer struct {
	Log *log.Logger
}

func (m LogMailer) SendCode(_ context.Context, email, code string, expiresAt time.Time) error {
	m.Log.Printf("sign-in code for %s: %s (expires %s)", email, code, expiresAt.Format(time.RFC3339))
	return nil
}

type Options struct {
	CodeTTL      time.Duration
	SendInterval time.Duration
	SendBurst    int
	// VerifyInterval and VerifyBurst bound code guesses per email.
	VerifyInterval time.Duration
	VerifyBurst    int
	HashCost       int
}

// Issuer hands out and redeems email one-time codes.
type Issuer struct {
	log      *log.Logger
	db       Store
	mailer   Mailer
	opts     Options
	now      func() time.Time
	sends    *limiterSet
	attempts *limiterSet
}

func NewIssuer(logger *log.Logger, db Store, mailer Mailer, opts Options) *Issuer {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	if opts.SendInterval <= 0 {
		opts.SendInterval = DefaultSendInterval
	}
	if opts.SendBurst <= 0 {
		opts.SendBurst = DefaultSendBurst
	}
	if opts.VerifyInterval <= 0 {
		opts.VerifyInterval = DefaultVerifyInterval
	}
	if opts.VerifyBurst <= 0 {
		opts.VerifyBurst = DefaultVerifyBurst
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}

	return &Issuer{
		log:      logger,
		db:       db,
		mailer:   mailer,
		opts:     opts,
		now:      time.Now,
		sends:    newLimiterSet(opts.SendInterval, opts.SendBurst),
		attempts: newLimiterSet(opts.VerifyInterval, opts.VerifyBurst),
	}
}

func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for range codeDigits {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

// Request stores a new code for email and mails it.
func (i *Issuer) Request(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	now := i.now()
	if !i.sends.allow(email, now) {
		return ErrRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), i.opts.HashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	expiresAt := now.Add(i.opts.CodeTTL)
	if _, err := i.db.CreateOneTimeCode(ctx, email, string(hash), expiresAt); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if err := i.mailer.SendCode(ctx, email, code, expiresAt); err != nil {
		return fmt.Errorf("send code: %w", err)
	}

	return nil
}

// Verify redeems code for email and returns the matching account, creating
// it on first sign in. A code can be redeemed once. Guesses are rate limited
// per email.
func (i *Issuer) Verify(ctx context.Context, email, code string) (database.Account, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return database.Account{}, err
	}

	code = strings.TrimSpace(code)
	if len(code) != codeDigits {
		return database.Account{}, ErrInvalidCode
	}

	now := i.now()
	if !i.attempts.allow(email, now) {
		return database.Account{}, ErrRateLimited
	}

	codes, err := i.db.ListActiveOneTimeCodes(ctx, email, now)
	if err != nil {
		return database.Account{}, fmt.Errorf("list codes: %w", err)
	}

	for _, c := range codes {
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
			continue
		}

		if err := i.db.ConsumeOneTimeCode(ctx, c.Id, now); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.Account{}, ErrInvalidCode
			}
			return database.Account{}, fmt.Errorf("consume code: %w", err)
		}

		i.attempts.forget(email)
		return i.db.GetOrCreateAccount(ctx, email)
	}

	return database.Account{}, ErrInvalidCode
}

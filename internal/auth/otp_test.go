package auth

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	email string
	code  string
	err   error
}

func (m *captureMailer) SendCode(_ context.Context, email, code string, _ time.Time) error {
	m.email, m.code = email, code
	return m.err
}

func newTestIssuer(t *testing.T, db Store, mailer Mailer, now time.Time) *Issuer {
	i := NewIssuer(testutil.TestLogger(t), db, mailer, Options{HashCost: bcrypt.MinCost, SendBurst: 2, SendInterval: time.Minute})
	i.now = testutil.Clock(now)
	return i
}

func TestNormalizeEmail(t *testing.T) {
	tcases := []struct {
		in        string
		expect    string
		expectErr bool
	}{
		{in: " Asha@SRMAP.edu.in ", expect: "asha@srmap.edu.in"},
		{in: "asha", expectErr: true},
		{in: "Asha <asha@srmap.edu.in>", expectErr: true},
		{in: "", expectErr: true},
	}

	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeEmail(tc.in)
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestGenerateCode(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{6}$`)
	for range 20 {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestIssuerRequest(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("stores hash and mails code", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)

		var storedHash string
		db.On("CreateOneTimeCode", mock.Anything, "asha@srmap.edu.in", mock.AnythingOfType("string"), now.Add(DefaultCodeTTL)).
			Run(func(args mock.Arguments) { storedHash = args.String(2) }).
			Return(database.OneTimeCode{Id: "o1"}, nil).Once()

		mailer := &captureMailer{}
		i := newTestIssuer(t, db, mailer, now)

		require.NoError(t, i.Request(context.Background(), "Asha@srmap.edu.in"))
		assert.Equal(t, "asha@srmap.edu.in", mailer.email)
		assert.NotEqual(t, mailer.code, storedHash, "expected the code not to be stored in clear")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(mailer.code)))
	})

	t.Run("rate limited per email", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("CreateOneTimeCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(database.OneTimeCode{}, nil).Times(3)

		i := newTestIssuer(t, db, &captureMailer{}, now)

		assert.NoError(t, i.Request(context.Background(), "a@srmap.edu.in"))
		assert.NoError(t, i.Request(context.Background(), "a@srmap.edu.in"))
		assert.ErrorIs(t, i.Request(context.Background(), "a@srmap.edu.in"), ErrRateLimited)
		assert.NoError(t, i.Request(context.Background(), "b@srmap.edu.in"))
	})

	t.Run("invalid email makes no store call", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)

		i := newTestIssuer(t, db, &captureMailer{}, now)
		assert.ErrorIs(t, i.Request(context.Background(), "not-an-email"), ErrInvalidEmail)
	})

	t.Run("mailer failure", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("CreateOneTimeCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(database.OneTimeCode{}, nil).Once()

		i := newTestIssuer(t, db, &captureMailer{err: errors.New("smtp down")}, now)
		assert.Error(t, i.Request(context.Background(), "a@srmap.edu.in"))
	})
}

func TestIssuerVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	require.NoError(t, err)
	other, err := bcrypt.GenerateFromPassword([]byte("654321"), bcrypt.MinCost)
	require.NoError(t, err)

	active := []database.OneTimeCode{
		{Id: "o2", CodeHash: string(other)},
		{Id: "o1", CodeHash: string(hash)},
	}

	tcases := []struct {
		name      string
		code      string
		setup     func(db *database.MockRepository)
		expectErr error
	}{
		{
			name: "matching code",
			code: "123456",
			setup: func(db *database.MockRepository) {
				db.On("ListActiveOneTimeCodes", mock.Anything, "asha@srmap.edu.in", now).Return(active, nil).Once()
				db.On("ConsumeOneTimeCode", mock.Anything, "o1", now).Return(nil).Once()
				db.On("GetOrCreateAccount", mock.Anything, "asha@srmap.edu.in").Return(database.Account{Id: "u1", Email: "asha@srmap.edu.in"}, nil).Once()
			},
		},
		{
			name: "wrong code",
			code: "000000",
			setup: func(db *database.MockRepository) {
				db.On("ListActiveOneTimeCodes", mock.Anything, "asha@srmap.edu.in", now).Return(active, nil).Once()
			},
			expectErr: ErrInvalidCode,
		},
		{
			name:      "malformed code",
			code:      "12",
			setup:     func(db *database.MockRepository) {},
			expectErr: ErrInvalidCode,
		},
		{
			name: "already consumed",
			code: "123456",
			setup: func(db *database.MockRepository) {
				db.On("ListActiveOneTimeCodes", mock.Anything, "asha@srmap.edu.in", now).Return(active, nil).Once()
				db.On("ConsumeOneTimeCode", mock.Anything, "o1", now).Return(sql.ErrNoRows).Once()
			},
			expectErr: ErrInvalidCode,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockRepository{}
			defer db.AssertExpectations(t)
			tc.setup(db)

			i := newTestIssuer(t, db, &captureMailer{}, now)
			acc, err := i.Verify(context.Background(), "asha@srmap.edu.in", tc.code)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", acc.Id)
		})
	}
}

func TestIssuerVerifyRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	require.NoError(t, err)
	active := []database.OneTimeCode{{Id: "o1", CodeHash: string(hash)}}

	t.Run("wrong guesses lock out the email", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("ListActiveOneTimeCodes", mock.Anything, "asha@srmap.edu.in", now).
			Return(active, nil).Times(DefaultVerifyBurst)
		db.On("ListActiveOneTimeCodes", mock.Anything, "ravi@srmap.edu.in", now).
			Return(active, nil).Once()

		i := newTestIssuer(t, db, &captureMailer{}, now)

		for range DefaultVerifyBurst {
			_, err := i.Verify(context.Background(), "asha@srmap.edu.in", "000000")
			assert.ErrorIs(t, err, ErrInvalidCode)
		}

		_, err := i.Verify(context.Background(), "asha@srmap.edu.in", "123456")
		assert.ErrorIs(t, err, ErrRateLimited, "expected the correct code to be refused once locked out")

		_, err = i.Verify(context.Background(), "ravi@srmap.edu.in", "000000")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("successful sign in resets the count", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("ListActiveOneTimeCodes", mock.Anything, "asha@srmap.edu.in", now).Return(active, nil)
		db.On("ConsumeOneTimeCode", mock.Anything, "o1", now).Return(nil).Once()
		db.On("GetOrCreateAccount", mock.Anything, "asha@srmap.edu.in").
			Return(database.Account{Id: "u1"}, nil).Once()

		i := newTestIssuer(t, db, &captureMailer{}, now)

		for range DefaultVerifyBurst - 1 {
			_, err := i.Verify(context.Background(), "asha@srmap.edu.in", "000000")
			assert.ErrorIs(t, err, ErrInvalidCode)
		}
		_, err := i.Verify(context.Background(), "asha@srmap.edu.in", "123456")
		require.NoError(t, err)

		_, err = i.Verify(context.Background(), "asha@srmap.edu.in", "000000")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

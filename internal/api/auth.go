package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/golang-jwt/jwt"
)

var (
	defaultJwtExpiration = time.Hour * 24 * 7
	tokenCookieKey       = "token"
)

const (
	userIdClaim = "user-id"
	expClaim    = "exp"
)

type contextKey string

const userIdKey contextKey = "user-id"

type RequestCodeRequest struct {
	CampusId string `json:"campus_id"`
	Username string `json:"username"`
}

type RequestCodeResponse struct {
	Email string `json:"email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func WithUserId(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

func UserId(ctx context.Context) (string, bool) {
	userId, ok := ctx.Value(userIdKey).(string)
	return userId, ok && userId != ""
}

func (s *App) createJwtForSession(userId string, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: userId,
		expClaim:    time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *App) verifyToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

func (s *App) extractUserIdFromToken(tokenString string) (string, error) {
	token, err := s.verifyToken(tokenString)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return "", fmt.Errorf("invalid user id claim")
	}

	return userId, nil
}

func (s *App) createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *App) requestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if !s.readJson(w, r, &req) {
		return
	}

	email, err := s.views.Login.RequestCode(r.Context(), req.CampusId, req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusAccepted, RequestCodeResponse{Email: email})
}

func (s *App) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !s.readJson(w, r, &req) {
		return
	}

	if req.Email == "" || req.Code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.views.Login.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		s.writeError(w, err)
		return
	}

	state, err := s.ids.Refresh(r.Context(), account)
	if err != nil {
		s.writeError(w, err)
		return
	}

	token, err := s.createJwtForSession(account.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, s.createJwtCookie(token, defaultJwtExpiration))
	s.writeJson(w, http.StatusOK, state.Wire())
}

func (s *App) session(w http.ResponseWriter, r *http.Request) {
	account, ok := s.account(w, r)
	if !ok {
		return
	}

	state, err := s.ids.Get(r.Context(), account)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, state.Wire())
}

func (s *App) logout(w http.ResponseWriter, r *http.Request) {
	if userId, ok := UserId(r.Context()); ok {
		s.ids.SignOut(userId)
	}

	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, s.createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

// account loads the signed in account, writing an error response when it
// cannot.
func (s *App) account(w http.ResponseWriter, r *http.Request) (database.Account, bool) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Account{}, false
	}

	account, err := s.db.GetAccountById(r.Context(), userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Account{}, false
	}

	return account, true
}

package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/stockboard/internal/model"
)

// TokenInfo is what the dashboard can read from a backend bearer token
// without verifying it. Backends are free to issue opaque tokens, in which
// case nothing is known.
type TokenInfo struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

type backendClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// InspectToken reads the claims of a backend JWT without checking its
// signature. The signature belongs to the backend; this is only used for
// display fallbacks and local expiry. Returns false for opaque tokens.
func InspectToken(token string) (TokenInfo, bool) {
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}, false
	}

	claims := &backendClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, false
	}

	info := TokenInfo{Subject: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, true
}

// TokenExpired reports whether token is a JWT whose exp lies before now.
// Opaque tokens and tokens without exp never expire locally.
func TokenExpired(token string, now time.Time) bool {
	info, ok := InspectToken(token)
	if !ok || info.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(info.ExpiresAt)
}

// LoginDetails are optional user fields some backends include next to the
// access token.
type LoginDetails struct {
	ID       int64
	Email    string
	FullName string
}

// InferProfile builds a profile when the backend did not return one.
// Fields come, in order of preference, from the login response, the token
// claims, and the email the user typed.
func InferProfile(token string, details LoginDetails, typedEmail string) model.InferredProfile {
	user := model.Identity{
		ID:       details.ID,
		Email:    details.Email,
		FullName: details.FullName,
		IsActive: true,
	}
	source := "login response"

	if info, ok := InspectToken(token); ok {
		if user.Email == "" && info.Email != "" {
			user.Email = info.Email
			source = "token claims"
		}
		if user.Email == "" && strings.Contains(info.Subject, "@") {
			user.Email = info.Subject
			source = "token claims"
		}
		if user.ID == 0 {
			if id, err := strconv.ParseInt(info.Subject, 10, 64); err == nil {
				user.ID = id
			}
		}
	}

	if user.Email == "" {
		user.Email = strings.TrimSpace(typedEmail)
		source = "login form"
	}

	return model.InferredProfile{User: user, Source: source}
}

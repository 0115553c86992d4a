package web

import (
	"context"
	"crypto/hmac"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Session/JWT primitives =====

type AuthConfig struct {
	HMACSecret   []byte
	CookieName   string
	CookieDomain string
	SecureCookie bool
	TTL          time.Duration
}

type AuthManager struct {
	cfg   AuthConfig
	users map[string]string
}

// NewAuthManager signs respondent sessions. users maps username to password.
func NewAuthManager(secret string, users map[string]string, secure bool, domain string, ttl time.Duration) *AuthManager {
	return &AuthManager{
		cfg: AuthConfig{
			HMACSecret:   []byte(secret),
			CookieName:   "interview_session",
			CookieDomain: domain, // "" is fine if you want host-only cookie
			SecureCookie: secure, // true in prod (TLS)
			TTL:          ttl,
		},
		users: users,
	}
}

type RespondentClaims struct {
	jwt.RegisteredClaims
}

// Verify checks a username/password pair against the configured users.
func (a *AuthManager) Verify(username, password string) bool {
	want, ok := a.users[username]
	if !ok {
		// compare anyway so unknown users take the same time
		want = "\x00"
	}
	return hmac.Equal([]byte(want), []byte(password)) && ok
}

func (a *AuthManager) Mint(w http.ResponseWriter, username string) (string, error) {
	now := time.Now()
	claims := RespondentClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
			Subject:   username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", err
	}

	c := &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    signed,
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   int(a.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, c)
	return signed, nil
}

func (a *AuthManager) Clear(w http.ResponseWriter) {
	c := &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, c)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*RespondentClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	// Cookie
	if c, err := r.Cookie(a.cfg.CookieName); err == nil {
		return a.parse(c.Value)
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*RespondentClaims, error) {
	claims := &RespondentClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// LoginLimiter throttles password attempts per username. A refusal carries
// the wait until the next attempt is counted.
type LoginLimiter interface {
	Allow(ctx context.Context, username string) (bool, time.Duration, error)
}

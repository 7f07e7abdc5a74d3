// internal/httpserver/identity.go
//
// Browser identity cookie.
// Each browser gets a random UUID carried in an HS256 JWT cookie. The UUID
// names the browser's namespace in the key/value store, the way a browser's
// own local storage would. There are no accounts and no login.
//
// Notes:
//   - The signing key is derived from the configured secret with HKDF.
//   - A missing, expired or tampered cookie silently yields a new identity.

package httpserver

import (
	"context"
	"crypto/sha256"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	browserCookieName = "wikipedle_browser"
	browserCookieTTL  = 400 * 24 * time.Hour
)

type ctxBrowserKey struct{}

type identity struct {
	key    []byte
	secure bool
	now    func() time.Time
}

func newIdentity(secret string, secure bool, now func() time.Time) *identity {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), []byte("wikipedle"), []byte("browser-cookie"))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails after 255*32 bytes of output.
		panic(err)
	}
	return &identity{key: key, secure: secure, now: now}
}

// parse returns the browser ID in a valid token.
func (id *identity) parse(token string) (string, bool) {
	claims := jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return id.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(id.now))
	if err != nil || !t.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// issue signs a token for browserID.
func (id *identity) issue(browserID string) (string, time.Time, error) {
	now := id.now()
	exp := now.Add(browserCookieTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   browserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString(id.key)
	return ss, exp, err
}

// ensure returns the request's browser ID, setting a fresh cookie when needed.
func (id *identity) ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(browserCookieName); err == nil && c.Value != "" {
		if bid, ok := id.parse(c.Value); ok {
			return bid, nil
		}
	}
	bid := uuid.NewString()
	tok, exp, err := id.issue(bid)
	if err != nil {
		return "", err
	}
	sameSite := http.SameSiteLaxMode
	if id.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     browserCookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   id.secure,
		SameSite: sameSite,
		Expires:  exp,
	})
	return bid, nil
}

// middleware resolves the browser ID and stores it in the request context.
func (id *identity) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bid, err := id.ensure(w, r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "identity_failed", "")
			return
		}
		ctx := context.WithValue(r.Context(), ctxBrowserKey{}, bid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// browserID returns the ID placed in ctx by the identity middleware.
func browserID(ctx context.Context) string {
	bid, _ := ctx.Value(ctxBrowserKey{}).(string)
	return bid
}

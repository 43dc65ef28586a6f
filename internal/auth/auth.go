// Package auth guards the dev-server with bearer tokens, the way the
// production API gateway does.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticator(next http.Handler) http.Handler
}

const (
	NoneAuthentication   string = "none"
	SecretAuthentication string = "secret"
	JWKSAuthentication   string = "jwks"
)

type Config struct {
	Type    string
	Secret  string
	JWKSURL string
}

func NewAuthenticator(ctx context.Context, cfg Config) (Authenticator, error) {
	zap.S().Named("auth").Infof("authentication: '%s'", cfg.Type)

	switch cfg.Type {
	case "", NoneAuthentication:
		return NewNoneAuthenticator(), nil
	case SecretAuthentication:
		if cfg.Secret == "" {
			return nil, fmt.Errorf("secret authentication requires a secret")
		}
		return NewSecretAuthenticator([]byte(cfg.Secret)), nil
	case JWKSAuthentication:
		if cfg.JWKSURL == "" {
			return nil, fmt.Errorf("jwks authentication requires a jwks url")
		}
		return NewJWKSAuthenticator(ctx, cfg.JWKSURL)
	default:
		return nil, fmt.Errorf("unknown authentication %q", cfg.Type)
	}
}

type userKeyType struct{}

var userKey userKeyType

type User struct {
	Subject string
	Token   *jwt.Token
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

func NewUserContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// bearer returns the token of an "Authorization: Bearer" header.
func bearer(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"detail": detail})
}

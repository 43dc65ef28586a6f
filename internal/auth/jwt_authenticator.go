package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const defaultTokenTTL = 24 * time.Hour

// JWTAuthenticator accepts tokens signed with one of methods and verified
// by keyFn.
type JWTAuthenticator struct {
	keyFn   jwt.Keyfunc
	methods []string
}

func NewJWTAuthenticatorWithKeyFn(keyFn jwt.Keyfunc, methods ...string) *JWTAuthenticator {
	return &JWTAuthenticator{keyFn: keyFn, methods: methods}
}

// NewSecretAuthenticator accepts HS256 tokens signed with secret.
func NewSecretAuthenticator(secret []byte) *JWTAuthenticator {
	return NewJWTAuthenticatorWithKeyFn(func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.SigningMethodHS256.Name)
}

// NewJWKSAuthenticator accepts RS256 tokens signed by a key of the JWK set
// served at jwksURL. The set is refreshed until ctx is done.
func NewJWKSAuthenticator(ctx context.Context, jwksURL string) (*JWTAuthenticator, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to get public keys from %s: %w", jwksURL, err)
	}
	return NewJWTAuthenticatorWithKeyFn(k.Keyfunc, jwt.SigningMethodRS256.Name), nil
}

func (a *JWTAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(a.methods), jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	t, err := parser.Parse(token, a.keyFn)
	if err != nil {
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return User{}, fmt.Errorf("token has no subject")
	}
	return User{Subject: sub, Token: t}, nil
}

func (a *JWTAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			unauthorized(w, r, "Not authenticated")
			return
		}

		user, err := a.Authenticate(token)
		if err != nil {
			zap.S().Named("auth").Debugw("rejected token", "error", err)
			unauthorized(w, r, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(NewUserContext(r.Context(), user)))
	})
}

// SignToken issues an HS256 token for subject, valid for ttl or a day when
// ttl is zero.
func SignToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(secret)
}

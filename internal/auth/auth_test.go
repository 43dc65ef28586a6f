package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/data-validator/data-validator/internal/auth"
)

type handler struct {
	user auth.User
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.user, _ = auth.UserFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func get(h http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/datasets/csv", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func rsaToken(key *rsa.PrivateKey, kid, subject string) string {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	t.Header["kid"] = kid
	s, err := t.SignedString(key)
	Expect(err).To(BeNil())
	return s
}

var _ = Describe("authentication", func() {
	secret := []byte("dev-secret")

	Context("secret", func() {
		It("accepts a signed token", func() {
			token, err := auth.SignToken(secret, "alice", 0)
			Expect(err).To(BeNil())

			user, err := auth.NewSecretAuthenticator(secret).Authenticate(token)
			Expect(err).To(BeNil())
			Expect(user.Subject).To(Equal("alice"))
		})

		It("rejects a token signed with another secret", func() {
			token, err := auth.SignToken([]byte("other"), "alice", 0)
			Expect(err).To(BeNil())

			_, err = auth.NewSecretAuthenticator(secret).Authenticate(token)
			Expect(err).NotTo(BeNil())
		})

		It("rejects an expired token", func() {
			token, err := auth.SignToken(secret, "alice", -time.Minute)
			Expect(err).To(BeNil())

			_, err = auth.NewSecretAuthenticator(secret).Authenticate(token)
			Expect(err).NotTo(BeNil())
		})

		It("rejects a token without subject", func() {
			t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			})
			token, err := t.SignedString(secret)
			Expect(err).To(BeNil())

			_, err = auth.NewSecretAuthenticator(secret).Authenticate(token)
			Expect(err).NotTo(BeNil())
		})
	})

	Context("middleware", func() {
		It("passes the user to the next handler", func() {
			token, err := auth.SignToken(secret, "alice", time.Hour)
			Expect(err).To(BeNil())

			h := &handler{}
			Expect(get(auth.NewSecretAuthenticator(secret).Authenticator(h), token)).To(Equal(http.StatusOK))
			Expect(h.user.Subject).To(Equal("alice"))
		})

		It("refuses a request without a token", func() {
			h := &handler{}
			Expect(get(auth.NewSecretAuthenticator(secret).Authenticator(h), "")).To(Equal(http.StatusUnauthorized))
			Expect(get(auth.NewSecretAuthenticator(secret).Authenticator(h), "garbage")).To(Equal(http.StatusUnauthorized))
		})

		It("lets everything through without authentication", func() {
			h := &handler{}
			Expect(get(auth.NewNoneAuthenticator().Authenticator(h), "")).To(Equal(http.StatusOK))
			Expect(h.user.Subject).To(Equal("anonymous"))
		})
	})

	Context("jwks", func() {
		It("verifies tokens with the published keys", func() {
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			Expect(err).To(BeNil())

			storage := jwkset.NewMemoryStorage()
			jwk, err := jwkset.NewJWKFromKey(&key.PublicKey, jwkset.JWKOptions{
				Metadata: jwkset.JWKMetadataOptions{KID: "k1", ALG: jwkset.AlgRS256},
			})
			Expect(err).To(BeNil())
			Expect(storage.KeyWrite(context.TODO(), jwk)).To(Succeed())
			raw, err := storage.JSONPublic(context.TODO())
			Expect(err).To(BeNil())

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(raw)
			}))
			defer srv.Close()

			ctx, cancel := context.WithCancel(context.TODO())
			defer cancel()
			a, err := auth.NewAuthenticator(ctx, auth.Config{Type: auth.JWKSAuthentication, JWKSURL: srv.URL})
			Expect(err).To(BeNil())

			h := &handler{}
			Expect(get(a.Authenticator(h), rsaToken(key, "k1", "bob"))).To(Equal(http.StatusOK))
			Expect(h.user.Subject).To(Equal("bob"))

			other, err := rsa.GenerateKey(rand.Reader, 2048)
			Expect(err).To(BeNil())
			Expect(get(a.Authenticator(h), rsaToken(other, "k1", "eve"))).To(Equal(http.StatusUnauthorized))
		})
	})

	It("validates its configuration", func() {
		_, err := auth.NewAuthenticator(context.TODO(), auth.Config{Type: auth.SecretAuthentication})
		Expect(err).NotTo(BeNil())
		_, err = auth.NewAuthenticator(context.TODO(), auth.Config{Type: "ldap"})
		Expect(err).NotTo(BeNil())

		a, err := auth.NewAuthenticator(context.TODO(), auth.Config{})
		Expect(err).To(BeNil())
		Expect(a).To(BeAssignableToTypeOf(&auth.NoneAuthenticator{}))
	})
})

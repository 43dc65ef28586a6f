package auth

import (
	"net/http"
)

type NoneAuthenticator struct{}

func NewNoneAuthenticator() *NoneAuthenticator {
	return &NoneAuthenticator{}
}

func (n *NoneAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := NewUserContext(r.Context(), User{Subject: "anonymous"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

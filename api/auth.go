// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "crowdfund"

var ErrInvalidToken = errors.New("invalid bearer token")

// IssueToken returns an HS256 bearer token whose subject is principal
func IssueToken(
	secret []byte,
	principal identity.Principal,
	ttl time.Duration,
	now time.Time,
) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	if principal.IsZero() {
		return "", fmt.Errorf("%w: empty principal", identity.ErrInvalidPrincipal)
	}
	claims := jwt.RegisteredClaims{
		Issuer:   tokenIssuer,
		Subject:  principal.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken verifies a bearer token and returns its principal
func ParseToken(secret []byte, tokenStr string) (identity.Principal, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(
		tokenStr,
		&claims,
		func(_ *jwt.Token) (any, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	principal, err := identity.ParsePrincipal(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return principal, nil
}

// authenticate resolves the caller from the Authorization header. Requests
// without the header proceed anonymously
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			writeError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}
		principal, err := ParseToken(s.config.AuthSecret, strings.TrimSpace(tokenStr))
		if err != nil {
			s.logger.Debug(
				"rejected bearer token",
				"error", err,
			)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
	})
}

func requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.PrincipalFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerFrom(r *http.Request) identity.Principal {
	p, _ := identity.PrincipalFromContext(r.Context())
	return p
}

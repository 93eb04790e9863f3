package web

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// Auth resolves the owner of a request from a bearer token signed with a
// shared HS256 secret. Without a secret every request belongs to the local
// owner.
type Auth struct {
	secret     []byte
	localOwner string
	parser     *jwt.Parser
}

func NewAuth(secret, localOwner string) *Auth {
	a := &Auth{localOwner: localOwner}
	if secret != "" {
		a.secret = []byte(secret)
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}
	return a
}

func (a *Auth) Enabled() bool {
	return len(a.secret) > 0
}

// OwnerFromHeader returns the token subject for an Authorization header value.
func (a *Auth) OwnerFromHeader(header string) (string, error) {
	if !a.Enabled() {
		return a.localOwner, nil
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}

	var claims jwt.RegisteredClaims
	if _, err := a.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("missing sub")
	}
	return claims.Subject, nil
}

package api

import (
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"tracker-api/domain"
)

const defaultTokenTTL = 24 * time.Hour

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errNoSigningKey         = errors.New("token signing not configured")
)

// Auth validates incoming JWT tokens and resolves them to callers. In local
// mode it also signs tokens for the login endpoint; with a JWKS it only
// verifies tokens issued elsewhere.
type Auth struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	secret   []byte
	tokenTTL time.Duration

	parser *jwt.Parser
}

// NewLocalAuth builds an Auth that signs and verifies HS256 tokens with a
// shared secret.
func NewLocalAuth(secret []byte) *Auth {
	if len(secret) == 0 {
		panic("api.NewLocalAuth: empty secret")
	}
	return &Auth{
		secret:   secret,
		tokenTTL: defaultTokenTTL,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// NewJWKSAuth builds a verify-only Auth for RS256 tokens signed by an
// external identity provider.
func NewJWKSAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	if jwks == nil {
		panic("api.NewJWKSAuth: jwks is nil")
	}
	return &Auth{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// SignToken issues a token carrying the user's identity, role, and tenant.
func (a *Auth) SignToken(user domain.User) (string, error) {
	if len(a.secret) == 0 {
		return "", errNoSigningKey
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"org":  user.OrganizationID,
		"iat":  now.Unix(),
		"exp":  now.Add(a.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// CallerFromAuthHeader extracts the caller from an Authorization header.
func (a *Auth) CallerFromAuthHeader(h string) (domain.Caller, error) {
	token, err := bearerToken(h)
	if err != nil {
		return domain.Caller{}, err
	}
	return a.callerFromToken(token)
}

func (a *Auth) callerFromToken(token string) (domain.Caller, error) {
	var parsed *jwt.Token
	var err error
	if a.jwks != nil {
		parsed, err = a.parser.Parse(token, a.jwks.Keyfunc)
	} else {
		parsed, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.secret, nil
		})
	}
	if err != nil {
		return domain.Caller{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Caller{}, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return domain.Caller{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return domain.Caller{}, errors.New("token not valid yet")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, false) {
		return domain.Caller{}, errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return domain.Caller{}, errors.New("invalid issuer")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return domain.Caller{}, errors.New("missing sub")
	}
	role, _ := claims["role"].(string)
	org, _ := claims["org"].(string)
	if role == "" || org == "" {
		return domain.Caller{}, errors.New("missing role or organization")
	}

	return domain.Caller{ID: sub, Role: domain.Role(role), OrganizationID: org}, nil
}

func bearerToken(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(trimmed, "Bearer ")
	if !ok || token == "" {
		return "", errBadAuthorization
	}
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}

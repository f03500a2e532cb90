// Package auth checks organizer bearer tokens issued by the external identity provider.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"certify/internal/dto"
)

const (
	SubjectKey = "auth.subject"
	EmailKey   = "auth.email"

	clockSkew = time.Minute
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("authorization header must be a bearer token")
)

type Config struct {
	JWKSURL  string
	Issuer   string
	Audience string
	// HS256Secret enables shared-secret tokens for local runs; ignored when JWKSURL is set.
	HS256Secret string
}

func (c Config) Enabled() bool {
	return c.JWKSURL != "" || c.HS256Secret != ""
}

type Authenticator struct {
	jwks     *keyfunc.JWKS
	secret   []byte
	issuer   string
	audience string
	parser   *jwt.Parser
}

// New returns nil, nil when no verification source is configured.
func New(cfg Config) (*Authenticator, error) {
	a := &Authenticator{issuer: cfg.Issuer, audience: cfg.Audience}
	switch {
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, err
		}
		a.jwks = jwks
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	case cfg.HS256Secret != "":
		a.secret = []byte(cfg.HS256Secret)
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	default:
		return nil, nil
	}
	return a, nil
}

func (a *Authenticator) Close() {
	if a != nil && a.jwks != nil {
		a.jwks.EndBackground()
	}
}

// Verify parses a raw token and returns its claims.
func (a *Authenticator) Verify(raw string) (jwt.MapClaims, error) {
	token, err := a.parser.Parse(raw, a.key)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	now := time.Now().Add(clockSkew).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, errors.New("token not valid yet")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, true) {
		return nil, errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return nil, errors.New("invalid issuer")
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, errors.New("missing sub")
	}
	return claims, nil
}

func (a *Authenticator) key(t *jwt.Token) (any, error) {
	if a.jwks != nil {
		return a.jwks.Keyfunc(t)
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("invalid signing method")
	}
	return a.secret, nil
}

// Middleware rejects requests without a valid bearer token. A nil
// Authenticator lets everything through.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.Next()
			return
		}
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims jwt.MapClaims
			if claims, err = a.Verify(raw); err == nil {
				c.Set(SubjectKey, claims["sub"])
				if email, ok := claims["email"].(string); ok {
					c.Set(EmailKey, email)
				}
				c.Next()
				return
			}
		}
		dto.ErrorResponse(c, http.StatusUnauthorized, dto.Unauthorized, err.Error())
	}
}

func bearerToken(h string) (string, error) {
	if h == "" {
		return "", errMissingAuthorization
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errBadAuthorization
	}
	return strings.TrimSpace(token), nil
}

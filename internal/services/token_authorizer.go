package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shakthivel10/FSND/internal/metrics"
	"go.uber.org/zap"
)

// SupportedAlgorithms are the signing algorithms a key set of RSA keys can
// verify.
var SupportedAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512"}

// KeyResolver returns the verification key for a key id.
type KeyResolver interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// ClaimSet is the verified payload of a token.
type ClaimSet map[string]interface{}

// Subject returns the sub claim, or "" when absent.
func (c ClaimSet) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// Permissions returns the string entries of the permissions claim. ok is
// false when the claim is absent.
func (c ClaimSet) Permissions() (perms []string, ok bool) {
	raw, ok := c["permissions"]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []interface{}:
		for _, p := range v {
			if s, isString := p.(string); isString {
				perms = append(perms, s)
			}
		}
	case []string:
		perms = append(perms, v...)
	}
	return perms, true
}

// HasPermission reports whether permission is an exact member of the
// permissions claim.
func (c ClaimSet) HasPermission(permission string) bool {
	perms, _ := c.Permissions()
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// AuthorizerConfig holds the claims a token must satisfy.
type AuthorizerConfig struct {
	Issuer     string
	Audience   string
	Algorithms []string
	Leeway     time.Duration
}

// TokenAuthorizer checks bearer tokens signed by keys from a KeyResolver.
// It holds no mutable state of its own and is safe for concurrent use.
type TokenAuthorizer struct {
	keys       KeyResolver
	parser     *jwt.Parser
	issuer     string
	audience   string
	algorithms []string
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// AuthorizerOption configures a TokenAuthorizer.
type AuthorizerOption func(*TokenAuthorizer)

// WithAuthorizerLogger sets the logger used for rejected tokens.
func WithAuthorizerLogger(l *zap.Logger) AuthorizerOption {
	return func(a *TokenAuthorizer) { a.logger = l }
}

// WithAuthorizerMetrics sets the metrics sink.
func WithAuthorizerMetrics(m *metrics.Metrics) AuthorizerOption {
	return func(a *TokenAuthorizer) { a.metrics = m }
}

// NewTokenAuthorizer validates cfg and builds an authorizer. Algorithms
// default to RS256; anything outside SupportedAlgorithms is refused.
func NewTokenAuthorizer(keys KeyResolver, cfg AuthorizerConfig, opts ...AuthorizerOption) (*TokenAuthorizer, error) {
	if keys == nil {
		return nil, errors.New("key resolver is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}

	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		algorithms = []string{"RS256"}
	}
	for _, alg := range algorithms {
		if !isSupportedAlgorithm(alg) {
			return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
		}
	}

	a := &TokenAuthorizer{
		keys:       keys,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		algorithms: append([]string(nil), algorithms...),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.parser = jwt.NewParser(
		jwt.WithValidMethods(a.algorithms),
		jwt.WithAudience(cfg.Audience),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	)
	return a, nil
}

func isSupportedAlgorithm(alg string) bool {
	for _, s := range SupportedAlgorithms {
		if s == alg {
			return true
		}
	}
	return false
}

// Issuer returns the expected iss claim.
func (a *TokenAuthorizer) Issuer() string { return a.issuer }

// Audience returns the expected aud claim.
func (a *TokenAuthorizer) Audience() string { return a.audience }

// Algorithms returns the accepted signing algorithms.
func (a *TokenAuthorizer) Algorithms() []string {
	return append([]string(nil), a.algorithms...)
}

// Authorize verifies the bearer token in authHeader and, when
// requiredPermission is not empty, checks that the token grants it. Every
// failure is an *AuthError.
func (a *TokenAuthorizer) Authorize(ctx context.Context, authHeader, requiredPermission string) (ClaimSet, error) {
	claims, authErr := a.authorize(ctx, authHeader, requiredPermission)
	if authErr != nil {
		a.metrics.RecordAuthFailure(authErr.Code)
		a.logger.Debug("Authorization rejected",
			zap.String("code", authErr.Code),
			zap.String("permission", requiredPermission),
			zap.Error(authErr.Err))
		return nil, authErr
	}
	return claims, nil
}

func (a *TokenAuthorizer) authorize(ctx context.Context, authHeader, requiredPermission string) (ClaimSet, *AuthError) {
	raw, authErr := bearerToken(authHeader)
	if authErr != nil {
		return nil, authErr
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, errInvalidHeader("Unable to parse authentication token.", err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, errInvalidHeader("Authorization malformed.", nil)
	}

	key, err := a.keys.Key(ctx, kid)
	if err != nil {
		return nil, errInvalidHeader("Unable to find the appropriate key.", err)
	}

	claims := jwt.MapClaims{}
	_, err = a.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
			return key, nil
		}
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	set := ClaimSet(claims)
	if requiredPermission != "" {
		if _, ok := set.Permissions(); !ok {
			return nil, errInvalidClaims(http.StatusBadRequest, "Permissions not included in JWT.", nil)
		}
		granted := set.HasPermission(requiredPermission)
		a.metrics.RecordPermissionCheck(requiredPermission, granted)
		if !granted {
			return nil, errUnauthorized(requiredPermission)
		}
	}
	return set, nil
}

func bearerToken(header string) (string, *AuthError) {
	if header == "" {
		return "", errNoHeader()
	}
	parts := strings.Split(header, " ")
	if !strings.EqualFold(parts[0], "bearer") {
		return "", errMalformedHeader(`Authorization header must start with "Bearer".`)
	}
	if len(parts) == 1 || parts[1] == "" {
		return "", errMalformedHeader("Token not found.")
	}
	if len(parts) > 2 {
		return "", errMalformedHeader("Authorization header must be bearer token.")
	}
	return parts[1], nil
}

func classifyParseError(err error) *AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errTokenExpired(err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return errInvalidClaims(http.StatusUnauthorized, "Incorrect claims. Please, check the audience and issuer.", err)
	}
	return errInvalidHeader("Unable to parse authentication token.", err)
}

package testutils

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	TestIssuer   = "https://fsnd.test.auth0.com/"
	TestAudience = "drinks"
)

// KeyPair is an RSA signing key published under KID.
type KeyPair struct {
	KID     string
	Private *rsa.PrivateKey
}

// NewKeyPair generates a 2048 bit RSA key.
func NewKeyPair(t testing.TB, kid string) *KeyPair {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return &KeyPair{KID: kid, Private: priv}
}

// Sign returns an RS256 token carrying claims and the key's kid.
func (k *KeyPair) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	return k.SignWith(t, jwt.SigningMethodRS256, claims)
}

// SignWith signs with an RSA or RSA-PSS method.
func (k *KeyPair) SignWith(t testing.TB, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = k.KID
	s, err := token.SignedString(k.Private)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// Claims returns a claim set valid for an hour, issued by TestIssuer for
// TestAudience, granting permissions.
func Claims(permissions ...string) jwt.MapClaims {
	now := time.Now()
	perms := make([]interface{}, 0, len(permissions))
	for _, p := range permissions {
		perms = append(perms, p)
	}
	return jwt.MapClaims{
		"sub":         "auth0|barista",
		"iss":         TestIssuer,
		"aud":         TestAudience,
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"permissions": perms,
	}
}

// JWKSServer publishes the public halves of a set of key pairs.
type JWKSServer struct {
	*httptest.Server

	mu     sync.Mutex
	keys   []*KeyPair
	status int
	delay  time.Duration
	hits   atomic.Int64
}

// NewJWKSServer starts a server publishing keys. It is closed when the test
// ends.
func NewJWKSServer(t testing.TB, keys ...*KeyPair) *JWKSServer {
	t.Helper()
	s := &JWKSServer{keys: keys, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *JWKSServer) serve(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)

	s.mu.Lock()
	keys := append([]*KeyPair(nil), s.keys...)
	status := s.status
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	body, err := EncodeJWKS(keys...)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// SetKeys replaces the published keys.
func (s *JWKSServer) SetKeys(keys ...*KeyPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

// SetStatus makes the server answer with status and no body when it is not 200.
func (s *JWKSServer) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// SetDelay delays every response.
func (s *JWKSServer) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hits returns how many times the key set was requested.
func (s *JWKSServer) Hits() int64 {
	return s.hits.Load()
}

// EncodeJWKS renders the public keys as a JWKS document.
func EncodeJWKS(keys ...*KeyPair) ([]byte, error) {
	set := jwk.NewSet()
	for _, k := range keys {
		pub, err := jwk.FromRaw(&k.Private.PublicKey)
		if err != nil {
			return nil, err
		}
		if err := pub.Set(jwk.KeyIDKey, k.KID); err != nil {
			return nil, err
		}
		if err := pub.Set(jwk.KeyUsageKey, "sig"); err != nil {
			return nil, err
		}
		if err := pub.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
			return nil, err
		}
		if err := set.AddKey(pub); err != nil {
			return nil, err
		}
	}
	return json.Marshal(set)
}

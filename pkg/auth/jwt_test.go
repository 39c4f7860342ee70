package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://issuer.test"
	testAudience = "weft"
)

// newJWKSFixture starts a JWKS endpoint backed by a fresh RSA key and
// returns the signing key alongside it.
func newJWKSFixture(t *testing.T) (*httptest.Server, jwk.Key) {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := key.PublicKey()
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)

	return srv, key
}

type tokenOpts struct {
	issuer  string
	expires time.Time
	role    string
	extra   map[string]interface{}
}

func signToken(t *testing.T, key jwk.Key, opts tokenOpts) string {
	t.Helper()

	if opts.issuer == "" {
		opts.issuer = testIssuer
	}
	if opts.expires.IsZero() {
		opts.expires = time.Now().Add(time.Hour)
	}

	builder := jwt.NewBuilder().
		Issuer(opts.issuer).
		Audience([]string{testAudience}).
		Subject("user-1").
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(opts.expires).
		Claim("email", "user@example.com")
	if opts.role != "" {
		builder = builder.Claim("role", opts.role)
	}
	for k, v := range opts.extra {
		builder = builder.Claim(k, v)
	}

	token, err := builder.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, key))
	require.NoError(t, err)
	return string(signed)
}

func TestValidateToken(t *testing.T) {
	srv, key := newJWKSFixture(t)

	v, err := NewJWTValidator(srv.URL, testIssuer, testAudience)
	require.NoError(t, err)

	tok := signToken(t, key, tokenOpts{role: "admin", extra: map[string]interface{}{"tenant": "acme"}})
	claims, err := v.ValidateToken(context.Background(), tok)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "acme", claims.Custom["tenant"])
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	srv, key := newJWKSFixture(t)

	v, err := NewJWTValidator(srv.URL, testIssuer, testAudience)
	require.NoError(t, err)

	tok := signToken(t, key, tokenOpts{issuer: "https://impostor.test"})
	_, err = v.ValidateToken(context.Background(), tok)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	srv, key := newJWKSFixture(t)

	v, err := NewJWTValidator(srv.URL, testIssuer, testAudience)
	require.NoError(t, err)

	tok := signToken(t, key, tokenOpts{expires: time.Now().Add(-time.Hour)})
	_, err = v.ValidateToken(context.Background(), tok)
	assert.Error(t, err)
}

func TestNewJWTValidatorRejectsUnreachableJWKS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewJWTValidator(url, testIssuer, testAudience)
	assert.Error(t, err)
}

func TestHTTPMiddleware(t *testing.T) {
	srv, key := newJWKSFixture(t)

	v, err := NewJWTValidator(srv.URL, testIssuer, testAudience)
	require.NoError(t, err)

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaims(r)
		w.WriteHeader(http.StatusOK)
	})
	handler := v.HTTPMiddleware(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoke", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/invoke", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/invoke", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/invoke", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, key, tokenOpts{role: "admin"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "user-1", seen.Subject)
	})
}

func TestRequireRole(t *testing.T) {
	srv, key := newJWKSFixture(t)

	v, err := NewJWTValidator(srv.URL, testIssuer, testAudience)
	require.NoError(t, err)

	handler := RequireRole(v, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/invoke", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, tokenOpts{role: "viewer"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/invoke", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, tokenOpts{role: "admin"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "pifisio-web"

type testKey struct {
	id   string
	priv *rsa.PrivateKey
}

func newTestKey(t *testing.T, id string) testKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return testKey{id: id, priv: priv}
}

func (k testKey) sign(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: k.priv, KeyID: k.id}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	jws, err := signer.Sign(payload)
	require.NoError(t, err)
	raw, err := jws.CompactSerialize()
	require.NoError(t, err)
	return raw
}

func (k testKey) jwk() jose.JSONWebKey {
	return jose.JSONWebKey{Key: &k.priv.PublicKey, KeyID: k.id, Algorithm: string(jose.RS256), Use: "sig"}
}

// provider is a minimal OIDC issuer: discovery document plus a JWKS whose
// contents the test can swap.
type provider struct {
	srv       *httptest.Server
	mu        sync.Mutex
	keys      []testKey
	jwksHits  int
	jwksBlock chan struct{}
}

func newProvider(t *testing.T, keys ...testKey) *provider {
	t.Helper()
	p := &provider{keys: keys}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"issuer":                                p.srv.URL,
			"jwks_uri":                              p.srv.URL + "/keys",
			"authorization_endpoint":                p.srv.URL + "/auth",
			"token_endpoint":                        p.srv.URL + "/token",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.jwksHits++
		block := p.jwksBlock
		set := jose.JSONWebKeySet{}
		for _, k := range p.keys {
			set.Keys = append(set.Keys, k.jwk())
		}
		p.mu.Unlock()
		if block != nil {
			select {
			case <-block:
			case <-r.Context().Done():
				return
			}
		}
		_ = json.NewEncoder(w).Encode(set)
	})
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *provider) rotate(keys ...testKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = keys
}

func (p *provider) hits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jwksHits
}

func (p *provider) claims(sub string) map[string]interface{} {
	now := time.Now()
	return map[string]interface{}{
		"iss":     p.srv.URL,
		"sub":     sub,
		"aud":     testClientID,
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
		"email":   sub + "@example.com",
		"name":    "Ana Souza",
		"picture": "https://example.com/ana.png",
		"realm_access": map[string]interface{}{
			"roles": []string{"USER"},
		},
	}
}

func TestVerify_ValidToken(t *testing.T) {
	k1 := newTestKey(t, "k1")
	p := newProvider(t, k1)
	v, err := NewVerifier(context.Background(), p.srv.URL, testClientID, 2*time.Second)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), k1.sign(t, p.claims("google-123")))
	require.NoError(t, err)
	assert.Equal(t, "google-123", id.Subject)
	assert.Equal(t, "google-123@example.com", id.Email)
	assert.Equal(t, "google-123@example.com", id.Login())
	assert.Equal(t, "Ana Souza", id.Name)
	assert.Equal(t, "https://example.com/ana.png", id.Picture)
	assert.Contains(t, string(id.RawClaims), "realm_access")
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	k1 := newTestKey(t, "k1")
	p := newProvider(t, k1)
	v, err := NewVerifier(context.Background(), p.srv.URL, testClientID, 2*time.Second)
	require.NoError(t, err)

	wrongAud := p.claims("u1")
	wrongAud["aud"] = "someone-else"

	expired := p.claims("u1")
	expired["iat"] = time.Now().Add(-2 * time.Hour).Unix()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongIss := p.claims("u1")
	wrongIss["iss"] = "https://evil.example.com"

	stranger := newTestKey(t, "k1")

	cases := map[string]string{
		"audience mismatch": k1.sign(t, wrongAud),
		"expired":           k1.sign(t, expired),
		"wrong issuer":      k1.sign(t, wrongIss),
		"foreign key":       stranger.sign(t, p.claims("u1")),
		"malformed":         "not-a-token",
		"empty":             "",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			id, err := v.Verify(context.Background(), raw)
			require.Nil(t, id)
			require.True(t, errors.Is(err, ErrInvalidExternalToken), "got %v", err)
		})
	}
}

func TestVerify_KeyRotation(t *testing.T) {
	k1 := newTestKey(t, "k1")
	k2 := newTestKey(t, "k2")
	p := newProvider(t, k1)
	v, err := NewVerifier(context.Background(), p.srv.URL, testClientID, 2*time.Second)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), k1.sign(t, p.claims("u1")))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), k1.sign(t, p.claims("u2")))
	require.NoError(t, err)
	require.Equal(t, 1, p.hits(), "keys should be cached between verifications")

	p.rotate(k2)
	id, err := v.Verify(context.Background(), k2.sign(t, p.claims("u3")))
	require.NoError(t, err)
	require.Equal(t, "u3", id.Subject)
	require.Equal(t, 2, p.hits())
}

func TestVerify_KeyFetchTimeoutFailsClosed(t *testing.T) {
	k1 := newTestKey(t, "k1")
	p := newProvider(t, k1)
	release := make(chan struct{})
	p.jwksBlock = release
	t.Cleanup(func() { close(release) })

	v, err := NewVerifier(context.Background(), p.srv.URL, testClientID, 200*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = v.Verify(context.Background(), k1.sign(t, p.claims("u1")))
	require.ErrorIs(t, err, ErrInvalidExternalToken)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestNewVerifier_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := NewVerifier(context.Background(), srv.URL, testClientID, time.Second)
	require.Error(t, err)
}

func TestStaticVerifier(t *testing.T) {
	k1 := newTestKey(t, "k1")
	issuer := "https://accounts.example.com"
	v := NewStaticVerifier(issuer, testClientID, time.Second, &k1.priv.PublicKey)

	now := time.Now()
	raw := k1.sign(t, map[string]interface{}{
		"iss":                issuer,
		"sub":                "kc-42",
		"aud":                []string{testClientID, "account"},
		"exp":                now.Add(time.Minute).Unix(),
		"iat":                now.Unix(),
		"preferred_username": "fisio.admin",
	})
	id, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "kc-42", id.Subject)
	assert.Equal(t, "fisio.admin", id.Name)
	assert.Equal(t, "kc-42", id.Login())
}

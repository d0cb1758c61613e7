package firestore

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// tokenTTL is the assertion lifetime; Google caps it at one hour.
const tokenTTL = time.Hour

// expirySlack is subtracted from the cached token lifetime so a token
// is never handed out moments before the endpoint would reject it.
const expirySlack = 60 * time.Second

// Credentials is the service-account material for token minting.
type Credentials struct {
	ClientEmail string
	PrivateKey  string // PKCS8 PEM
	TokenURL    string
	Scopes      []string
}

// TokenSource mints short-lived bearer tokens from a hand-signed RS256
// JWT assertion and caches them per scope set until shortly before
// expiry, so concurrent document operations share one exchange round
// trip instead of minting per call.
type TokenSource struct {
	clientEmail string
	key         *rsa.PrivateKey
	tokenURL    string
	scopes      []string
	httpc       *http.Client
	now         func() time.Time

	mu     sync.Mutex
	cached map[string]cachedToken
}

type cachedToken struct {
	token  string
	expiry time.Time
}

// NewTokenSource parses the credential material up front so that
// missing or malformed credentials fail fast, before any network call.
func NewTokenSource(creds Credentials, httpc *http.Client) (*TokenSource, error) {
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, ErrMissingCredentials
	}
	if creds.TokenURL == "" {
		return nil, fmt.Errorf("token source: token url is required: %w", ErrMissingCredentials)
	}

	key, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("token source: %w", err)
	}

	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}

	return &TokenSource{
		clientEmail: creds.ClientEmail,
		key:         key,
		tokenURL:    creds.TokenURL,
		scopes:      creds.Scopes,
		httpc:       httpc,
		now:         time.Now,
		cached:      make(map[string]cachedToken),
	}, nil
}

// Token returns a valid bearer token, minting a new one only when the
// cached token for the scope set is absent or about to expire.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	scopeKey := strings.Join(ts.scopes, " ")

	ts.mu.Lock()
	if c, ok := ts.cached[scopeKey]; ok && ts.now().Before(c.expiry.Add(-expirySlack)) {
		ts.mu.Unlock()
		return c.token, nil
	}
	ts.mu.Unlock()

	token, expiry, err := ts.mint(ctx, scopeKey)
	if err != nil {
		return "", err
	}

	ts.mu.Lock()
	ts.cached[scopeKey] = cachedToken{token: token, expiry: expiry}
	ts.mu.Unlock()

	return token, nil
}

// mint signs the assertion and exchanges it at the token endpoint.
// No retry: a failed exchange is surfaced to the caller verbatim.
func (ts *TokenSource) mint(ctx context.Context, scope string) (string, time.Time, error) {
	issuedAt := ts.now()
	assertion, err := ts.signAssertion(scope, issuedAt)
	if err != nil {
		return "", time.Time{}, err
	}

	form := url.Values{}
	form.Set("grant_type", grantTypeJWTBearer)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpc.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", time.Time{}, fmt.Errorf(
			"token exchange: %w", &StatusError{Code: resp.StatusCode, Body: string(body)},
		)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", time.Time{}, fmt.Errorf("parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token exchange: empty access_token in response")
	}

	ttl := tokenTTL
	if parsed.ExpiresIn > 0 {
		ttl = time.Duration(parsed.ExpiresIn) * time.Second
	}
	return parsed.AccessToken, issuedAt.Add(ttl), nil
}

// signAssertion builds and RS256-signs the JWT: header and claims are
// base64url-encoded, joined with '.', and the signature is appended.
func (ts *TokenSource) signAssertion(scope string, issuedAt time.Time) (string, error) {
	header := map[string]string{"alg": "RS256", "typ": "JWT"}
	claims := map[string]any{
		"iss":   ts.clientEmail,
		"scope": scope,
		"aud":   ts.tokenURL,
		"iat":   issuedAt.Unix(),
		"exp":   issuedAt.Add(tokenTTL).Unix(),
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("marshal jwt header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal jwt claims: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) +
		"." + base64.RawURLEncoding.EncodeToString(claimsJSON)

	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, ts.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign jwt assertion: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// parsePrivateKey loads an RSA key from a PKCS8 PEM block. Escaped
// newlines are tolerated because the key usually arrives through an
// environment variable.
func parsePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	pemStr = strings.ReplaceAll(pemStr, `\n`, "\n")

	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("parse private key: no PEM block found: %w", ErrMissingCredentials)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS8 private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parse private key: not an RSA key (%T)", parsed)
	}
	return key, nil
}

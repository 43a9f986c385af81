package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
)

// oidcTokenVerifier validates RS256 ID tokens from an external identity
// provider and maps the email claim onto a local user. It is the second
// link in the verifier chain: local tokens are tried first.
type oidcTokenVerifier struct {
	log        *logger.Logger
	userRepo   repos.UserRepo
	httpClient *http.Client

	discoveryURL string
	issuers      []string
	audience     string

	mu         sync.Mutex
	keys       map[string]*rsa.PublicKey
	keysExpiry time.Time
}

func NewOIDCTokenVerifier(baseLog *logger.Logger, userRepo repos.UserRepo, httpClient *http.Client, discoveryURL, audience string, issuers []string) (TokenVerifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(discoveryURL) == "" {
		return nil, fmt.Errorf("oidc discovery URL is required")
	}
	if strings.TrimSpace(audience) == "" {
		return nil, fmt.Errorf("oidc audience is required")
	}
	return &oidcTokenVerifier{
		log:          baseLog.With("verifier", "oidc"),
		userRepo:     userRepo,
		httpClient:   httpClient,
		discoveryURL: discoveryURL,
		issuers:      issuers,
		audience:     audience,
	}, nil
}

func (v *oidcTokenVerifier) Name() string { return "oidc" }

func (v *oidcTokenVerifier) Verify(ctx context.Context, tokenString string) (*types.User, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != "RS256" {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token missing kid header")
		}
		return v.keyForKID(ctx, kid)
	})
	if err != nil || !parsed.Valid {
		// Not a token this provider issued (or expired); let the chain
		// report unauthenticated.
		return nil, nil
	}

	iss, _ := claims.GetIssuer()
	if !v.issuerAllowed(iss) {
		return nil, nil
	}
	aud, _ := claims.GetAudience()
	if !containsString(aud, v.audience) {
		return nil, nil
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, nil
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := v.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if user == nil {
		v.log.Debug("OIDC token verified but no matching local user", "provider_issuer", iss)
		return nil, nil
	}
	return user, nil
}

func (v *oidcTokenVerifier) issuerAllowed(iss string) bool {
	for _, allowed := range v.issuers {
		if iss == allowed {
			return true
		}
	}
	return false
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func (v *oidcTokenVerifier) keyForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if time.Now().After(v.keysExpiry) || v.keys == nil {
		if err := v.refreshKeysLocked(ctx); err != nil {
			return nil, err
		}
	}
	key, ok := v.keys[kid]
	if !ok {
		// A rotated key may not be cached yet; refresh once more.
		if err := v.refreshKeysLocked(ctx); err != nil {
			return nil, err
		}
		key, ok = v.keys[kid]
		if !ok {
			return nil, fmt.Errorf("no JWKS key for kid %s", kid)
		}
	}
	return key, nil
}

func (v *oidcTokenVerifier) refreshKeysLocked(ctx context.Context) error {
	jwksURI, err := v.fetchJWKSURI(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned %d", resp.StatusCode)
	}

	var doc struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k.N, k.E)
		if err != nil {
			v.log.Warn("Skipping unparsable JWKS key", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("JWKS document contained no usable keys")
	}

	v.keys = keys
	v.keysExpiry = time.Now().Add(time.Hour)
	return nil
}

func (v *oidcTokenVerifier) fetchJWKSURI(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.discoveryURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch openid configuration: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openid configuration endpoint returned %d", resp.StatusCode)
	}

	var cfg struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return "", fmt.Errorf("failed to decode openid configuration: %w", err)
	}
	if cfg.JWKSURI == "" {
		return "", fmt.Errorf("openid configuration missing jwks_uri")
	}
	return cfg.JWKSURI, nil
}

func rsaKeyFromJWK(nB64, eB64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, fmt.Errorf("bad modulus encoding: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, fmt.Errorf("bad exponent encoding: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

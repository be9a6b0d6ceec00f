package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	introspectionCacheTTL = 5 * time.Minute
	cacheKeyPrefix        = "tokeninfo:"
)

// Gate validates bearer credentials against the identity provider and user
// ids against the external directory. It never panics or returns errors to
// callers; every failure is logged (without the token value) and reported as
// false.
type Gate struct {
	AdminToken   string
	ClientID     string
	TokenInfoURL string

	// DevSecret enables locally signed HS256 service tokens. Empty disables.
	DevSecret string

	DirectoryURL          string
	DirectoryClientID     string
	DirectoryClientSecret string

	Client *http.Client

	// Cache is optional; nil means every call hits the identity provider.
	Cache *redis.Client
}

func NewGate(adminToken, clientID, tokenInfoURL, devSecret, dirURL, dirID, dirSecret string, cache *redis.Client) *Gate {
	return &Gate{
		AdminToken:            adminToken,
		ClientID:              clientID,
		TokenInfoURL:          tokenInfoURL,
		DevSecret:             devSecret,
		DirectoryURL:          dirURL,
		DirectoryClientID:     dirID,
		DirectoryClientSecret: dirSecret,
		Client:                &http.Client{Timeout: 10 * time.Second},
		Cache:                 cache,
	}
}

type tokenInfo struct {
	Azp       string      `json:"azp"`
	Aud       string      `json:"aud"`
	Exp       json.Number `json:"exp"`
	ExpiresIn json.Number `json:"expires_in"`
}

// expiresAt resolves the token expiry from either the absolute exp claim or
// the relative expires_in counter.
func (t tokenInfo) expiresAt(now time.Time) (time.Time, bool) {
	if exp, err := t.Exp.Int64(); err == nil && exp > 0 {
		return time.Unix(exp, 0), true
	}
	if in, err := t.ExpiresIn.Int64(); err == nil && in > 0 {
		return now.Add(time.Duration(in) * time.Second), true
	}
	return time.Time{}, false
}

// ValidateCredential reports whether the bearer token is acceptable: the
// administrative override, a locally signed dev token, or a token the
// identity provider confirms as unexpired and issued for our client id.
func (g *Gate) ValidateCredential(ctx context.Context, token string) bool {
	if token == "" {
		log.Printf("[AuthGate] rejected: empty token")
		return false
	}

	if g.AdminToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(g.AdminToken)) == 1 {
		return true
	}

	if g.DevSecret != "" && g.validateDevToken(token) {
		return true
	}

	if g.cacheHit(ctx, token) {
		return true
	}

	info, ok := g.introspect(ctx, token)
	if !ok {
		return false
	}

	if info.Azp != g.ClientID && info.Aud != g.ClientID {
		log.Printf("[AuthGate] rejected: token issued for different client id azp=%s", info.Azp)
		return false
	}

	now := time.Now()
	exp, ok := info.expiresAt(now)
	if !ok || !exp.After(now) {
		log.Printf("[AuthGate] rejected: token expired")
		return false
	}

	g.cacheStore(ctx, token, exp.Sub(now))
	return true
}

func (g *Gate) validateDevToken(token string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(g.DevSecret), nil
	})
	return err == nil && parsed.Valid
}

func (g *Gate) introspect(ctx context.Context, token string) (tokenInfo, bool) {
	u := fmt.Sprintf("%s?access_token=%s", g.TokenInfoURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Printf("[AuthGate] introspection request build failed: %v", err)
		return tokenInfo{}, false
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		log.Printf("[AuthGate] introspection call failed: %v", err)
		return tokenInfo{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[AuthGate] rejected: introspection status %d", resp.StatusCode)
		return tokenInfo{}, false
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		log.Printf("[AuthGate] malformed introspection response: %v", err)
		return tokenInfo{}, false
	}
	return info, true
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (g *Gate) cacheHit(ctx context.Context, token string) bool {
	if g.Cache == nil {
		return false
	}
	_, err := g.Cache.Get(ctx, cacheKey(token)).Result()
	return err == nil
}

func (g *Gate) cacheStore(ctx context.Context, token string, ttl time.Duration) {
	if g.Cache == nil || ttl <= 0 {
		return
	}
	if ttl > introspectionCacheTTL {
		ttl = introspectionCacheTTL
	}
	if err := g.Cache.Set(ctx, cacheKey(token), "1", ttl).Err(); err != nil {
		log.Printf("[AuthGate] cache store failed: %v", err)
	}
}

// VerifyDirectoryUser reports whether the external directory recognizes the
// user id. Basic-auth service credentials, success on any 2xx.
func (g *Gate) VerifyDirectoryUser(ctx context.Context, userID string) bool {
	u := fmt.Sprintf("%s/user/%s", g.DirectoryURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Printf("[AuthGate] directory request build failed: %v", err)
		return false
	}
	req.SetBasicAuth(g.DirectoryClientID, g.DirectoryClientSecret)

	resp, err := g.Client.Do(req)
	if err != nil {
		log.Printf("[AuthGate] directory call failed user_id=%s err=%v", userID, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[AuthGate] directory verification failed user_id=%s status=%d", userID, resp.StatusCode)
		return false
	}
	return true
}

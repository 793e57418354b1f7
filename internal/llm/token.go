package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenSource yields a bearer token for outbound requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// defaultRefreshSkew is how long before expiry a cached token is treated as
// stale. Short-lived tokens use at most half their lifetime as skew.
const defaultRefreshSkew = 60 * time.Second

// TokenCache fetches OAuth client-credentials tokens and caches them until
// shortly before they expire. Concurrent callers that find the cache stale
// share a single in-flight refresh.
type TokenCache struct {
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client
	skew         time.Duration
	now          func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	token   string
	staleAt time.Time
}

// NewTokenCache creates a TokenCache for the given token endpoint.
func NewTokenCache(tokenURL, clientID, clientSecret string) *TokenCache {
	return &TokenCache{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 15 * time.Second},
		skew:         defaultRefreshSkew,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a cached token or refreshes it. The refresh itself is not
// tied to ctx so that one caller giving up does not fail the others waiting
// on the same flight.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	ch := c.group.DoChan("token", func() (any, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", fromContext("oauth", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token, forcing the next call to refresh.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.staleAt = time.Time{}
	c.mu.Unlock()
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.now().Before(c.staleAt) {
		return "", false
	}
	return c.token, true
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fromContext("oauth", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fromContext("oauth", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &BackendError{
			Kind:       KindFromStatus(resp.StatusCode),
			Provider:   "oauth",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", malformed("oauth", "decode token response: "+err.Error())
	}
	if tr.AccessToken == "" {
		return "", malformed("oauth", "token response has no access_token")
	}

	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	skew := min(c.skew, lifetime/2)

	c.mu.Lock()
	c.token = tr.AccessToken
	c.staleAt = c.now().Add(lifetime - skew)
	c.mu.Unlock()

	return tr.AccessToken, nil
}

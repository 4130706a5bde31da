// Package remote implements the authenticated HTTP/GraphQL transport to
// the switcher API: auth, criteria check, snapshot version check,
// snapshot resolve, and health check.
package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client is the shared HTTP transport. One instance is reused across
// calls (connection pooling is a transport concern, not a per-call one),
// grounded verbatim on
// internal/infrastructure/publishing/webhook_client.go's NewWebhookHTTPClient
// transport tuning. Outbound calls are rate-limited the way
// internal/infrastructure/publishing/slack_client.go bounds its own send
// rate.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
	limiter    *rate.Limiter
}

// New builds a Client against baseURL, authenticating future auth calls
// with apiKey (sent as the switcher-api-key header).
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger.With("component", "remote"),
		limiter:    rate.NewLimiter(rate.Limit(50), 20), // 50 req/s, burst 20
	}
}

// AuthResult is the response to a successful auth call.
type AuthResult struct {
	Token string `json:"token"`
	Exp   int64  `json:"exp"`
}

// Auth calls POST /criteria/auth. Returns a StatusError of KindAuthFailed
// on 401 or on a 2xx response without a token, and of KindRemoteFailed on
// any other non-2xx status.
func (c *Client) Auth(ctx context.Context, domain, component, environment string) (AuthResult, error) {
	body, _ := json.Marshal(map[string]string{
		"domain":      domain,
		"component":   component,
		"environment": environment,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/criteria/auth", bytes.NewReader(body))
	if err != nil {
		return AuthResult{}, fmt.Errorf("remote: building auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("switcher-api-key", c.apiKey)

	resp, err := c.do(req)
	if err != nil {
		return AuthResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return AuthResult{}, &StatusError{Op: "auth", Status: resp.StatusCode, Kind: KindAuthFailed}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return AuthResult{}, &StatusError{Op: "auth", Status: resp.StatusCode, Kind: KindRemoteFailed}
	}

	var result AuthResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return AuthResult{}, fmt.Errorf("remote: decoding auth response: %w", err)
	}
	if result.Token == "" {
		return AuthResult{}, &StatusError{Op: "auth", Status: resp.StatusCode, Kind: KindAuthFailed}
	}
	return result, nil
}

// CriteriaEntry mirrors the (strategy, input) pair sent to /criteria.
type CriteriaEntry struct {
	Strategy string `json:"strategy"`
	Input    string `json:"input"`
}

// CriteriaResult is the decoded /criteria response.
type CriteriaResult struct {
	Result   bool                   `json:"result"`
	Reason   string                 `json:"reason"`
	Metadata map[string]interface{} `json:"metadata"`
}

// CheckCriteria calls POST /criteria?showReason=<b>&key=<k>. This is the
// synchronous decision path: it is never retried,
// so its latency stays bounded by the HTTP client timeout alone.
func (c *Client) CheckCriteria(ctx context.Context, token, key string, input []CriteriaEntry, showReason bool) (CriteriaResult, error) {
	payload, _ := json.Marshal(map[string]interface{}{"entry": input})

	url := fmt.Sprintf("%s/criteria?showReason=%t&key=%s", c.baseURL, showReason, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return CriteriaResult{}, fmt.Errorf("remote: building criteria request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.do(req)
	if err != nil {
		return CriteriaResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CriteriaResult{}, &StatusError{Op: "checkCriteria", Status: resp.StatusCode, Kind: KindCriteriaRemoteFailed}
	}

	var result CriteriaResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CriteriaResult{}, fmt.Errorf("remote: decoding criteria response: %w", err)
	}
	return result, nil
}

// CheckSnapshotVersion calls GET /criteria/snapshot_check/<v>. Idempotent
// read: retried under transient-error policy.
func (c *Client) CheckSnapshotVersion(ctx context.Context, token string, version int64) (upToDate bool, err error) {
	err = withRetry(ctx, c.logger, "checkSnapshotVersion", func() error {
		url := fmt.Sprintf("%s/criteria/snapshot_check/%d", c.baseURL, version)
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return fmt.Errorf("remote: building snapshot-check request: %w", reqErr)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, doErr := c.do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Op: "checkSnapshotVersion", Status: resp.StatusCode, Kind: KindRemoteFailed}
		}

		var decoded struct {
			Status bool `json:"status"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr != nil {
			return fmt.Errorf("remote: decoding snapshot-check response: %w", decodeErr)
		}
		upToDate = decoded.Status
		return nil
	})
	return upToDate, err
}

const resolveSnapshotQuery = `query domain {
  domain(name:"%s", environment:"%s", _component:"%s") {
    name version activated
    group { name activated
      config { key activated
        strategies { strategy activated operation values }
        relay { type activated }
        components } } } }`

// ResolveSnapshot calls POST /graphql with the fixed query above,
// returning the raw response body for internal/snapshot.Parse to
// decode (this package does not depend on internal/snapshot, to keep the
// dependency direction single-way: snapshot loading orchestrates
// remote + snapshot, not the reverse).
func (c *Client) ResolveSnapshot(ctx context.Context, token, domain, environment, component string) (raw []byte, err error) {
	err = withRetry(ctx, c.logger, "resolveSnapshot", func() error {
		query := fmt.Sprintf(resolveSnapshotQuery, domain, environment, component)
		payload, _ := json.Marshal(map[string]string{"query": query})

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(payload))
		if reqErr != nil {
			return fmt.Errorf("remote: building resolve request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, doErr := c.do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Op: "resolveSnapshot", Status: resp.StatusCode, Kind: KindRemoteFailed}
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("remote: reading resolve response: %w", readErr)
		}
		raw = body
		return nil
	})
	return raw, err
}

// CheckHealth calls GET /check, used by Auth State's silent-mode
// recovery poll.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/check", nil)
	if err != nil {
		return fmt.Errorf("remote: building health request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: "checkHealth", Status: resp.StatusCode, Kind: KindRemoteFailed}
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("remote: rate limiter: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

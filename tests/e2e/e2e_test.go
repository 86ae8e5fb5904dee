//go:build e2e

// End-to-end tests against a running deployment:
//
//	GAMETAVERNS_API_URL=http://127.0.0.1:8080 go test -tags e2e ./tests/e2e/...
//
// The server must be reachable and migrated. Hostname-dependent behavior is
// exercised by overriding the Host header, so no DNS setup is needed.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL    = getEnv("GAMETAVERNS_API_URL", "http://127.0.0.1:8080")
	rootDomain = getEnv("GAMETAVERNS_ROOT_DOMAIN", "gametaverns.com")
	apiBase    = baseURL + "/api/v1"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// TestClient wraps an HTTP client that pins every request to a hostname.
type TestClient struct {
	httpClient *http.Client
	host       string
}

func NewTestClient(host string) *TestClient {
	jar, _ := cookiejar.New(nil)
	return &TestClient{
		httpClient: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		host:       host,
	}
}

func (c *TestClient) do(method, path string, body any) (*http.Response, []byte, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, apiBase+path, buf)
	if err != nil {
		return nil, nil, err
	}
	req.Host = c.host
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp, data, err
}

func uniqueSlug() string {
	return fmt.Sprintf("e2e-%d", time.Now().UnixNano()%1_000_000_000)
}

// TestPurpose: Full provision-resolve-login loop against a live server.
// Scope: E2E Test
// Expected: Tavern created on the apex, served on its subdomain, owner can
// log in and read the session, logout drops it.
// Test Case ID: E2E-01
func TestE2E_ProvisionResolveLoginLogout(t *testing.T) {
	slug := uniqueSlug()
	email := slug + "@example.org"

	apex := NewTestClient(rootDomain)
	resp, body, err := apex.do(http.MethodPost, "/taverns", map[string]string{
		"slug": slug, "name": "E2E Tavern",
		"owner_email": email, "owner_password": "e2e-password",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	sub := NewTestClient(slug + "." + rootDomain)
	resp, body, err = sub.do(http.MethodGet, "/taverns/current", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var current map[string]any
	require.NoError(t, json.Unmarshal(body, &current))
	assert.Equal(t, slug, current["slug"])

	resp, body, err = sub.do(http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": "e2e-password",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body, err = sub.do(http.MethodGet, "/auth/session", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _, err = sub.do(http.MethodPost, "/auth/logout", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _, err = sub.do(http.MethodGet, "/auth/session", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestPurpose: Reserved slug rejection at the live API surface.
// Scope: E2E Test
// Expected: 409 Conflict.
// Test Case ID: E2E-02
func TestE2E_ReservedSlugRejected(t *testing.T) {
	apex := NewTestClient(rootDomain)
	resp, _, err := apex.do(http.MethodPost, "/taverns", map[string]string{
		"slug": "www", "name": "Nope",
		"owner_email": "nope@example.org", "owner_password": "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// TestPurpose: Unknown subdomains serve the not-found shape.
// Scope: E2E Test
// Expected: 404 on tenant-scoped routes.
// Test Case ID: E2E-03
func TestE2E_UnknownSubdomainIsNotFound(t *testing.T) {
	ghost := NewTestClient("no-such-tavern." + rootDomain)
	resp, _, err := ghost.do(http.MethodGet, "/taverns/current", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

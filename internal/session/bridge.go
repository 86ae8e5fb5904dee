// Copyright 2026 The GameTaverns Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Browsers cap cookies around 4KB; the bridge payload must stay well under
// it. Callers must not stuff additional claims into the pair.
const maxCookieSize = 4096

// ErrPayloadTooLarge is returned when the encoded token pair would exceed
// the cookie size limit.
var ErrPayloadTooLarge = errors.New("session payload exceeds cookie size limit")

// TokenPair is the payload placed in the cross-subdomain cookie
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// Bridge keeps a browser's credential pair valid across tenant subdomains by
// writing it into a cookie scoped to the parent domain. Navigating between
// tavernA.gametaverns.com and tavernB.gametaverns.com then carries the same
// session without re-authentication.
//
// Write is a hard no-op unless the deployment runs its production
// configuration AND the request hostname is the canonical root domain or a
// subdomain of it: the cookie must never leak onto custom domains or local
// dev hosts.
type Bridge struct {
	cookieName string
	rootDomain string
	production bool
}

// NewBridge creates a session bridge for the canonical root domain
func NewBridge(cookieName, rootDomain string, production bool) *Bridge {
	return &Bridge{
		cookieName: cookieName,
		rootDomain: strings.ToLower(rootDomain),
		production: production,
	}
}

// Write stores the token pair in the parent-domain cookie. A nil pair
// clears it. Off the canonical domain, or outside production, nothing is
// written and nil is returned.
func (b *Bridge) Write(w http.ResponseWriter, r *http.Request, pair *TokenPair) error {
	if pair == nil {
		b.Clear(w, r)
		return nil
	}
	if !b.production || !b.onCanonicalDomain(r.Host) {
		return nil
	}

	payload, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	value := url.QueryEscape(string(payload))
	if len(b.cookieName)+len(value) > maxCookieSize {
		return ErrPayloadTooLarge
	}

	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    value,
		Domain:   "." + b.rootDomain,
		Path:     "/",
		SameSite: http.SameSiteLaxMode, // strict would break cross-subdomain login
		Secure:   r.TLS != nil,
	})
	return nil
}

// Read returns the token pair from the cookie, or nil when the cookie is
// absent, malformed, or missing either token. It never fails.
func (b *Bridge) Read(r *http.Request) *TokenPair {
	cookie, err := r.Cookie(b.cookieName)
	if err != nil {
		return nil
	}
	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	var pair TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		return nil
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil
	}
	return &pair
}

// Clear expires the same-scoped cookie immediately
func (b *Bridge) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    "",
		Domain:   "." + b.rootDomain,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func (b *Bridge) onCanonicalDomain(host string) bool {
	h := normalizeHost(host)
	return h == b.rootDomain || strings.HasSuffix(h, "."+b.rootDomain)
}

func normalizeHost(host string) string {
	h := strings.ToLower(host)
	if i := strings.LastIndex(h, ":"); i >= 0 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}
	return strings.TrimSuffix(h, ".")
}

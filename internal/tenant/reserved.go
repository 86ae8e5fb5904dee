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

package tenant

import "strings"

// builtinReserved are platform infrastructure labels that can never be
// claimed as tenant slugs, no matter what the directory contains.
var builtinReserved = []string{
	"www", "api", "admin", "app", "auth", "login", "signup",
	"mail", "smtp", "imap", "ftp",
	"static", "assets", "cdn", "img", "media",
	"docs", "help", "support", "status", "blog", "forum",
	"dev", "staging", "test", "demo",
	"dashboard", "account", "billing", "taverns",
}

// ReservedSlugs is the immutable set consulted before any directory lookup.
// The extension list is loaded once at process start; there is no runtime
// mutation.
type ReservedSlugs struct {
	set map[string]struct{}
}

// NewReservedSlugs builds the guard from the built-in list unioned with the
// operator-configured extension list.
func NewReservedSlugs(extra []string) ReservedSlugs {
	set := make(map[string]struct{}, len(builtinReserved)+len(extra))
	for _, s := range builtinReserved {
		set[s] = struct{}{}
	}
	for _, s := range extra {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			set[s] = struct{}{}
		}
	}
	return ReservedSlugs{set: set}
}

// IsReserved reports whether slug can never be a tenant. Comparison is
// case-insensitive.
func (r ReservedSlugs) IsReserved(slug string) bool {
	_, ok := r.set[strings.ToLower(slug)]
	return ok
}

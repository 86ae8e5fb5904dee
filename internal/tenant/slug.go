package tenant

import (
	"fmt"
	"regexp"
	"strings"
)

// Slug shape follows DNS label rules: lowercase alphanumeric with optional
// internal hyphens, 3-63 characters.
const (
	SlugMinLength = 3
	SlugMaxLength = 63
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidateSlug checks that slug is usable as a subdomain label.
func ValidateSlug(slug string) error {
	if len(slug) < SlugMinLength || len(slug) > SlugMaxLength {
		return fmt.Errorf("slug must be %d-%d characters, got %d", SlugMinLength, SlugMaxLength, len(slug))
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("slug %q must be lowercase alphanumeric with internal hyphens", slug)
	}
	return nil
}

// SchemaName derives the isolated schema name for a slug. It is a pure
// function of the slug, so collisions are impossible as long as slugs are
// unique.
func SchemaName(slug string) string {
	return "tenant_" + strings.ReplaceAll(slug, "-", "_")
}

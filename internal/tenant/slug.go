package tenant

import (
	"strings"
)

// maxSlugLength caps derived slugs so schema names stay well under the
// Postgres identifier limit.
const maxSlugLength = 30

// DeriveSlug builds an identifier-safe slug from a tenant display name. When
// the display name yields nothing usable, a prefix of the tenant UUID is used
// instead.
func DeriveSlug(displayName, tenantID string) string {
	slug := slugify(displayName)
	if slug == "" {
		slug = slugify(strings.ReplaceAll(tenantID, "-", ""))
		if len(slug) > 8 {
			slug = slug[:8]
		}
	}
	if slug == "" {
		slug = "tenant"
	}
	// Identifiers must start with a letter or underscore; UUID-derived slugs
	// usually start with a digit.
	if slug[0] >= '0' && slug[0] <= '9' {
		slug = "t" + slug
	}
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "_")
	}
	return slug
}

// slugify lowercases input and collapses anything outside [a-z0-9] to single
// underscores.
func slugify(input string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

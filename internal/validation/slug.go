// Package validation holds input rules shared by services and seed data.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9-]{2,32}$`)

var reservedSlugs = map[string]struct{}{
	"admin":      {},
	"api":        {},
	"auth":       {},
	"categories": {},
	"comments":   {},
	"feed":       {},
	"groups":     {},
	"health":     {},
	"login":      {},
	"metrics":    {},
	"posts":      {},
	"settings":   {},
	"signup":     {},
	"users":      {},
	"votes":      {},
}

// ValidateSlug validates category and interest group slugs.
func ValidateSlug(slug string) error {
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 2-32 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}

	if _, exists := reservedSlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

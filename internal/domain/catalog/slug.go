package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 200

// Slugify derives a URL slug from a display name.
// Accents are folded away, letters are lower-cased, and every run of other
// characters collapses into a single hyphen.
func Slugify(name string) string {
	folding := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folding, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

// ValidateSlug checks that a slug is non-empty, short enough and made of
// lower-case letters, digits and single hyphens.
func ValidateSlug(slug string) error {
	if slug == "" {
		return ErrInvalidSlug.WithMessage("Slug cannot be empty")
	}
	if len(slug) > maxSlugLength {
		return ErrInvalidSlug.WithMessage("Slug cannot exceed 200 characters")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") || strings.Contains(slug, "--") {
		return ErrInvalidSlug.WithMessage("Slug cannot start or end with a hyphen or contain consecutive hyphens")
	}
	for _, r := range slug {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return ErrInvalidSlug.WithMessage("Slug can only contain lower-case letters, numbers, and hyphens")
		}
	}
	return nil
}

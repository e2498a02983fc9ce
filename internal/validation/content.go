package validation

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	MaxPostLength    = 5000
	MaxCommentLength = 1000
	MaxTitleLength   = 120
	MaxTags          = 20
	MaxTagLength     = 40
	MaxURLLength     = 1024
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user supplied text and trims it.
// Entities escaped by the policy are decoded back so plain text round-trips.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// CleanText sanitizes s and enforces a non-empty value of at most max runes.
func CleanText(field, s string, max int) (string, error) {
	out := SanitizeText(s)
	if out == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(out) > max {
		return "", fmt.Errorf("%s must not exceed %d characters", field, max)
	}
	return out, nil
}

// CleanOptionalText is CleanText that allows an empty result.
func CleanOptionalText(field, s string, max int) (string, error) {
	out := SanitizeText(s)
	if utf8.RuneCountInString(out) > max {
		return "", fmt.Errorf("%s must not exceed %d characters", field, max)
	}
	return out, nil
}

// CleanTags sanitizes, lowercases and de-duplicates tags, dropping empty ones.
func CleanTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(SanitizeText(t))
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, fmt.Errorf("tag %q must not exceed %d characters", t, MaxTagLength)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > MaxTags {
		return nil, fmt.Errorf("at most %d tags are allowed", MaxTags)
	}
	return out, nil
}

// CleanOptionalURL accepts an empty value, a site-relative path or an
// absolute http(s) URL.
func CleanOptionalURL(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if len(s) > MaxURLLength {
		return "", fmt.Errorf("%s must not exceed %d characters", field, MaxURLLength)
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return "", fmt.Errorf("%s must be a valid URL", field)
	}
	if u.Scheme == "" && strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return s, nil
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%s must be an http or https URL", field)
	}
	return s, nil
}

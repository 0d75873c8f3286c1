// Package text provides the normalization, slugging, and similarity
// primitives shared by the duplicate filter and the narration paraphrase
// gate.
package text

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var htmlTagPattern = regexp.MustCompile("<[^>]*>")

// Normalize lowercases s, strips HTML tags, replaces every non-alphanumeric
// rune with a space, and collapses runs of whitespace. The result is the
// canonical comparison form used by Similarity.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = htmlTagPattern.ReplaceAllString(s, " ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Hash returns the SHA-256 hex digest of s.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}

// WordCount returns the number of whitespace-delimited words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Slugify converts s to a lowercase ASCII slug of at most maxLength runes,
// with non-alphanumeric runs collapsed to single hyphens. An empty result
// falls back to "clip" so artifact keys stay well formed.
func Slugify(s string, maxLength int) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "clip"
	}
	if maxLength > 0 && len(slug) > maxLength {
		slug = strings.Trim(slug[:maxLength], "-")
	}
	return slug
}

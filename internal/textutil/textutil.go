// Package textutil holds the text normalization rules shared by the
// pipeline stages: whitespace cleanup, diacritics-insensitive keys,
// company-name inference and filesystem-safe tenant keys.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRE  = regexp.MustCompile(`\s+`)
	nonAlnumRE    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	unsafeCharRE  = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	underscoreRE  = regexp.MustCompile(`_+`)
	digitsRE      = regexp.MustCompile(`[0-9]+`)
	titleSplitRE  = regexp.MustCompile(`[\s._-]+`)
	placeholderRE = regexp.MustCompile(`(?i)^empresa[_\s-]`)

	diacriticsStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// genericMailProviders are consumer mail domains that never identify a
// company.
var genericMailProviders = map[string]struct{}{
	"gmail":   {},
	"hotmail": {},
	"outlook": {},
	"yahoo":   {},
	"icloud":  {},
	"uol":     {},
	"terra":   {},
	"bol":     {},
	"proton":  {},
	"live":    {},
	"gmx":     {},
}

// NormalizeText collapses newlines and runs of whitespace into single spaces
// and trims the result. Returns nil for empty input so optional free-text
// fields serialize as null.
func NormalizeText(s string) *string {
	cleaned := strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// StripDiacritics removes combining marks after NFD decomposition, so
// "São Paulo" becomes "Sao Paulo".
func StripDiacritics(s string) string {
	out, _, err := transform.String(diacriticsStripper, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey reduces a requester name to a join key: diacritics stripped,
// non-alphanumerics removed, lower-cased. "Ana  Silva" and "ana silva" both
// yield "anasilva".
func NormalizeKey(s string) string {
	return strings.ToLower(nonAlnumRE.ReplaceAllString(StripDiacritics(s), ""))
}

// TitleCase splits on whitespace, dots, underscores and hyphens and
// capitalizes each token.
func TitleCase(s string) string {
	tokens := titleSplitRE.Split(s, -1)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		out = append(out, strings.ToUpper(tok[:1])+strings.ToLower(tok[1:]))
	}
	return strings.Join(out, " ")
}

// SanitizeFilename turns a display name into a stable filesystem-safe key:
// diacritics stripped, anything outside [A-Za-z0-9_-] replaced with
// underscores, runs of underscores collapsed, lower-cased.
func SanitizeFilename(name string) string {
	if name == "" {
		return "empresa_desconhecida"
	}
	s := StripDiacritics(name)
	s = unsafeCharRE.ReplaceAllString(s, "_")
	s = underscoreRE.ReplaceAllString(s, "_")
	return strings.TrimSpace(strings.ToLower(s))
}

// GuessCompanyNameFromEmail infers a company display name from a corporate
// email address: the part of the domain before the first dot, digits
// stripped, title-cased. Returns "" for generic consumer providers or when
// no usable name remains.
func GuessCompanyNameFromEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	domain := strings.ToLower(parts[1])
	sld := strings.Split(domain, ".")[0]
	if sld == "" {
		return ""
	}
	if _, generic := genericMailProviders[sld]; generic {
		return ""
	}
	sld = digitsRE.ReplaceAllString(sld, "")
	name := TitleCase(sld)
	if len(name) < 2 {
		return ""
	}
	return name
}

// IsPlaceholderName reports whether a company name is an auto-generated
// "empresa_<id>" style placeholder.
func IsPlaceholderName(name string) bool {
	return placeholderRE.MatchString(name)
}

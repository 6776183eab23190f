package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentity canonicalizes an identity key (matric number, staff ID)
// so that "stu001 " and "STU001" enroll the same record.
func NormalizeIdentity(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeName folds diacritics and case so names and position titles
// compare equal regardless of how the registrar typed them
// ("Président" == "president").
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

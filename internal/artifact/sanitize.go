package artifact

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticFold strips combining marks (accents) from a string by
// decomposing to NFD, dropping unicode.Mn runes, and recomposing to
// NFC. This is the ecosystem way to fold "café" -> "cafe" without a
// hand-rolled replacement table.
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var invalidFilenameRune = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
var repeatedUnderscore = regexp.MustCompile(`_+`)

// sanitizeName implements the stage-output filename sanitization rule:
// diacritics are folded off, then any run of characters outside
// [A-Za-z0-9._-] becomes a single underscore, with leading/trailing
// underscores trimmed.
func sanitizeName(name string) string {
	folded, _, err := transform.String(diacriticFold, name)
	if err != nil {
		folded = name
	}
	folded = invalidFilenameRune.ReplaceAllString(folded, "_")
	folded = repeatedUnderscore.ReplaceAllString(folded, "_")
	folded = strings.Trim(folded, "_")
	if folded == "" {
		folded = "photo"
	}
	return folded
}

// jobShort returns the first 6 characters of a job id string, used to
// disambiguate stage outputs for the same photo across concurrent jobs.
func jobShort(jobID string) string {
	if len(jobID) <= 6 {
		return jobID
	}
	return jobID[:6]
}

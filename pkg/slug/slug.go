// Package slug turns event and participant names into URL segments and file names.
package slug

import (
	"regexp"
	"strings"
)

var (
	spaceRe   = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}]+`)
	nonWordRe = regexp.MustCompile(`[^\w\-]+`)
	dashRunRe = regexp.MustCompile(`\-\-+`)
	badFileRe = regexp.MustCompile(`[<>:"/\\|?*]`)
	qrTextRe  = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	maxQRStem = 32
)

// Make lower-cases s, turns whitespace runs into '-', drops non-word characters,
// collapses repeated dashes and trims dashes at both ends.
func Make(s string) string {
	s = strings.ToLower(s)
	s = spaceRe.ReplaceAllString(s, "-")
	s = nonWordRe.ReplaceAllString(s, "")
	s = dashRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Filename strips characters that are invalid on common filesystems and
// replaces whitespace runs with '_'.
func Filename(s string) string {
	s = badFileRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, "_")
	return strings.TrimSpace(s)
}

// QRStem turns free text into a short file stem for a generated QR image.
func QRStem(s string) string {
	s = qrTextRe.ReplaceAllString(s, "_")
	if len(s) > maxQRStem {
		s = s[:maxQRStem]
	}
	return s
}

// Package textnorm provides accent and case folding used for keyword matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFKD, drops combining marks, then recomposes so
// "điểm" and "diem" compare equal after folding.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// đ/Đ carry no combining mark and survive decomposition, so they are mapped
// explicitly.
var dReplacer = strings.NewReplacer("đ", "d", "Đ", "D")

// Fold lower-cases text and strips diacritics. It never fails: if the
// transform chain reports an error the lower-cased input is returned as-is.
func Fold(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(dReplacer.Replace(text))
	folded, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		return lowered
	}

	return folded
}

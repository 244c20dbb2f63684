// Package extract converts attachment bytes into plain text. Dispatch is
// extension-based with a content-sniffing rescue for unknown extensions.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFormat indicates no parser exists for the file format.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrNoExtractableText indicates the file parsed but yielded no text, e.g. a
// scanned-image PDF.
var ErrNoExtractableText = errors.New("file contains no extractable text (possibly a scanned image)")

var plainTextExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".json": {}, ".py": {}, ".php": {},
	".html": {}, ".css": {}, ".js": {}, ".java": {}, ".cpp": {},
}

// Text extracts plain text from raw file bytes, using the filename for
// format sniffing. The returned text is whitespace-normalized. Errors are
// reported to the caller, which embeds them as diagnostic blocks instead of
// failing the whole aggregation.
func Text(fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case isPlainTextExt(ext):
		return cleanText(decodePlain(data)), nil
	case ext == ".pdf":
		return pdfText(data)
	case ext == ".docx":
		return docxText(data)
	default:
		// Extension unknown: trust the content when it sniffs as text.
		if sniffsAsText(data) {
			return cleanText(decodePlain(data)), nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func isPlainTextExt(ext string) bool {
	_, ok := plainTextExtensions[ext]
	return ok
}

func sniffsAsText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func decodePlain(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	innerNewlines  = regexp.MustCompile(`\n+`)
	runsOfSpace    = regexp.MustCompile(`\s+`)
)

// cleanText repairs the "one word per line" artefact common in PDF output:
// single newlines inside a paragraph become spaces, runs of whitespace
// collapse, and paragraphs are re-joined with a standard blank line.
func cleanText(text string) string {
	if text == "" {
		return ""
	}

	text = strings.NewReplacer("\t", " ", " ", " ").Replace(text)

	paragraphs := paragraphBreak.Split(text, -1)
	cleaned := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = innerNewlines.ReplaceAllString(p, " ")
		p = runsOfSpace.ReplaceAllString(p, " ")
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}

	return strings.Join(cleaned, "\n\n")
}

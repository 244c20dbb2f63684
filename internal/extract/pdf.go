package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText extracts page text from a PDF. A row-ordered pass is preferred
// because it keeps reading order closer to the visual layout; pages where it
// fails fall back to the plain-text stream. The pdf package panics on some
// malformed documents, so extraction runs behind a recover.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		if rowText := pageTextByRow(page); rowText != "" {
			sb.WriteString(rowText)
			sb.WriteString("\n")
			continue
		}

		plain, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if plain != "" {
			sb.WriteString(plain)
			sb.WriteString("\n")
		}
	}

	result := cleanText(sb.String())
	if strings.TrimSpace(result) == "" {
		return "", ErrNoExtractableText
	}

	return result, nil
}

func pageTextByRow(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			sb.WriteString(word.S)
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String())
}

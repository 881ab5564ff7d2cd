// Package cvtext pulls plain text out of uploaded CV documents and turns it
// into the loose candidate shape the ingestion pipeline parses.
package cvtext

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	pdf "github.com/ledongthuc/pdf"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
)

var ErrUnsupportedType = fmt.Errorf("%w: unsupported document type", apperr.ErrValidation)

// Extract returns the text of a CV. The file extension picks the decoder:
// PDFs go through ledongthuc/pdf, office formats through docconv, and .txt
// is taken verbatim.
func Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return ExtractPDF(data)
	case ".docx", ".doc", ".odt", ".rtf":
		res, err := docconv.Convert(bytes.NewReader(data), docconv.MimeTypeByExtension(filename), false)
		if err != nil {
			return "", fmt.Errorf("convert %s: %w", ext, err)
		}
		return res.Body, nil
	case ".txt", ".md":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

// ExtractPDF reads PDF bytes page by page.
func ExtractPDF(data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	for page := 1; page <= doc.NumPage(); page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// ContentType guesses the MIME type stored alongside a CV object.
func ContentType(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".txt") {
		return "text/plain"
	}
	if mt := docconv.MimeTypeByExtension(filename); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

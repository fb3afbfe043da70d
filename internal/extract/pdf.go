package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"licitacoes/models"
)

// Upper bound on pages read per notice. Extraction degrades to whatever was
// read instead of hanging on pathological documents.
const maxPDFPages = 64

func pdfText(data []byte) (text string, err error) {
	// The pdf library panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &models.ExtractionError{Err: fmt.Errorf("pdf parse: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &models.ExtractionError{Err: fmt.Errorf("pdf open: %w", err)}
	}

	var sb strings.Builder
	pages := reader.NumPage()
	if pages > maxPDFPages {
		pages = maxPDFPages
	}
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "", &models.ExtractionError{Err: fmt.Errorf("pdf has no extractable text")}
	}
	return sb.String(), nil
}

// Package extract mines compliance-requirement drafts out of an uploaded
// notice document (edital). It is a pure transform: bytes in, drafts out,
// no persistence.
package extract

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"licitacoes/models"
)

// Draft is one candidate requirement description, not yet persisted.
type Draft struct {
	Description string
}

const (
	maxDrafts  = 200
	minLineLen = 15
	maxLineLen = 300
)

var (
	// Numbered items ("8.1.2", "10)", "8.1 -") and lettered items ("a)").
	itemPattern   = regexp.MustCompile(`^(\d+(\.\d+)*[.)\-]?|[a-z]\))\s+`)
	spacePattern  = regexp.MustCompile(`\s+`)
	// Phrases that open requirement sentences in editais.
	keywords = []string{
		"certidão", "certidao",
		"prova de",
		"comprovação", "comprovacao", "comprovante",
		"atestado",
		"declaração", "declaracao",
		"regularidade",
		"balanço patrimonial", "balanco patrimonial",
		"registro comercial",
		"ato constitutivo",
		"alvará", "alvara",
	}
)

// Extract converts the document's raw bytes into an ordered draft list.
// The extractor chosen by file extension; unreadable or unsupported content
// yields an ExtractionError, never a panic. For fixed bytes the output is
// deterministic, so re-running can only reproduce the same set.
func Extract(filename string, data []byte) ([]Draft, error) {
	text, err := toText(filename, data)
	if err != nil {
		return nil, err
	}
	return mine(text), nil
}

func toText(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &models.ExtractionError{Err: errors.New("empty document")}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return pdfText(data)
	case ".docx":
		return docxText(data)
	case ".txt":
		return string(data), nil
	default:
		return "", &models.ExtractionError{Err: errors.New("unsupported notice format: " + filepath.Ext(filename))}
	}
}

// mine splits the notice text into candidate requirement statements:
// numbered/lettered items and sentences opened by the habilitação
// vocabulary. Duplicates keep their first occurrence.
func mine(text string) []Draft {
	seen := make(map[string]bool)
	var drafts []Draft

	for _, line := range strings.Split(text, "\n") {
		line = spacePattern.ReplaceAllString(strings.TrimSpace(line), " ")
		if len([]rune(line)) < minLineLen {
			continue
		}
		if !candidate(line) {
			continue
		}
		desc := itemPattern.ReplaceAllString(line, "")
		if r := []rune(desc); len(r) > maxLineLen {
			desc = string(r[:maxLineLen])
		}
		desc = strings.TrimSpace(desc)
		if len([]rune(desc)) < minLineLen {
			continue
		}
		key := strings.ToLower(desc)
		if seen[key] {
			continue
		}
		seen[key] = true
		drafts = append(drafts, Draft{Description: desc})
		if len(drafts) >= maxDrafts {
			break
		}
	}
	return drafts
}

func candidate(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FallbackDrafts is the fixed generic checklist inserted when extraction
// finds nothing, so a bid with a notice attached never has an empty
// checklist. This is the only place the fallback set is defined.
func FallbackDrafts() []Draft {
	return []Draft{
		{Description: "Prova de regularidade fiscal perante a Fazenda Federal, Estadual e Municipal"},
		{Description: "Certidão negativa de débitos trabalhistas (CNDT)"},
		{Description: "Prova de regularidade relativa ao FGTS"},
		{Description: "Ato constitutivo, estatuto ou contrato social em vigor"},
		{Description: "Atestado de capacidade técnica compatível com o objeto"},
	}
}

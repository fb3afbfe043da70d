package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licitacoes/models"
)

const noticeText = `EDITAL DE PREGÃO ELETRÔNICO Nº 12/2024

8. DA HABILITAÇÃO
8.1 Prova de regularidade fiscal perante a Fazenda Nacional, mediante certidão conjunta.
8.2 Certidão negativa de débitos trabalhistas, emitida pelo TST.
8.3 Comprovação de aptidão para o fornecimento de bens compatíveis com o objeto.
a) atestado de capacidade técnica fornecido por pessoa jurídica de direito público.
O pagamento será efetuado em até 30 dias.
8.3 Comprovação de aptidão para o fornecimento de bens compatíveis com o objeto.
`

func TestExtractPlainText(t *testing.T) {
	drafts, err := Extract("edital.txt", []byte(noticeText))
	require.NoError(t, err)
	require.Len(t, drafts, 4)

	assert.Equal(t, "Prova de regularidade fiscal perante a Fazenda Nacional, mediante certidão conjunta.", drafts[0].Description)
	assert.Equal(t, "Certidão negativa de débitos trabalhistas, emitida pelo TST.", drafts[1].Description)
	// Item markers are stripped, duplicates keep the first occurrence.
	assert.NotContains(t, drafts[2].Description, "8.3")
	assert.Contains(t, drafts[3].Description, "atestado de capacidade")
}

func TestExtractDeterministic(t *testing.T) {
	first, err := Extract("edital.txt", []byte(noticeText))
	require.NoError(t, err)
	second, err := Extract("edital.txt", []byte(noticeText))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractNoCandidates(t *testing.T) {
	drafts, err := Extract("edital.txt", []byte("Nada de interessante por aqui.\nSó texto comum.\n"))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestExtractEmpty(t *testing.T) {
	_, err := Extract("edital.txt", nil)
	assert.ErrorIs(t, err, models.ErrExtraction)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract("edital.csv", []byte("whatever"))
	assert.ErrorIs(t, err, models.ErrExtraction)
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract("edital.pdf", []byte("definitely not a pdf"))
	assert.ErrorIs(t, err, models.ErrExtraction)
}

func TestExtractCorruptDocx(t *testing.T) {
	_, err := Extract("edital.docx", []byte("not a zip archive"))
	assert.ErrorIs(t, err, models.ErrExtraction)
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t, []string{
		"DA DOCUMENTAÇÃO",
		"1. Prova de regularidade relativa ao FGTS, demonstrando situação regular.",
		"2. Declaração de que não emprega menor de dezoito anos.",
		"Texto sem relevância para a habilitação das licitantes neste certame comum.",
	})

	drafts, err := Extract("edital.docx", data)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Prova de regularidade relativa ao FGTS, demonstrando situação regular.", drafts[0].Description)
	assert.Equal(t, "Declaração de que não emprega menor de dezoito anos.", drafts[1].Description)
}

func TestExtractDocxMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract("edital.docx", buf.Bytes())
	assert.ErrorIs(t, err, models.ErrExtraction)
}

func TestFallbackDrafts(t *testing.T) {
	drafts := FallbackDrafts()
	require.NotEmpty(t, drafts)
	for _, d := range drafts {
		assert.NotEmpty(t, strings.TrimSpace(d.Description))
	}
}

func buildDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()

	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>`)
		xmlEscape(&doc, p)
		doc.WriteString(`</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(doc.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func xmlEscape(sb *strings.Builder, s string) {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	sb.WriteString(replacer.Replace(s))
}

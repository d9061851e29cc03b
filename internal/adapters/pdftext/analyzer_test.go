package pdftext

import (
	"bytes"
	"compress/zlib"
	"log/slog"
	"os"
	"testing"

	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// buildPDF wraps text literals in a minimal uncompressed content stream.
func buildPDF(literals ...string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n1 0 obj\n<< /Length 0 >>\nstream\n")
	for _, lit := range literals {
		b.WriteString("BT (" + lit + ") Tj ET\n")
	}
	b.WriteString("endstream\nendobj\n%%EOF")
	return b.Bytes()
}

func buildCompressedPDF(t *testing.T, literals ...string) []byte {
	t.Helper()
	var content bytes.Buffer
	for _, lit := range literals {
		content.WriteString("BT (" + lit + ") Tj ET\n")
	}

	var deflated bytes.Buffer
	w := zlib.NewWriter(&deflated)
	_, err := w.Write(content.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n1 0 obj\n<< /Filter /FlateDecode >>\nstream\n")
	b.Write(deflated.Bytes())
	b.WriteString("endstream\nendobj\n%%EOF")
	return b.Bytes()
}

func TestNormalize_RejectsNonPDF(t *testing.T) {
	a := NewAnalyzer(testLogger())

	_, err := a.Normalize([]byte("this is not a pdf"), "acme")
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestNormalize_RejectsEmptyContent(t *testing.T) {
	a := NewAnalyzer(testLogger())

	_, err := a.Normalize([]byte("%PDF-1.4\n%%EOF"), "acme")
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestNormalize_ExtractsLiterals(t *testing.T) {
	a := NewAnalyzer(testLogger())

	data := buildPDF(
		"Payment API Reference",
		"POST /api/payments creates a payment transaction",
		"Authorization: Bearer token required",
		"Example request:",
	)

	doc, err := a.Normalize(data, "acme")
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentSourceText, doc.Source)
	assert.Equal(t, "acme", doc.Provider)
	assert.Contains(t, doc.Text, "POST /api/payments")
	assert.True(t, doc.HasEndpoints)
	assert.True(t, doc.HasAuthentication)
	assert.True(t, doc.HasExamples)
	assert.Equal(t, domain.ProviderTypePayment, doc.ProviderHint)
}

func TestNormalize_CompressedStream(t *testing.T) {
	a := NewAnalyzer(testLogger())

	data := buildCompressedPDF(t,
		"Shipping API",
		"POST /api/shipments creates a shipment with tracking and label",
	)

	doc, err := a.Normalize(data, "shipfast")
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "shipments")
	assert.Equal(t, domain.ProviderTypeShipping, doc.ProviderHint)
}

func TestNormalize_EscapedLiterals(t *testing.T) {
	a := NewAnalyzer(testLogger())

	data := buildPDF(`endpoint \(POST\) for payment payment transaction checkout`)

	doc, err := a.Normalize(data, "acme")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "(POST)")
}

func TestCleanText(t *testing.T) {
	raw := "API   Reference\r\nPage 1 of 10\n42\ncreate    payment\n\n\n\ndone"

	got := cleanText(raw)

	assert.NotContains(t, got, "Page 1 of 10")
	assert.NotContains(t, got, "\n\n\n")
	assert.Contains(t, got, "create payment")
}

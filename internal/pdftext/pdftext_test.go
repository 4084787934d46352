package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	apperrors "resume-ranker/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page. An
// empty string produces a page with an empty content stream.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	var objects []string
	fontID := 3 + 2*len(pages)

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)),
	)

	for i, text := range pages {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>", 4+2*i, fontID),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestExtractText_NotPDF(t *testing.T) {
	_, err := New().ExtractText(context.Background(), []byte("this is a fake PDF"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidPDF)
}

func TestExtractText_Malformed(t *testing.T) {
	_, err := New().ExtractText(context.Background(), []byte("%PDF-1.4\n%Mock PDF content for testing\n%%EOF"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidPDF)
}

func TestExtractText_SinglePage(t *testing.T) {
	data := buildPDF(t, "Hello Resume")

	text, err := New().ExtractText(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, text, "Hello Resume")
}

func TestExtractText_SkipsBlankPages(t *testing.T) {
	data := buildPDF(t, "First Page", "", "Third Page")

	text, err := New().ExtractText(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, text, "First Page")
	assert.Contains(t, text, "Third Page")
	assert.Less(t, bytes.Index([]byte(text), []byte("First")), bytes.Index([]byte(text), []byte("Third")))
}

func TestExtractText_NoTextLayer(t *testing.T) {
	data := buildPDF(t, "")

	_, err := New().ExtractText(context.Background(), data)
	assert.ErrorIs(t, err, apperrors.ErrNoText)
}

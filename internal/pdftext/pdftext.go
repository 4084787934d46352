// Package pdftext extracts the text layer of a PDF locally, page by page.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	apperrors "resume-ranker/internal/errors"
	"resume-ranker/internal/extract"

	"github.com/ledongthuc/pdf"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// ExtractText joins the text of every page that has any, one page per line
// block. A PDF whose pages yield no text at all (scans, encrypted files)
// returns apperrors.ErrNoText.
func (e *Extractor) ExtractText(ctx context.Context, resume []byte) (text string, err error) {
	if err := extract.CheckPDF(resume); err != nil {
		return "", err
	}

	// the parser panics on some malformed cross reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(resume), int64(len(resume)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}

		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", apperrors.ErrNoText
	}
	return result, nil
}

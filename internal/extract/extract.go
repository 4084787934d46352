// Package extract turns uploaded resume PDFs into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "resume-ranker/internal/errors"
)

type TextExtractor interface {
	ExtractText(ctx context.Context, resume []byte) (string, error)
}

var pdfMagic = []byte("%PDF")

// CheckPDF rejects data that does not start with the PDF magic number.
func CheckPDF(data []byte) error {
	if !bytes.HasPrefix(data, pdfMagic) {
		return apperrors.ErrInvalidPDF
	}
	return nil
}

// Chain tries each extractor in order and returns the first non-blank text.
// A non-PDF upload stops the chain, every other failure moves on to the next
// extractor. When all of them fail, the error of the last one is returned and
// the earlier failures only appear in its message.
type Chain struct {
	extractors []TextExtractor
}

func NewChain(extractors ...TextExtractor) *Chain {
	return &Chain{extractors: extractors}
}

func (c *Chain) ExtractText(ctx context.Context, resume []byte) (string, error) {
	if len(c.extractors) == 0 {
		return "", fmt.Errorf("no text extractor configured")
	}

	var earlier []string
	var last error
	for _, extractor := range c.extractors {
		text, err := extractor.ExtractText(ctx, resume)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = apperrors.ErrNoText
		}
		if errors.Is(err, apperrors.ErrInvalidPDF) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if last != nil {
			earlier = append(earlier, last.Error())
		}
		last = err
	}

	if len(earlier) == 0 {
		return "", last
	}
	return "", fmt.Errorf("%w (earlier attempts: %s)", last, strings.Join(earlier, "; "))
}

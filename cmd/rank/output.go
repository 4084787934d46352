package main

import (
	"encoding/json"
	"fmt"
	"io"

	"resume-ranker/internal/models"
)

const previewChars = 1000

func writeJSON(w io.Writer, report *models.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return nil
}

func writeText(w io.Writer, report *models.Report) {
	if report.Empty() {
		fmt.Fprintln(w, "No valid resumes could be processed for ranking.")
	}

	for i, result := range report.Results {
		fmt.Fprintf(w, "Rank %d - %s (Score: %.2f)\n", i+1, result.Name, result.Score)
		preview, total := previewOf(result.Text)
		fmt.Fprintln(w, preview)
		fmt.Fprintf(w, "Showing first %d characters of %d total characters\n\n", min(previewChars, total), total)
	}

	if len(report.Excluded) > 0 {
		fmt.Fprintln(w, "Skipped:")
		for _, exclusion := range report.Excluded {
			fmt.Fprintf(w, "  %s: %s", exclusion.Name, message(exclusion))
			fmt.Fprintln(w)
		}
	}
}

// previewOf returns the first previewChars characters of text and the
// length of the whole text, both counted in runes.
func previewOf(text string) (string, int) {
	runes := []rune(text)
	if len(runes) <= previewChars {
		return text, len(runes)
	}
	return string(runes[:previewChars]) + "...", len(runes)
}

func message(exclusion models.Exclusion) string {
	switch exclusion.Reason {
	case models.ReasonNotPDF:
		return "not a valid PDF file (missing PDF header)"
	case models.ReasonNoTextExtracted:
		return "no text could be extracted. The PDF might be image-based or encrypted."
	case models.ReasonEmptyText:
		return "resume text is empty"
	case models.ReasonEmbeddingFailed:
		return "could not be embedded: " + exclusion.Detail
	default:
		return "error processing file: " + exclusion.Detail
	}
}

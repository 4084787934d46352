package models

// Document is a resume's display name and its raw extracted text.
type Document struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// RankedResult is a scored Document. SourceIndex is the Document's position
// in the input list and survives sorting.
type RankedResult struct {
	SourceIndex int     `json:"source_index"`
	Name        string  `json:"name"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
}

// Ranking is ordered by Score, highest first.
type Ranking []RankedResult

type ExclusionReason string

const (
	ReasonEmptyText        ExclusionReason = "empty_text"
	ReasonEmbeddingFailed  ExclusionReason = "embedding_failed"
	ReasonNotPDF           ExclusionReason = "not_pdf"
	ReasonExtractionFailed ExclusionReason = "extraction_failed"
	ReasonNoTextExtracted  ExclusionReason = "no_text_extracted"
)

// Exclusion records why a Document did not make it into the Ranking.
type Exclusion struct {
	SourceIndex int             `json:"source_index"`
	Name        string          `json:"name"`
	Reason      ExclusionReason `json:"reason"`
	Detail      string          `json:"detail,omitempty"`
}

// Report is a Ranking together with the Documents that were left out of it.
type Report struct {
	Results  Ranking     `json:"results"`
	Excluded []Exclusion `json:"excluded"`
}

// Empty reports whether nothing could be ranked.
func (r *Report) Empty() bool {
	return r == nil || len(r.Results) == 0
}

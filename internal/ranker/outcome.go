package ranker

import (
	"resume-ranker/internal/models"
)

// Outcome is the per-document result of an evaluation: either a score or the
// reason the document was left out.
type Outcome struct {
	SourceIndex int
	Name        string
	Text        string
	Score       float64

	Excluded bool
	Reason   models.ExclusionReason
	Err      error
}

func (o Outcome) Result() models.RankedResult {
	return models.RankedResult{
		SourceIndex: o.SourceIndex,
		Name:        o.Name,
		Text:        o.Text,
		Score:       o.Score,
	}
}

func (o Outcome) Exclusion() models.Exclusion {
	exclusion := models.Exclusion{
		SourceIndex: o.SourceIndex,
		Name:        o.Name,
		Reason:      o.Reason,
	}
	if o.Err != nil {
		exclusion.Detail = o.Err.Error()
	}
	return exclusion
}

func excluded(o Outcome, reason models.ExclusionReason, err error) Outcome {
	o.Excluded = true
	o.Reason = reason
	o.Err = err
	return o
}

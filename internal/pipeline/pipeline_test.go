package pipeline

import (
	"context"
	"errors"
	"testing"

	"resume-ranker/internal/embedding"
	apperrors "resume-ranker/internal/errors"
	"resume-ranker/internal/extract"
	"resume-ranker/internal/models"
	"resume-ranker/internal/ranker"
	"resume-ranker/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRanker(t *testing.T) *ranker.Ranker {
	t.Helper()

	h, err := embedding.NewHashEmbedder(384)
	require.NoError(t, err)
	r, err := ranker.New(h)
	require.NoError(t, err)
	return r
}

func TestRun_ExtractsAndRanks(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("ExtractText", mock.Anything, []byte("pdf-designer")).Return("Graphic designer skilled in Photoshop", nil)
	extractor.On("ExtractText", mock.Anything, []byte("pdf-engineer")).Return("Python backend engineer with 5 years experience", nil)

	p := New(extractor, newRanker(t), WithConcurrency(2))

	report, err := p.Run(context.Background(), "senior python backend engineer", []Resume{
		{Name: "designer.pdf", Data: []byte("pdf-designer")},
		{Name: "engineer.pdf", Data: []byte("pdf-engineer")},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "engineer.pdf", report.Results[0].Name)
	assert.Equal(t, 1, report.Results[0].SourceIndex)
	assert.Equal(t, "designer.pdf", report.Results[1].Name)
	assert.Empty(t, report.Excluded)
}

func TestRun_ExtractionFailuresAreExcluded(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("ExtractText", mock.Anything, []byte("good")).Return("Go developer", nil)
	extractor.On("ExtractText", mock.Anything, []byte("docx")).Return("", apperrors.ErrInvalidPDF)
	extractor.On("ExtractText", mock.Anything, []byte("scan")).Return("", apperrors.ErrNoText)
	extractor.On("ExtractText", mock.Anything, []byte("broken")).Return("", errors.New("xref table corrupt"))
	extractor.On("ExtractText", mock.Anything, []byte("blank")).Return("   ", nil)

	p := New(extractor, newRanker(t))

	report, err := p.Run(context.Background(), "go developer", []Resume{
		{Name: "cv.docx", Data: []byte("docx")},
		{Name: "good.pdf", Data: []byte("good")},
		{Name: "scan.pdf", Data: []byte("scan")},
		{Name: "broken.pdf", Data: []byte("broken")},
		{Name: "blank.pdf", Data: []byte("blank")},
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, 1, report.Results[0].SourceIndex)

	require.Len(t, report.Excluded, 4)
	reasons := map[int]models.ExclusionReason{}
	for _, e := range report.Excluded {
		reasons[e.SourceIndex] = e.Reason
	}
	assert.Equal(t, models.ReasonNotPDF, reasons[0])
	assert.Equal(t, models.ReasonNoTextExtracted, reasons[2])
	assert.Equal(t, models.ReasonExtractionFailed, reasons[3])
	assert.Equal(t, models.ReasonEmptyText, reasons[4])
	assert.Contains(t, report.Excluded[2].Detail, "xref table corrupt")
}

func TestRun_FetchFailureSkipsExtraction(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("ExtractText", mock.Anything, []byte("good")).Return("Go developer", nil)

	report, err := New(extractor, newRanker(t)).Run(context.Background(), "go developer", []Resume{
		{Name: "missing.pdf", Err: errors.New("failed to download file: NoSuchKey")},
		{Name: "good.pdf", Data: []byte("good")},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.Len(t, report.Excluded, 1)
	assert.Equal(t, models.ReasonExtractionFailed, report.Excluded[0].Reason)
	assert.Contains(t, report.Excluded[0].Detail, "NoSuchKey")
	extractor.AssertNumberOfCalls(t, "ExtractText", 1)
}

func TestRun_EmptyInputsSkipExtraction(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	p := New(extractor, newRanker(t))

	report, err := p.Run(context.Background(), "  ", []Resume{{Name: "a.pdf", Data: []byte("x")}})
	require.NoError(t, err)
	assert.True(t, report.Empty())

	report, err = p.Run(context.Background(), "job", nil)
	require.NoError(t, err)
	assert.True(t, report.Empty())

	extractor.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything)
}

func TestRun_RankerFailurePropagates(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("ExtractText", mock.Anything, mock.Anything).Return("resume text", nil)

	model := new(mocks.MockEmbedder)
	model.On("Dimension").Return(2)
	model.On("Embed", mock.Anything, "job").Return(nil, errors.New("model unavailable"))
	r, err := ranker.New(model)
	require.NoError(t, err)

	_, err = New(extractor, r).Run(context.Background(), "job", []Resume{{Name: "a.pdf", Data: []byte("x")}})
	assert.ErrorIs(t, err, ranker.ErrJobDescriptionUnembeddable)
}

func TestRun_CancelledContext(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("ExtractText", mock.Anything, mock.Anything).Return("", context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(extractor, newRanker(t)).Run(ctx, "job", []Resume{{Name: "a.pdf", Data: []byte("x")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ChainFallbackFailureIsExtractionFailed(t *testing.T) {
	local := new(mocks.MockTextExtractor)
	remote := new(mocks.MockTextExtractor)
	local.On("ExtractText", mock.Anything, []byte("%PDF-scan")).Return("", apperrors.ErrNoText)
	remote.On("ExtractText", mock.Anything, []byte("%PDF-scan")).Return("", errors.New("gemini: 503"))

	p := New(extract.NewChain(local, remote), newRanker(t))

	report, err := p.Run(context.Background(), "go developer", []Resume{{Name: "scan.pdf", Data: []byte("%PDF-scan")}})
	require.NoError(t, err)
	require.Len(t, report.Excluded, 1)
	assert.Equal(t, models.ReasonExtractionFailed, report.Excluded[0].Reason)
	assert.Contains(t, report.Excluded[0].Detail, "gemini: 503")
}

func TestReasonFor(t *testing.T) {
	assert.Equal(t, models.ReasonNotPDF, ReasonFor(apperrors.ErrInvalidPDF))
	assert.Equal(t, models.ReasonNoTextExtracted, ReasonFor(errors.Join(errors.New("local"), apperrors.ErrNoText)))
	assert.Equal(t, models.ReasonExtractionFailed, ReasonFor(errors.New("other")))
}

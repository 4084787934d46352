package extract

import (
	"context"
	"errors"
	"testing"

	apperrors "resume-ranker/internal/errors"
	"resume-ranker/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var samplePDF = []byte("%PDF-1.4\n%Mock PDF content for testing\n%%EOF")

func TestCheckPDF(t *testing.T) {
	assert.NoError(t, CheckPDF(samplePDF))
	assert.ErrorIs(t, CheckPDF([]byte("PK\x03\x04 docx")), apperrors.ErrInvalidPDF)
	assert.ErrorIs(t, CheckPDF(nil), apperrors.ErrInvalidPDF)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := new(mocks.MockTextExtractor)
	second := new(mocks.MockTextExtractor)
	first.On("ExtractText", mock.Anything, samplePDF).Return("resume text", nil)

	text, err := NewChain(first, second).ExtractText(context.Background(), samplePDF)
	require.NoError(t, err)
	assert.Equal(t, "resume text", text)
	second.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything)
}

func TestChain_FallsBackOnBlankText(t *testing.T) {
	local := new(mocks.MockTextExtractor)
	remote := new(mocks.MockTextExtractor)
	local.On("ExtractText", mock.Anything, samplePDF).Return("", apperrors.ErrNoText)
	remote.On("ExtractText", mock.Anything, samplePDF).Return("scanned resume", nil)

	text, err := NewChain(local, remote).ExtractText(context.Background(), samplePDF)
	require.NoError(t, err)
	assert.Equal(t, "scanned resume", text)
}

func TestChain_WhitespaceCountsAsBlank(t *testing.T) {
	local := new(mocks.MockTextExtractor)
	local.On("ExtractText", mock.Anything, samplePDF).Return(" \n ", nil)

	_, err := NewChain(local).ExtractText(context.Background(), samplePDF)
	assert.ErrorIs(t, err, apperrors.ErrNoText)
}

func TestChain_InvalidPDFStops(t *testing.T) {
	local := new(mocks.MockTextExtractor)
	remote := new(mocks.MockTextExtractor)
	local.On("ExtractText", mock.Anything, mock.Anything).Return("", apperrors.ErrInvalidPDF)

	_, err := NewChain(local, remote).ExtractText(context.Background(), []byte("nope"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidPDF)
	remote.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything)
}

func TestChain_LastErrorDecides(t *testing.T) {
	local := new(mocks.MockTextExtractor)
	remote := new(mocks.MockTextExtractor)
	boom := errors.New("parser panic")
	local.On("ExtractText", mock.Anything, samplePDF).Return("", boom)
	remote.On("ExtractText", mock.Anything, samplePDF).Return("", apperrors.ErrPermanentFailure)

	_, err := NewChain(local, remote).ExtractText(context.Background(), samplePDF)
	assert.ErrorIs(t, err, apperrors.ErrPermanentFailure)
	assert.NotErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "parser panic")
}

func TestChain_FallbackFailureHidesNoText(t *testing.T) {
	local := new(mocks.MockTextExtractor)
	remote := new(mocks.MockTextExtractor)
	unavailable := errors.New("gemini: 503 service unavailable")
	local.On("ExtractText", mock.Anything, samplePDF).Return("", apperrors.ErrNoText)
	remote.On("ExtractText", mock.Anything, samplePDF).Return("", unavailable)

	_, err := NewChain(local, remote).ExtractText(context.Background(), samplePDF)
	assert.ErrorIs(t, err, unavailable)
	assert.NotErrorIs(t, err, apperrors.ErrNoText)
	assert.Contains(t, err.Error(), apperrors.ErrNoText.Error())
}

func TestChain_SingleFailureUnwrapped(t *testing.T) {
	local := new(mocks.MockTextExtractor)
	local.On("ExtractText", mock.Anything, samplePDF).Return("", apperrors.ErrNoText)

	_, err := NewChain(local).ExtractText(context.Background(), samplePDF)
	assert.Equal(t, apperrors.ErrNoText, err)
}

func TestChain_Empty(t *testing.T) {
	_, err := NewChain().ExtractText(context.Background(), samplePDF)
	assert.Error(t, err)
}

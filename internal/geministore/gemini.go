package geministore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "resume-ranker/internal/errors"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	DefaultExtractModel   = "gemini-2.5-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultDimension      = 768
)

const extractPrompt = "Extract the full plain text of this resume. Return only the text, without commentary or formatting."

type Config struct {
	APIKey         string
	BaseURL        string
	ExtractModel   string
	EmbeddingModel string
	Dimension      int
}

type GeminiClient struct {
	Client *genai.Client

	extractModel   string
	embeddingModel string
	dimension      int
}

func New(ctx context.Context, conf Config) (*GeminiClient, error) {

	if conf.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      conf.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: conf.BaseURL},
	})

	if err != nil {
		return nil, fmt.Errorf("API key error: %w", err)
	}

	g := &GeminiClient{
		Client:         client,
		extractModel:   conf.ExtractModel,
		embeddingModel: conf.EmbeddingModel,
		dimension:      conf.Dimension,
	}
	if g.extractModel == "" {
		g.extractModel = DefaultExtractModel
	}
	if g.embeddingModel == "" {
		g.embeddingModel = DefaultEmbeddingModel
	}
	if g.dimension <= 0 {
		g.dimension = DefaultDimension
	}

	return g, nil
}

// ExtractText asks the model to transcribe the PDF. It reads scanned and
// image-only resumes that have no text layer.
func (g *GeminiClient) ExtractText(ctx context.Context, resume []byte) (string, error) {

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(resume, "application/pdf"),
			genai.NewPartFromText(extractPrompt),
		}, genai.RoleUser),
	}

	result, err := g.Client.Models.GenerateContent(
		ctx,
		g.extractModel,
		contents,
		nil,
	)

	if err != nil {
		return "", classify("failed to extract text from resume", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", apperrors.ErrNoText
	}

	return text, nil
}

func (g *GeminiClient) Dimension() int {
	return g.dimension
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {

	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// EmbedBatch embeds all texts in one request, one content per text.
func (g *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(g.dimension)
	result, err := g.Client.Models.EmbedContent(ctx,
		g.embeddingModel,
		contents,
		&genai.EmbedContentConfig{
			TaskType:             "SEMANTIC_SIMILARITY",
			OutputDimensionality: &dim,
		},
	)
	if err != nil {
		return nil, classify("failed to embed given content", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini returned empty embedding result")
		}
		vectors[i] = emb.Values
	}

	return vectors, nil
}

// classify marks bad credentials and bad input as permanent failures so the
// worker does not retry them.
func classify(msg string, err error) error {

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("gemini authentication failed: %w: %w", apperrors.ErrPermanentFailure, err)
		case http.StatusBadRequest:
			return fmt.Errorf("gemini invalid input (400): %w: %w", apperrors.ErrPermanentFailure, err)
		}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return fmt.Errorf("gemini authentication failed: %w: %w", apperrors.ErrPermanentFailure, err)
		case codes.InvalidArgument:
			return fmt.Errorf("gemini invalid input (400): %w: %w", apperrors.ErrPermanentFailure, err)
		}
	}

	return fmt.Errorf("%s: %w", msg, err)
}

// Package ollama provides an HTTP client for the Ollama embedding API.
// It converts resume and job description text into vectors using a locally
// served sentence embedding model (all-minilm by default).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultBaseURL   = "http://localhost:11434"
	DefaultModel     = "all-minilm"
	DefaultDimension = 384
)

// Device selects where the server runs the model.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceGPU  Device = "gpu"
)

type Config struct {
	BaseURL   string
	Model     string
	Dimension int
	Device    Device
	Timeout   time.Duration
}

// Client handles HTTP communication with the Ollama embedding API.
type Client struct {
	baseURL    string
	modelName  string
	dimension  int
	options    map[string]any
	httpClient *http.Client
}

// embeddingRequest is the JSON payload sent to the /api/embed endpoint.
type embeddingRequest struct {
	Model   string         `json:"model"`
	Input   []string       `json:"input"`
	Options map[string]any `json:"options,omitempty"`
}

// embeddingResponse holds one vector per input, in input order.
type embeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewClient(conf Config) *Client {
	c := &Client{
		baseURL:    conf.BaseURL,
		modelName:  conf.Model,
		dimension:  conf.Dimension,
		httpClient: &http.Client{Timeout: conf.Timeout},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.modelName == "" {
		c.modelName = DefaultModel
	}
	if c.dimension <= 0 {
		c.dimension = DefaultDimension
	}
	if conf.Timeout <= 0 {
		c.httpClient.Timeout = 60 * time.Second
	}

	// num_gpu is the number of layers offloaded to the GPU
	switch conf.Device {
	case DeviceCPU:
		c.options = map[string]any{"num_gpu": 0}
	case DeviceGPU:
		c.options = map[string]any{"num_gpu": 999}
	}

	return c
}

func (c *Client) Dimension() int {
	return c.dimension
}

// Embed converts the provided text into a vector embedding.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts with a single request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embeddingRequest{
		Model:   c.modelName,
		Input:   texts,
		Options: c.options,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(texts))
	}

	return parsed.Embeddings, nil
}

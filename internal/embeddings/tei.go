package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultTEIModel is a reasonable small embedding model.
const defaultTEIModel = "BAAI/bge-small-en-v1.5"

// TEIEmbedder generates embeddings via a TEI-compatible HTTP service.
type TEIEmbedder struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

// NewTEIEmbedder creates an embedder backed by a TEI endpoint.
func NewTEIEmbedder(cfg Config) (*TEIEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultTEIModel
	}

	return &TEIEmbedder{
		baseURL:   cfg.BaseURL,
		model:     model,
		dimension: detectDimensionFromModel(model),
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// detectDimensionFromModel returns the embedding dimension for a model
// name, falling back to 384 for unknown models.
func detectDimensionFromModel(model string) int {
	switch {
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "small"), strings.Contains(model, "mini"):
		return 384
	default:
		return 384
	}
}

// teiRequest is the request body for the TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// EmbedDocuments generates embeddings for multiple texts.
func (t *TEIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	body, err := json.Marshal(teiRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	var vectors [][]float64
	if err := json.Unmarshal(respBody, &vectors); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single text.
func (t *TEIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vectors, err := t.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the embedding dimension for the configured model.
func (t *TEIEmbedder) Dimension() int {
	return t.dimension
}

// Ensure interface compliance.
var _ Embedder = (*TEIEmbedder)(nil)

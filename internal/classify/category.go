package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/metrics"
)

// CategoryClient calls a fine-tuned classification model behind a simple
// JSON endpoint: POST {"text": ...} returning {"category": ...}. It
// implements CategoryClassifier.
type CategoryClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewCategoryClient creates a client for the given endpoint with a
// 30 second request timeout. Generative model calls are slow; the timeout
// bounds them without retrying.
func NewCategoryClient(url string) *CategoryClient {
	return &CategoryClient{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type categoryRequest struct {
	Text string `json:"text"`
}

type categoryResponse struct {
	Category string `json:"category"`
}

// ClassifyCategory sends the text to the model endpoint and returns its
// label verbatim (trimmed). Matching the label against the taxonomy is the
// fusion engine's job, not this client's.
func (c *CategoryClient) ClassifyCategory(ctx context.Context, text string) (string, error) {
	start := time.Now()
	label, err := c.classify(ctx, text)
	metrics.ClassifierLatency.WithLabelValues("category").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierErrors.WithLabelValues("category").Inc()
		return "", &Error{Service: "category", Err: err}
	}
	return label, nil
}

func (c *CategoryClient) classify(ctx context.Context, text string) (string, error) {
	data, err := json.Marshal(categoryRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unexpected status %s: %s", resp.Status, body)
	}

	var parsed categoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(parsed.Category), nil
}

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

// DefaultPerspectiveURL is the Comment Analyzer analyze endpoint.
const DefaultPerspectiveURL = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

// requestedAttributes is the fixed set of attributes scored for every
// message, matching the fusion engine's priority order.
var requestedAttributes = []string{
	"TOXICITY",
	"SEVERE_TOXICITY",
	"INSULT",
	"PROFANITY",
	"IDENTITY_ATTACK",
	"THREAT",
}

// PerspectiveClient scores message attributes via the Comment Analyzer REST
// API. It implements AttributeScorer.
type PerspectiveClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewPerspectiveClient creates a client with the default endpoint and a
// 10 second request timeout.
func NewPerspectiveClient(apiKey string) *PerspectiveClient {
	return &PerspectiveClient{
		APIKey:     apiKey,
		BaseURL:    DefaultPerspectiveURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type analyzeRequest struct {
	Comment struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"comment"`
	Languages           []string                   `json:"languages"`
	RequestedAttributes map[string]json.RawMessage `json:"requestedAttributes"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// ScoreAttributes sends the text for analysis and returns the summary score
// per attribute, keyed by lower-case attribute name.
func (c *PerspectiveClient) ScoreAttributes(ctx context.Context, text string) (AttributeScores, error) {
	start := time.Now()
	scores, err := c.scoreAttributes(ctx, text)
	metrics.ClassifierLatency.WithLabelValues("perspective").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierErrors.WithLabelValues("perspective").Inc()
		return nil, &Error{Service: "perspective", Err: err}
	}
	return scores, nil
}

func (c *PerspectiveClient) scoreAttributes(ctx context.Context, text string) (AttributeScores, error) {
	reqBody := analyzeRequest{
		Languages:           []string{"en"},
		RequestedAttributes: make(map[string]json.RawMessage, len(requestedAttributes)),
	}
	reqBody.Comment.Text = text
	reqBody.Comment.Type = "PLAIN_TEXT"
	for _, attr := range requestedAttributes {
		reqBody.RequestedAttributes[attr] = json.RawMessage("{}")
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + "?key=" + c.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, body)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	scores := make(AttributeScores, len(parsed.AttributeScores))
	for name, s := range parsed.AttributeScores {
		scores[strings.ToLower(name)] = s.SummaryScore.Value
	}
	return scores, nil
}

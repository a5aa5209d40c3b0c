// Package classify defines the content-classifier collaborators consumed by
// the pipeline: an attribute scorer returning continuous confidence scores
// and a category classifier returning a single best-fit policy label. Both
// are fallible, latency-bearing calls; failures are surfaced with their
// cause and are never retried.
package classify

import (
	"context"
	"fmt"
)

// AttributeScores maps attribute names (lower-case, e.g. "toxicity") to
// confidence scores in [0,1].
type AttributeScores map[string]float64

// AttributeScorer scores a text against a fixed set of toxicity-like
// attributes.
type AttributeScorer interface {
	ScoreAttributes(ctx context.Context, text string) (AttributeScores, error)
}

// CategoryClassifier returns a single best-fit policy category label for a
// text.
type CategoryClassifier interface {
	ClassifyCategory(ctx context.Context, text string) (string, error)
}

// Error wraps a classifier collaborator failure with the service that
// produced it. The underlying cause is preserved verbatim.
type Error struct {
	Service string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classifier %s: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Package classifier decides whether an image URL shows a property.
package classifier

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/rohits-web03/estately/internal/config"
)

// AllowedConcepts are the labels that identify a property photo.
var AllowedConcepts = []string{
	"house", "home", "apartment", "indoors", "interior design", "room", "villa", "dining room",
}

type Concept struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type Verdict struct {
	Accepted bool    `json:"accepted"`
	Concept  string  `json:"concept,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

type Classifier interface {
	Classify(ctx context.Context, imageURL string) (Verdict, error)
}

// Evaluate accepts when any allowed concept scores strictly above threshold.
func Evaluate(concepts []Concept, threshold float64) Verdict {
	for _, c := range concepts {
		if c.Value <= threshold {
			continue
		}
		for _, allowed := range AllowedConcepts {
			if c.Name == allowed {
				return Verdict{Accepted: true, Concept: c.Name, Score: c.Value}
			}
		}
	}
	return Verdict{}
}

// AcceptAll is used when no classifier credentials are configured.
type AcceptAll struct{}

func (AcceptAll) Classify(context.Context, string) (Verdict, error) {
	return Verdict{Accepted: true}, nil
}

// New builds the configured classifier, caching verdicts in Redis when rdb
// is non-nil.
func New(cfg config.ClassifierConfig, rdb *redis.Client) Classifier {
	if cfg.PAT == "" {
		slog.Warn("CLARIFAI_PAT not set, image classification disabled")
		return AcceptAll{}
	}
	var c Classifier = NewClarifai(cfg)
	if rdb != nil && cfg.CacheTTL > 0 {
		c = NewCached(c, rdb, cfg.CacheTTL)
	}
	return c
}

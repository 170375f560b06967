// Package signal defines the contract for the opaque edge-scoring
// collaborator. The scheduler only consumes the score to decide which action
// a directive proposes; the formulas behind it live outside this module.
package signal

import "context"

type Recommendation string

const (
	RecommendTrade   Recommendation = "trade"
	RecommendMonitor Recommendation = "monitor"
	RecommendSkip    Recommendation = "skip"
)

type Score struct {
	Confidence     float64
	Recommendation Recommendation
}

type Provider interface {
	Score(ctx context.Context, assetID string) (Score, error)
}

// StaticProvider returns a fixed score; used when no external scorer is
// wired (dry runs, tests).
type StaticProvider struct {
	Value Score
}

func (p StaticProvider) Score(ctx context.Context, assetID string) (Score, error) {
	return p.Value, nil
}

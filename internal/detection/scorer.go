package detection

import (
	"math"

	"github.com/mikey/meeting-auditor/internal/core"
)

// SignalWeight is the per-unit weight and the cap of one signal category.
type SignalWeight struct {
	Weight float64
	Cap    float64
}

func (w SignalWeight) score(count int) float64 {
	return math.Min(w.Cap, w.Weight*float64(count))
}

// Weights is the scoring table across the four signal categories.
type Weights struct {
	Keyword SignalWeight
	Date    SignalWeight
	Time    SignalWeight
	Name    SignalWeight
}

// DefaultWeights returns the canonical table.
// Two tables circulated for date and time weights (0.2/0.15 and 0.25/0.2);
// this one uses the higher pair. Thresholds below are tuned against it.
func DefaultWeights() Weights {
	return Weights{
		Keyword: SignalWeight{Weight: 0.3, Cap: 0.6},
		Date:    SignalWeight{Weight: 0.25, Cap: 0.4},
		Time:    SignalWeight{Weight: 0.2, Cap: 0.3},
		Name:    SignalWeight{Weight: 0.1, Cap: 0.2},
	}
}

// Scorer combines signal counts into a bounded confidence.
type Scorer struct {
	weights       Weights
	minConfidence float64
}

// NewScorer creates a scorer; zero weights fall back to the canonical table
func NewScorer(cfg Config) *Scorer {
	weights := cfg.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Scorer{
		weights:       weights,
		minConfidence: cfg.MinConfidence,
	}
}

// Score returns min(1, sum of capped per-signal contributions).
func (s *Scorer) Score(keywords, dates, times, names int) float64 {
	total := s.weights.Keyword.score(keywords) +
		s.weights.Date.score(dates) +
		s.weights.Time.score(times) +
		s.weights.Name.score(names)
	return core.Clamp(total, 0, 1)
}

// ScoreCandidate sets the candidate's heuristic confidence and reports
// whether it clears the minimum confidence.
func (s *Scorer) ScoreCandidate(c *core.Candidate) bool {
	c.HeuristicConfidence = s.Score(
		len(c.Keywords),
		len(c.CandidateDateTokens),
		len(c.CandidateTimeTokens),
		len(c.CandidateNames),
	)
	return c.HeuristicConfidence >= s.minConfidence
}

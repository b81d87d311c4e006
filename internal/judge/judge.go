// Package judge asks an external language model whether a candidate is a
// real meeting and recovers from every way that call can go wrong.
package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/metrics"
	"github.com/mikey/meeting-auditor/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Judge produces a semantic verdict for a candidate and its context window.
// It never fails; problems degrade into fallback verdicts.
type Judge interface {
	Judge(ctx context.Context, c *core.Candidate, window []core.Message) core.SemanticVerdict
}

// Config controls oracle throttling and fallback behaviour
type Config struct {
	// FallbackThreshold is the heuristic confidence a fallback verdict must exceed
	FallbackThreshold float64
	Timeout           time.Duration
	RateLimit         float64
	Burst             int
	MaxPromptSize     int
	CacheTTL          time.Duration
	Location          *time.Location
}

// DefaultConfig returns the default judge settings
func DefaultConfig() Config {
	return Config{
		FallbackThreshold: 0.3,
		Timeout:           20 * time.Second,
		RateLimit:         2,
		Burst:             4,
		MaxPromptSize:     4000,
		CacheTTL:          7 * 24 * time.Hour,
		Location:          time.UTC,
	}
}

// NewJudge returns the oracle-backed judge, or the heuristic fallback judge
// when client is nil. cache and m may be nil.
func NewJudge(
	cfg Config,
	client core.LLMClient,
	cache core.VerdictCache,
	tp *utils.TextProcessor,
	m *metrics.Metrics,
	logger *zap.Logger,
) Judge {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tp == nil {
		tp = utils.NewTextProcessor(logger)
	}

	if client == nil {
		logger.Info("Semantic oracle disabled, using heuristic verdicts",
			zap.Float64("fallback_threshold", cfg.FallbackThreshold))
		return &fallbackJudge{threshold: cfg.FallbackThreshold}
	}

	return &oracleJudge{
		cfg:     cfg,
		client:  client,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		prompts: newPromptBuilder(tp, cfg.MaxPromptSize, cfg.Location),
		metrics: m,
		logger:  logger,
	}
}

// Fallback is the deterministic verdict used without an oracle: valid when
// a date or time was seen and the heuristic confidence exceeds threshold.
func Fallback(c *core.Candidate, threshold float64) core.SemanticVerdict {
	confidence := core.Clamp(c.HeuristicConfidence, 0, 1)
	return core.SemanticVerdict{
		IsValidMeeting: c.HasDateOrTime() && confidence > threshold,
		Confidence:     int(math.Round(confidence * 100)),
		Participants:   c.CandidateNames,
		Reasoning:      "heuristic fallback",
		Source:         core.VerdictFallback,
	}
}

// Unavailable is the verdict for a candidate the oracle could not be asked
// about: invalid with zero confidence, so an outage never reports meetings.
func Unavailable(err error) core.SemanticVerdict {
	return core.SemanticVerdict{
		IsValidMeeting: false,
		Confidence:     0,
		Reasoning:      fmt.Sprintf("oracle unavailable: %v", err),
		Source:         core.VerdictFallback,
	}
}

// CacheKey identifies a verdict by chat, message and text content
func CacheKey(c *core.Candidate) string {
	h := sha256.New()
	h.Write([]byte(c.ChatID))
	h.Write([]byte{0})
	h.Write([]byte(c.SourceMessageID))
	h.Write([]byte{0})
	h.Write([]byte(c.RawText))
	return "verdict:" + hex.EncodeToString(h.Sum(nil))
}

type fallbackJudge struct {
	threshold float64
}

func (j *fallbackJudge) Judge(_ context.Context, c *core.Candidate, _ []core.Message) core.SemanticVerdict {
	return Fallback(c, j.threshold)
}

type oracleJudge struct {
	cfg     Config
	client  core.LLMClient
	cache   core.VerdictCache
	limiter *rate.Limiter
	prompts *promptBuilder
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (j *oracleJudge) Judge(ctx context.Context, c *core.Candidate, window []core.Message) core.SemanticVerdict {
	key := CacheKey(c)
	if j.cache != nil {
		if cached, err := j.cache.Get(ctx, key); err == nil && cached != nil {
			j.logger.Debug("Verdict cache hit", zap.String("candidate_id", c.ID))
			j.metrics.ObserveOracle(metrics.OutcomeCached, 0)
			return *cached
		}
	}

	if err := j.limiter.Wait(ctx); err != nil {
		j.logger.Warn("Oracle rate limiter aborted, using fallback verdict",
			zap.String("candidate_id", c.ID),
			zap.Error(err))
		j.metrics.ObserveOracle(metrics.OutcomeError, 0)
		return Unavailable(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := j.client.Complete(callCtx, systemPrompt, j.prompts.build(c, window))
	elapsed := time.Since(start)
	if err != nil {
		j.logger.Warn("Oracle call failed, using fallback verdict",
			zap.String("candidate_id", c.ID),
			zap.String("model", j.client.ModelName()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		j.metrics.ObserveOracle(metrics.OutcomeError, elapsed)
		return Unavailable(err)
	}

	verdict := ParseVerdict(raw)
	if verdict.Source == core.VerdictParseFailed {
		j.logger.Warn("Oracle response could not be parsed",
			zap.String("candidate_id", c.ID),
			zap.String("model", j.client.ModelName()),
			zap.String("reason", verdict.Reasoning))
		j.metrics.ObserveOracle(metrics.OutcomeParseFailed, elapsed)
		return verdict
	}
	j.metrics.ObserveOracle(metrics.OutcomeOK, elapsed)

	j.logger.Debug("Oracle verdict",
		zap.String("candidate_id", c.ID),
		zap.Bool("valid", verdict.IsValidMeeting),
		zap.Int("confidence", verdict.Confidence),
		zap.Duration("elapsed", elapsed))

	if j.cache != nil {
		if err := j.cache.Set(ctx, key, &verdict, j.cfg.CacheTTL); err != nil {
			j.logger.Error("Failed to update verdict cache", zap.Error(err))
		}
	}

	return verdict
}

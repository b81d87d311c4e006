package factory

import (
	"fmt"

	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/dates"
	"github.com/mikey/meeting-auditor/internal/detection"
	"github.com/mikey/meeting-auditor/internal/engine"
	"github.com/mikey/meeting-auditor/internal/ignore"
	"github.com/mikey/meeting-auditor/internal/judge"
	"github.com/mikey/meeting-auditor/internal/metrics"
	"github.com/mikey/meeting-auditor/internal/reconcile"
	"github.com/mikey/meeting-auditor/internal/utils"
	"github.com/mikey/meeting-auditor/internal/window"
	"go.uber.org/zap"
)

// EngineFactory assembles the audit pipeline from configuration
type EngineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewEngineFactory creates a new engine factory
func NewEngineFactory(cfg *config.Config, logger *zap.Logger) *EngineFactory {
	return &EngineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateJudge creates the semantic judge. A nil client selects heuristic verdicts.
func (f *EngineFactory) CreateJudge(
	client core.LLMClient,
	cache core.VerdictCache,
	tp *utils.TextProcessor,
	m *metrics.Metrics,
) (judge.Judge, error) {
	judgeCfg, err := f.cfg.GetJudge()
	if err != nil {
		return nil, fmt.Errorf("invalid oracle configuration: %w", err)
	}
	return judge.NewJudge(judgeCfg, client, cache, tp, m, f.logger), nil
}

// CreateAuditService builds every pipeline component around the given judge and calendar
func (f *EngineFactory) CreateAuditService(
	j judge.Judge,
	calendar core.CalendarSource,
	m *metrics.Metrics,
) (*engine.AuditService, error) {
	loc, err := f.cfg.GetLocation()
	if err != nil {
		return nil, err
	}
	windowCfg, err := f.cfg.GetWindow()
	if err != nil {
		return nil, fmt.Errorf("invalid window configuration: %w", err)
	}
	reconcileCfg, err := f.cfg.GetReconcile()
	if err != nil {
		return nil, fmt.Errorf("invalid reconcile configuration: %w", err)
	}
	oracleCfg, err := f.cfg.GetOracle()
	if err != nil {
		return nil, fmt.Errorf("invalid oracle configuration: %w", err)
	}

	detectionCfg := f.cfg.GetDetection()
	auditCfg := f.cfg.GetAudit()
	history := window.NewHistory(f.cfg.GetInt("window.history_size"))

	components := engine.Components{
		Extractor: detection.NewExtractor(detectionCfg),
		Scorer:    detection.NewScorer(detectionCfg),
		Builder:   window.NewBuilder(windowCfg, history),
		History:   history,
		Judge:     j,
		Resolver:  dates.NewResolver(loc),
		Matcher:   reconcile.NewMatcher(reconcileCfg, loc),
		Ignore:    ignore.NewChecker(auditCfg.IgnoredSenders, auditCfg.IgnoredChats, f.logger),
		Calendar:  calendar,
		Metrics:   m,
	}

	opts := engine.Options{
		Location:       loc,
		LookaheadDays:  auditCfg.LookaheadDays,
		DetailLimit:    auditCfg.DetailLimit,
		MaxConcurrency: oracleCfg.MaxConcurrency,
	}

	return engine.NewAuditService(components, opts, f.logger), nil
}

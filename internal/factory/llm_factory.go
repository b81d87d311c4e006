package factory

import (
	"errors"
	"fmt"

	"github.com/mikey/meeting-auditor/internal/adapters/bedrock"
	"github.com/mikey/meeting-auditor/internal/adapters/gemini"
	"github.com/mikey/meeting-auditor/internal/adapters/openai"
	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration.
// Provider "none", or a provider without a credential, returns a nil client,
// which selects the heuristic judge.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	var (
		client core.LLMClient
		err    error
	)
	switch llmConfig.Provider {
	case "", "none":
		f.logger.Info("Semantic oracle disabled, using heuristic verdicts")
		return nil, nil
	case "bedrock":
		client, err = bedrock.NewFactory(f.cfg, f.logger).CreateClient()
	case "gemini":
		client, err = gemini.NewFactory(f.cfg, f.logger).CreateClient()
	case "openai":
		client, err = openai.NewFactory(f.cfg, f.logger).CreateClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}

	if errors.Is(err, core.ErrNoCredential) {
		f.logger.Warn("No credential for semantic oracle, using heuristic verdicts",
			zap.String("provider", llmConfig.Provider),
			zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

package llm

import (
	"context"

	"github.com/ppiankov/llmxray/internal/model"
	"go.uber.org/zap"
)

// Checker adapts a Provider to factcheck.Checker
type Checker struct {
	provider Provider
	logger   *zap.Logger
}

// NewChecker wraps provider. Strict quote warnings are logged.
func NewChecker(provider Provider, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{provider: provider, logger: logger}
}

// Check audits responseText with the wrapped provider
func (c *Checker) Check(ctx context.Context, responseText string) ([]model.Claim, error) {
	resp, err := c.provider.FactCheck(ctx, FactCheckRequest{ResponseText: responseText})
	if err != nil {
		return nil, err
	}

	for _, w := range resp.Warnings {
		c.logger.Warn(w, zap.String("provider", c.provider.Name()))
	}
	c.logger.Debug("audit complete",
		zap.String("provider", c.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("claims", len(resp.Claims)),
		zap.Int("tokens", resp.TokensUsed),
	)

	return resp.Claims, nil
}

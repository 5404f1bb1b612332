package providers

import (
	"context"
	"time"

	"docreader/internal/logging"
	"docreader/internal/models"

	"go.uber.org/zap"
)

// Auditor persists one record per backend call.
type Auditor interface {
	Insert(ctx context.Context, rec models.LLMCall) error
}

type auditedLLM struct {
	next    LLMProvider
	auditor Auditor
	logger  *zap.Logger
}

type auditedEmbed struct {
	next    EmbeddingProvider
	auditor Auditor
	logger  *zap.Logger
}

// WithAudit wraps every provider so calls are recorded through a. Audit write
// failures are logged and never fail the call itself.
func (m *Manager) WithAudit(a Auditor, logger *zap.Logger) {
	if a == nil {
		return
	}
	logger = logging.OrNop(logger)
	for i := range m.llmProviders {
		m.llmProviders[i].Provider = &auditedLLM{next: m.llmProviders[i].Provider, auditor: a, logger: logger}
	}
	for i := range m.embedProviders {
		m.embedProviders[i].Provider = &auditedEmbed{next: m.embedProviders[i].Provider, auditor: a, logger: logger}
	}
}

func (p *auditedLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	start := time.Now()
	resp, info, err := p.next.Generate(ctx, req)
	record(ctx, p.auditor, p.logger, req.Operation, req.Stage, info, time.Since(start), err)
	return resp, info, err
}

func (p *auditedEmbed) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	start := time.Now()
	vecs, info, err := p.next.Embed(ctx, req)
	record(ctx, p.auditor, p.logger, req.Operation, "embed", info, time.Since(start), err)
	return vecs, info, err
}

func record(ctx context.Context, a Auditor, logger *zap.Logger, op, stage string, info ProviderInfo, latency time.Duration, callErr error) {
	rec := models.LLMCall{
		RequestID:    logging.RequestIDFromContext(ctx),
		Operation:    op,
		Stage:        stage,
		ProviderName: info.Name,
		Model:        info.Model,
		Status:       "ok",
		Latency:      latency,
	}
	if callErr != nil {
		rec.Status = "error"
		rec.ErrorType = string(ClassifyError(callErr))
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.Insert(writeCtx, rec); err != nil {
		logger.Warn("audit insert failed", zap.String("operation", op), zap.Error(err))
	}
}

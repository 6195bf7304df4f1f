package services

import (
	"context"
	"log/slog"

	"github.com/prudhvinik1/deltasync/internal/models"
)

// AuditSink receives one entry per applied batch.
type AuditSink interface {
	RecordBatch(ctx context.Context, entry models.AuditEntry)
}

type LogAuditSink struct {
	logger *slog.Logger
}

func NewLogAuditSink(logger *slog.Logger) *LogAuditSink {
	return &LogAuditSink{logger: logger}
}

func (s *LogAuditSink) RecordBatch(ctx context.Context, entry models.AuditEntry) {
	s.logger.InfoContext(ctx, "sync batch applied",
		"entity_type", entry.EntityType,
		"owner_id", entry.OwnerID,
		"client_id", entry.ClientID,
		"applied", entry.AppliedCount,
		"conflicts", entry.ConflictCount,
		"errors", entry.ErrorCount,
	)
}

type MultiAuditSink []AuditSink

func (m MultiAuditSink) RecordBatch(ctx context.Context, entry models.AuditEntry) {
	for _, sink := range m {
		sink.RecordBatch(ctx, entry)
	}
}

// Package audit is the event sink every quota decision and verification
// transition is emitted to. The core only writes here; readers live elsewhere.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"missionhub_backend/internal/logger"
	"missionhub_backend/internal/models"

	"gorm.io/gorm"
)

// Event types emitted by the core.
const (
	EventQuotaReserved          = "quota.reserved"
	EventQuotaRejected          = "quota.rejected"
	EventQuotaReleased          = "quota.released"
	EventOverrideSet            = "privilege.override_set"
	EventVerificationTransition = "verification.transition"
)

type Event struct {
	Type     string
	ActorID  string
	EntityID string
	Outcome  string
	Details  map[string]any
	At       time.Time
}

// Sink receives audit events. Emitting must never fail the operation that
// produced the event; implementations log and swallow their own errors.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// LogSink writes events to the structured log.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Emit(ctx context.Context, event Event) {
	logger.CtxInfo(ctx, "audit event",
		"event_type", event.Type,
		"actor_id", event.ActorID,
		"entity_id", event.EntityID,
		"outcome", event.Outcome,
		"details", event.Details,
	)
}

// DBSink persists events to the audit_logs table.
type DBSink struct {
	db *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

func (s *DBSink) Emit(ctx context.Context, event Event) {
	details, err := json.Marshal(event.Details)
	if err != nil {
		details = []byte("{}")
	}

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	row := models.AuditLog{
		EventType: event.Type,
		ActorID:   event.ActorID,
		EntityID:  event.EntityID,
		Outcome:   event.Outcome,
		Details:   string(details),
		CreatedAt: at,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.CtxError(ctx, "failed to persist audit event", "event_type", event.Type, "error", err)
	}
}

// MultiSink fans one event out to several sinks.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Emit(ctx context.Context, event Event) {
	for _, sink := range s.sinks {
		sink.Emit(ctx, event)
	}
}

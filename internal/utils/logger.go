package utils

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"ihp-inventory/internal/models"
)

// Logger writes audit entries to the audit_logs collection. A zero Logger
// (no collection) records nothing.
type Logger struct {
	Collection *mongo.Collection
}

func (l *Logger) Log(ctx context.Context, entity, action, performedBy string, data any) error {
	if l == nil || l.Collection == nil {
		return nil
	}

	log := models.AuditLog{
		Timestamp:   time.Now(),
		Entity:      entity,
		Action:      action,
		PerformedBy: performedBy,
		RequestID:   RequestIDFrom(ctx),
		Data:        data,
	}
	_, err := l.Collection.InsertOne(ctx, log)
	return err
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog records one mutation of the inventory. PerformedBy is the email
// from the caller's token, or "anonymous" for public endpoints.
type AuditLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	Entity      string             `bson:"entity" json:"entity"`
	Action      string             `bson:"action" json:"action"`
	PerformedBy string             `bson:"performed_by" json:"performed_by"`
	RequestID   string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Data        any                `bson:"data" json:"data"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditEvent is one mutation recorded in the MongoDB audit_events collection.
type AuditEvent struct {
	ID         primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	ActorID    int64              `json:"actor_id"    bson:"actor_id"`
	Actor      string             `json:"actor"       bson:"actor"`
	Action     string             `json:"action"      bson:"action"`
	Resource   string             `json:"resource"    bson:"resource"`
	ResourceID string             `json:"resource_id" bson:"resource_id"`
	At         time.Time          `json:"at"          bson:"at"`
}

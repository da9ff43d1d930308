// internal/domain/models/role.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a named tag (e.g., "boss", "lead") attachable to memberships.
// Roles are created ad hoc when first attached and reused afterwards.
type Role struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"name_ci"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// internal/domain/models/groupadmin.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupAdmin grants a user administrative rights over a group's subtree.
// It is distinct from the global admin role: a group admin may mutate
// the named group and everything beneath it, nothing else.
type GroupAdmin struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

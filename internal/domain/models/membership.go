// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership is the authoritative join between users and groups.
// Exactly one document per (user_id, group_id).
//
// Archived is never set directly by a client; it changes only as a side
// effect of the owning group's archive/unarchive transaction.
type Membership struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`

	// Percentage is the participation share (0..100), nil when unset.
	// The sum across a user's non-archived memberships may not exceed 100.
	Percentage *int `bson:"percentage,omitempty" json:"percentage,omitempty"`

	// Organizational mirrors the owning group's flag so the exclusivity
	// invariant can be enforced with a single indexed query.
	Organizational bool `bson:"organizational" json:"organizational"`

	Archived bool                 `bson:"archived" json:"archived"`
	RoleIDs  []primitive.ObjectID `bson:"role_ids,omitempty" json:"role_ids,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

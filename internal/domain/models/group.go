// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a node in the organizational forest. ParentID is nil for
// roots.
//
// NOTE:
//   - Membership is not embedded on Group. All membership lives in the
//     memberships collection.
//   - Organizational groups are exclusive: a user may hold at most one
//     organizational membership across the whole forest, and archiving
//     an organizational group deletes (rather than archives) its
//     memberships.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`

	ParentID       *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	SupervisorID   *primitive.ObjectID `bson:"supervisor_id,omitempty" json:"supervisor_id,omitempty"`
	Organizational bool                `bson:"organizational" json:"organizational"`
	Virtual        bool                `bson:"virtual" json:"virtual"`
	Archived       bool                `bson:"archived" json:"archived"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

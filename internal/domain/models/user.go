// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles. Admins hold the "edit full group tree" capability;
// everyone else needs a GroupAdmin grant for the subtree they touch.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a person.
//
// NOTE:
//   - Group membership is not embedded on User. Use the memberships
//     collection to discover a user's groups.
//   - Viewer-dependent capabilities (e.g. "can this viewer edit that
//     group") are computed by the policy packages, never stored.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`

	// PasswordHash is a bcrypt hash; empty for accounts that never use
	// the internal login.
	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	Role         string              `bson:"role" json:"role"` // admin | user
	Active       bool                `bson:"active" json:"active"`
	SupervisorID *primitive.ObjectID `bson:"supervisor_id,omitempty" json:"supervisor_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// internal/domain/models/vacancy.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vacancy statuses. A group cannot archive while it (or any group in
// its subtree) has a vacancy that is neither archived nor closed.
const (
	VacancyOpen   = "OPEN"
	VacancyOnHold = "ON_HOLD"
	VacancyClosed = "CLOSED"
)

// Vacancy is an open position attached to a group.
type Vacancy struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	Title    string             `bson:"title" json:"title"`
	Status   string             `bson:"status" json:"status"` // OPEN | ON_HOLD | CLOSED
	Archived bool               `bson:"archived" json:"archived"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

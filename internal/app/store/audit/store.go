// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess = "login_success"
	EventLoginFailed  = "login_failed"
	EventLogout       = "logout"
)

// Admin event types, one per mutating operation.
const (
	EventGroupCreated    = "group_created"
	EventGroupUpdated    = "group_updated"
	EventGroupMoved      = "group_moved"
	EventGroupArchived   = "group_archived"
	EventGroupUnarchived = "group_unarchived"
	EventGroupDeleted    = "group_deleted"

	EventMemberAddedToGroup          = "member_added_to_group"
	EventMemberRemovedFromGroup      = "member_removed_from_group"
	EventRoleAddedToMembership       = "role_added_to_membership"
	EventRoleRemovedFromMembership   = "role_removed_from_membership"
	EventMembershipPercentageUpdated = "membership_percentage_updated"

	EventVacancyCreated       = "vacancy_created"
	EventVacancyStatusChanged = "vacancy_status_changed"

	EventGroupAdminGranted = "group_admin_granted"
	EventGroupAdminRevoked = "group_admin_revoked"
)

// Event records one successful mutation (or auth attempt): who acted,
// what operation, which subject, and a changed-fields-only diff.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who acted and on what.
	ActorID      *primitive.ObjectID `bson:"actor_id,omitempty"`
	GroupID      *primitive.ObjectID `bson:"group_id,omitempty"`
	UserID       *primitive.ObjectID `bson:"user_id,omitempty"` // affected user
	MembershipID *primitive.ObjectID `bson:"membership_id,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Before/After hold only the fields the operation changed;
	// unchanged fields are dropped before emission.
	Before map[string]string `bson:"before,omitempty"`
	After  map[string]string `bson:"after,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for listing audit events.
type QueryFilter struct {
	ActorID   *primitive.ObjectID
	GroupID   *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates the indexes the list queries need.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{
			{Key: "group_id", Value: 1},
			{Key: "timestamp", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "actor_id", Value: 1},
			{Key: "timestamp", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "category", Value: 1},
			{Key: "event_type", Value: 1},
			{Key: "timestamp", Value: -1},
		}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns events matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	q := bson.M{}
	if filter.ActorID != nil {
		q["actor_id"] = *filter.ActorID
	}
	if filter.GroupID != nil {
		q["group_id"] = *filter.GroupID
	}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if filter.EventType != "" {
		q["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		tr := bson.M{}
		if filter.StartTime != nil {
			tr["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			tr["$lte"] = *filter.EndTime
		}
		q["timestamp"] = tr
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts.SetSkip(filter.Offset)
	}

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

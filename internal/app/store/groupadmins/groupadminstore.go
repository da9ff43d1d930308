// internal/app/store/groupadmins/groupadminstore.go
package groupadminstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateGrant = errors.New("user is already an admin of this group")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_admins")}
}

// Grant registers userID as an admin of groupID's subtree.
func (s *Store) Grant(ctx context.Context, userID, groupID primitive.ObjectID) error {
	_, err := s.c.InsertOne(ctx, bson.M{
		"user_id":    userID,
		"group_id":   groupID,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateGrant
		}
		return err
	}
	return nil
}

// Revoke removes the grant for (userID, groupID).
func (s *Store) Revoke(ctx context.Context, userID, groupID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "group_id": groupID})
	return err
}

// CountOnPath returns how many of the given groups have userID
// registered as a group admin. The policy evaluator calls this with the
// ancestor-inclusive path of the group being mutated.
func (s *Store) CountOnPath(ctx context.Context, userID primitive.ObjectID, groupIDs []primitive.ObjectID) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{
		"user_id":  userID,
		"group_id": bson.M{"$in": groupIDs},
	})
}

// DeleteByGroup removes all grants for a group. Used when a group is
// hard-deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

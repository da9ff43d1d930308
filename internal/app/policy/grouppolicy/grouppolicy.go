// internal/app/policy/grouppolicy/grouppolicy.go

// Package grouppolicy decides whether an acting user may mutate a
// group. Global admins hold the "edit full group tree" capability and
// are allowed without touching the database; everyone else needs a
// GroupAdmin grant on the target group or any of its ancestors.
//
// The evaluator is read-only and never fails an operation itself: it
// returns a structured result the caller turns into a rejection.
package grouppolicy

import (
	"context"
	"sort"

	groupadminstore "github.com/orgdesk/orgdesk/internal/app/store/groupadmins"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// AccessResult is an allow/deny decision with a human-readable reason
// for the deny case.
type AccessResult struct {
	Allowed bool
	Reason  string
}

var allowed = AccessResult{Allowed: true}

// IsGroupEditable reports whether the actor may mutate groupID or
// anything membership-related beneath it.
//
// The grant lookup is one recursive ancestor climb: start at groupID,
// walk up parent_id to the root, and count GroupAdmin rows across the
// whole path. Returns an error only when the database check itself
// fails or the group does not exist.
func IsGroupEditable(ctx context.Context, db *mongo.Database, actorRole string, actorID, groupID primitive.ObjectID) (AccessResult, error) {
	if actorRole == models.RoleAdmin {
		return allowed, nil
	}

	path, err := ancestorPath(ctx, db, groupID)
	if err != nil {
		return AccessResult{}, err
	}

	n, err := groupadminstore.New(db).CountOnPath(ctx, actorID, path)
	if err != nil {
		return AccessResult{}, err
	}
	if n > 0 {
		return allowed, nil
	}
	return AccessResult{
		Allowed: false,
		Reason:  "you do not have permission to edit this group tree",
	}, nil
}

// ancestorPath returns groupID plus every ancestor id up to the root.
func ancestorPath(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := db.Collection("groups").Aggregate(ctx, []bson.M{
		{"$match": bson.M{"_id": groupID}},
		{"$graphLookup": bson.M{
			"from":             "groups",
			"startWith":        "$parent_id",
			"connectFromField": "parent_id",
			"connectToField":   "_id",
			"as":               "ancestors",
		}},
		{"$project": bson.M{"_id": 1, "ancestors._id": 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, apperr.NotFound("group not found")
	}

	var row struct {
		ID        primitive.ObjectID `bson:"_id"`
		Ancestors []struct {
			ID primitive.ObjectID `bson:"_id"`
		} `bson:"ancestors"`
	}
	if err := cur.Decode(&row); err != nil {
		return nil, err
	}

	path := make([]primitive.ObjectID, 0, len(row.Ancestors)+1)
	path = append(path, row.ID)
	for _, a := range row.Ancestors {
		path = append(path, a.ID)
	}
	// Deterministic order keeps the $in query stable for tests.
	sort.Slice(path, func(i, j int) bool { return path[i].Hex() < path[j].Hex() })
	return path, nil
}

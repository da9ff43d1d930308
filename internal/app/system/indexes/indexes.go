// internal/app/system/indexes/indexes.go

// Package indexes reconciles the MongoDB indexes the stores rely on.
// EnsureAll is idempotent and runs once at startup, before the HTTP
// handler is built.
package indexes

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAll creates every index the engines depend on. Uniqueness
// constraints here back the duplicate checks in the stores; the
// partial organizational index backs the one-organizational-membership
// rule.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	groups := []mongo.IndexModel{
		// Sibling names are unique case-insensitively under a parent.
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		{Keys: bson.D{{Key: "name_ci", Value: 1}}},
	}
	if err := createAll(ctx, db.Collection("groups"), groups); err != nil {
		return err
	}

	memberships := []mongo.IndexModel{
		// One membership per (user, group).
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		// At most one non-archived organizational membership per user.
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"organizational": true,
					"archived":       false,
				}),
		},
		{Keys: bson.D{{Key: "group_id", Value: 1}}},
	}
	if err := createAll(ctx, db.Collection("memberships"), memberships); err != nil {
		return err
	}

	groupAdmins := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "group_id", Value: 1}}},
	}
	if err := createAll(ctx, db.Collection("group_admins"), groupAdmins); err != nil {
		return err
	}

	users := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "full_name_ci", Value: 1}}},
	}
	if err := createAll(ctx, db.Collection("users"), users); err != nil {
		return err
	}

	roles := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if err := createAll(ctx, db.Collection("roles"), roles); err != nil {
		return err
	}

	vacancies := []mongo.IndexModel{
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}}},
	}
	return createAll(ctx, db.Collection("vacancies"), vacancies)
}

func createAll(ctx context.Context, c *mongo.Collection, models []mongo.IndexModel) error {
	_, err := c.Indexes().CreateMany(ctx, models)
	return err
}

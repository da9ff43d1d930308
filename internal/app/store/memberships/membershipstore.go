// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/app/store/roles"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store enforces membership consistency: one membership per
// (user, group), at most one organizational membership per user, a
// 100% participation budget per user, and no edits to archived
// memberships. Archived state itself is only ever changed by the
// owning group's archive/unarchive transaction.
type Store struct {
	c      *mongo.Collection
	users  *mongo.Collection
	groups *mongo.Collection
	roles  *rolestore.Store
}

var ErrDuplicateMembership = errors.New("user is already a member of this group")

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("memberships"),
		users:  db.Collection("users"),
		groups: db.Collection("groups"),
		roles:  rolestore.New(db),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Membership{}, apperr.NotFound("membership not found")
		}
		return models.Membership{}, err
	}
	return m, nil
}

// Add creates a membership after checking the target group is not
// archived and, for organizational groups, that the user holds no
// other organizational membership anywhere in the forest.
func (s *Store) Add(ctx context.Context, userID, groupID primitive.ObjectID) (models.Membership, error) {
	var g models.Group
	if err := s.groups.FindOne(ctx, bson.M{"_id": groupID}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Membership{}, apperr.NotFound("group not found")
		}
		return models.Membership{}, err
	}
	if g.Archived {
		return models.Membership{}, apperr.BadRequest("cannot add member to archived group")
	}

	if err := s.users.FindOne(ctx, bson.M{"_id": userID}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Membership{}, apperr.NotFound("user not found")
		}
		return models.Membership{}, err
	}

	if g.Organizational {
		n, err := s.c.CountDocuments(ctx, bson.M{
			"user_id":        userID,
			"organizational": true,
			"archived":       false,
		})
		if err != nil {
			return models.Membership{}, err
		}
		if n > 0 {
			return models.Membership{}, apperr.BadRequest("user already has an organizational membership")
		}
	}

	now := time.Now().UTC()
	m := models.Membership{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		GroupID:        groupID,
		Organizational: g.Organizational,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

// Remove deletes the membership for (userID, groupID). Archived
// memberships cannot be removed directly; they disappear with their
// group.
func (s *Store) Remove(ctx context.Context, userID, groupID primitive.ObjectID) error {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "group_id": groupID}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFound("membership not found")
		}
		return err
	}
	if m.Archived {
		return apperr.BadRequest("cannot edit archived membership")
	}
	_, err = s.c.DeleteOne(ctx, bson.M{"_id": m.ID, "archived": false})
	return err
}

// RoleInput selects a role to attach: exactly one of ExistingID or
// NewName is set. NewName creates (or reuses) a named role inline.
type RoleInput struct {
	ExistingID *primitive.ObjectID
	NewName    string
}

func (in RoleInput) validate() error {
	if in.ExistingID == nil && in.NewName == "" {
		return apperr.BadRequest("role input requires an existing role id or a new role name")
	}
	if in.ExistingID != nil && in.NewName != "" {
		return apperr.BadRequest("role input cannot carry both an existing role id and a new role name")
	}
	return nil
}

// AddRole attaches a role to a membership.
func (s *Store) AddRole(ctx context.Context, membershipID primitive.ObjectID, in RoleInput) (models.Role, error) {
	if err := in.validate(); err != nil {
		return models.Role{}, err
	}

	m, err := s.GetByID(ctx, membershipID)
	if err != nil {
		return models.Role{}, err
	}
	if m.Archived {
		return models.Role{}, apperr.BadRequest("cannot edit archived membership")
	}

	var role models.Role
	if in.ExistingID != nil {
		role, err = s.roles.GetByID(ctx, *in.ExistingID)
	} else {
		role, err = s.roles.GetOrCreate(ctx, in.NewName)
	}
	if err != nil {
		return models.Role{}, err
	}

	// Conditioned on archived=false to close the race with a concurrent
	// group archive.
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": membershipID, "archived": false},
		bson.M{
			"$addToSet": bson.M{"role_ids": role.ID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return models.Role{}, err
	}
	if res.MatchedCount == 0 {
		return models.Role{}, apperr.BadRequest("cannot edit archived membership")
	}
	return role, nil
}

// RemoveRole detaches a role from a membership.
func (s *Store) RemoveRole(ctx context.Context, membershipID, roleID primitive.ObjectID) error {
	m, err := s.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Archived {
		return apperr.BadRequest("cannot edit archived membership")
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": membershipID, "archived": false},
		bson.M{
			"$pull": bson.M{"role_ids": roleID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.BadRequest("cannot edit archived membership")
	}
	return nil
}

// UpdatePercentage sets the participation share of a membership. The
// sum across the user's non-archived memberships may not exceed 100,
// so the maximum for this edit is 100 minus the other memberships' sum.
func (s *Store) UpdatePercentage(ctx context.Context, membershipID primitive.ObjectID, percentage int) error {
	if percentage < 0 || percentage > 100 {
		return apperr.BadRequest("percentage must be between 0 and 100")
	}

	m, err := s.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Archived {
		return apperr.BadRequest("cannot edit archived membership")
	}

	used, err := s.percentageUsed(ctx, m.UserID, m.ID)
	if err != nil {
		return err
	}
	if max := 100 - used; percentage > max {
		return apperr.BadRequest(fmt.Sprintf("percentage exceeds available budget: at most %d allowed", max))
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": membershipID, "archived": false},
		bson.M{"$set": bson.M{
			"percentage": percentage,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.BadRequest("cannot edit archived membership")
	}
	return nil
}

// ClearPercentage drops the participation share back to unset,
// releasing its part of the user's budget.
func (s *Store) ClearPercentage(ctx context.Context, membershipID primitive.ObjectID) error {
	m, err := s.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Archived {
		return apperr.BadRequest("cannot edit archived membership")
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": membershipID, "archived": false},
		bson.M{
			"$unset": bson.M{"percentage": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.BadRequest("cannot edit archived membership")
	}
	return nil
}

// percentageUsed sums the percentages of userID's non-archived
// memberships, excluding the one being edited.
func (s *Store) percentageUsed(ctx context.Context, userID, exceptID primitive.ObjectID) (int, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{
			"user_id":    userID,
			"_id":        bson.M{"$ne": exceptID},
			"archived":   false,
			"percentage": bson.M{"$ne": nil},
		}},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$percentage"}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var row struct {
			Total int `bson:"total"`
		}
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
		return row.Total, nil
	}
	return 0, cur.Err()
}

// ListByGroup returns a group's memberships. Archived memberships are
// excluded unless includeArchived is set.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, includeArchived bool) ([]models.Membership, error) {
	filter := bson.M{"group_id": groupID}
	if !includeArchived {
		filter["archived"] = false
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByGroups returns the non-archived memberships for a set of
// groups, used by the subtree member export.
func (s *Store) ListByGroups(ctx context.Context, groupIDs []primitive.ObjectID) ([]models.Membership, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{
		"group_id": bson.M{"$in": groupIDs},
		"archived": false,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns a user's non-archived memberships.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID, "archived": false})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByGroup returns the number of non-archived memberships in a group.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "archived": false})
}

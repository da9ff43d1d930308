// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	groupadminstore "github.com/orgdesk/orgdesk/internal/app/store/groupadmins"
	vacancystore "github.com/orgdesk/orgdesk/internal/app/store/vacancies"
	"github.com/orgdesk/orgdesk/internal/app/system/txn"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store owns the group forest and its consistency rules: no cycles,
// no mutations of archived nodes, archive/unarchive cascades to
// memberships, and guarded deletes. Each mutation runs its
// precondition reads and its writes inside one transaction, and
// single-document writes are additionally conditioned on
// archived=false so a concurrent archive loses cleanly.
type Store struct {
	db        *mongo.Database
	c         *mongo.Collection
	members   *mongo.Collection
	vacancies *vacancystore.Store
	admins    *groupadminstore.Store
	log       *zap.Logger
}

var ErrDuplicateGroupName = errors.New("a group with this name already exists under the same parent")

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:        db,
		c:         db.Collection("groups"),
		members:   db.Collection("memberships"),
		vacancies: vacancystore.New(db),
		admins:    groupadminstore.New(db),
		log:       log,
	}
}

// GetByID loads a group regardless of archived state. Mutating
// operations use this so they can distinguish "absent" from "archived".
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Group{}, apperr.NotFound("group not found")
		}
		return models.Group{}, err
	}
	return g, nil
}

// GetActiveByID loads a non-archived group. Archived groups are
// invisible to plain reads, so the result is NotFound either way.
func (s *Store) GetActiveByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	err := s.c.FindOne(ctx, bson.M{"_id": id, "archived": false}).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Group{}, apperr.NotFound("group not found")
		}
		return models.Group{}, err
	}
	return g, nil
}

// List returns non-archived groups, optionally filtered by a folded
// case-insensitive name prefix.
func (s *Store) List(ctx context.Context, search string) ([]models.Group, error) {
	filter := bson.M{"archived": false}
	if search != "" {
		q := text.Fold(search)
		filter["name_ci"] = bson.M{"$gte": q, "$lt": q + "￿"}
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new group. A fresh node cannot break the tree, so
// the only structural check is that the chosen parent exists and is
// not archived.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	if g.ParentID != nil {
		parent, err := s.GetByID(ctx, *g.ParentID)
		if err != nil {
			return models.Group{}, err
		}
		if parent.Archived {
			return models.Group{}, apperr.BadRequest("cannot create group under archived group")
		}
	}

	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.Archived = false
	g.CreatedAt = now
	g.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateGroupName
		}
		return models.Group{}, err
	}
	return g, nil
}

// EditPatch carries the updatable fields of a group. Nil pointers mean
// "leave unchanged".
type EditPatch struct {
	Name           *string
	Description    *string
	Organizational *bool
	Virtual        *bool
	SupervisorID   *primitive.ObjectID
}

// Edit applies a patch to a non-archived group. Flipping a group to
// organizational is refused while any current member already holds an
// organizational membership elsewhere (the exclusivity rule is global).
// The load, the exclusivity check, and the write all run inside one
// transaction; the write is additionally conditioned on archived=false
// so a concurrent archive loses cleanly.
func (s *Store) Edit(ctx context.Context, id primitive.ObjectID, patch EditPatch) (models.Group, error) {
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		g, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if g.Archived {
			return apperr.BadRequest("cannot edit archived group")
		}

		becomingOrganizational := patch.Organizational != nil && *patch.Organizational && !g.Organizational
		if becomingOrganizational {
			blocked, err := s.memberHoldsOtherOrganizational(ctx, id)
			if err != nil {
				return err
			}
			if blocked {
				return apperr.BadRequest("cannot make group organizational: a member already holds an organizational membership")
			}
		}

		set := bson.M{"updated_at": time.Now().UTC()}
		if patch.Name != nil {
			set["name"] = *patch.Name
			set["name_ci"] = text.Fold(*patch.Name)
		}
		if patch.Description != nil {
			set["description"] = *patch.Description
		}
		if patch.Organizational != nil {
			set["organizational"] = *patch.Organizational
		}
		if patch.Virtual != nil {
			set["virtual"] = *patch.Virtual
		}
		if patch.SupervisorID != nil {
			set["supervisor_id"] = *patch.SupervisorID
		}

		res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "archived": false}, bson.M{"$set": set})
		if err != nil {
			if wafflemongo.IsDup(err) {
				return ErrDuplicateGroupName
			}
			return err
		}
		if res.MatchedCount == 0 {
			return apperr.BadRequest("cannot edit archived group")
		}
		if patch.Organizational != nil && *patch.Organizational != g.Organizational {
			// Memberships mirror the flag so the exclusivity rule can
			// be checked with one indexed query.
			_, err = s.members.UpdateMany(ctx,
				bson.M{"group_id": id},
				bson.M{"$set": bson.M{"organizational": *patch.Organizational}})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return s.GetByID(ctx, id)
}

// memberHoldsOtherOrganizational reports whether any current
// non-archived member of groupID holds a non-archived organizational
// membership in some other group.
func (s *Store) memberHoldsOtherOrganizational(ctx context.Context, groupID primitive.ObjectID) (bool, error) {
	cur, err := s.members.Find(ctx, bson.M{"group_id": groupID, "archived": false})
	if err != nil {
		return false, err
	}
	defer cur.Close(ctx)

	var userIDs []primitive.ObjectID
	for cur.Next(ctx) {
		var m models.Membership
		if err := cur.Decode(&m); err != nil {
			return false, err
		}
		userIDs = append(userIDs, m.UserID)
	}
	if err := cur.Err(); err != nil {
		return false, err
	}
	if len(userIDs) == 0 {
		return false, nil
	}

	n, err := s.members.CountDocuments(ctx, bson.M{
		"user_id":        bson.M{"$in": userIDs},
		"group_id":       bson.M{"$ne": groupID},
		"organizational": true,
		"archived":       false,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Move re-parents a group. newParentID nil makes it a root. The move
// is refused when the group is archived, the target is archived, the
// target is the group itself, or the target sits anywhere below the
// group (which would close a cycle). The cycle check and the write run
// in one transaction, and both parent documents are touched inside it
// so two concurrent moves that would close a cycle between them
// write-conflict instead of both committing.
func (s *Store) Move(ctx context.Context, id primitive.ObjectID, newParentID *primitive.ObjectID) error {
	if newParentID != nil && *newParentID == id {
		return apperr.BadRequest("cannot move group inside itself")
	}

	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		g, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if g.Archived {
			return apperr.BadRequest("cannot move archived group")
		}

		if newParentID != nil {
			parent, err := s.GetByID(ctx, *newParentID)
			if err != nil {
				return err
			}
			if parent.Archived {
				return apperr.BadRequest("cannot move group into archived group")
			}
			// Walk the target's ancestor chain; finding the moving
			// group there means the target is one of its descendants.
			chain, err := s.AncestorIDs(ctx, *newParentID)
			if err != nil {
				return err
			}
			for _, aid := range chain {
				if aid == id {
					return apperr.BadRequest("cannot move group inside its child")
				}
			}
		}

		now := time.Now().UTC()
		update := bson.M{"$set": bson.M{"updated_at": now}}
		if newParentID != nil {
			update["$set"].(bson.M)["parent_id"] = *newParentID
		} else {
			update["$unset"] = bson.M{"parent_id": ""}
		}

		res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "archived": false}, update)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return apperr.BadRequest("cannot move archived group")
		}

		touch := bson.M{"$set": bson.M{"updated_at": now}}
		if g.ParentID != nil {
			if _, err := s.c.UpdateOne(ctx, bson.M{"_id": *g.ParentID}, touch); err != nil {
				return err
			}
		}
		if newParentID != nil {
			if _, err := s.c.UpdateOne(ctx, bson.M{"_id": *newParentID}, touch); err != nil {
				return err
			}
		}
		return nil
	})
}

// Archive marks a group archived and cascades to its memberships:
// organizational groups delete their memberships, everything else
// archives them. The children and vacancy guards run inside the same
// transaction as the cascade so a concurrent unarchive of a child
// cannot slip between check and write.
func (s *Store) Archive(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		g, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if g.Archived {
			return apperr.BadRequest("group is already archived")
		}

		children, err := s.c.CountDocuments(ctx, bson.M{"parent_id": id, "archived": false})
		if err != nil {
			return err
		}
		if children > 0 {
			return apperr.BadRequest("cannot archive group with children")
		}

		blocking, err := s.vacancies.CountBlocking(ctx, id)
		if err != nil {
			return err
		}
		if blocking > 0 {
			return apperr.BadRequest("cannot archive group with active vacancies")
		}

		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": id, "archived": false},
			bson.M{"$set": bson.M{"archived": true, "updated_at": time.Now().UTC()}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// Lost the race to a concurrent archive.
			return apperr.BadRequest("group is already archived")
		}

		if g.Organizational {
			_, err = s.members.DeleteMany(ctx, bson.M{"group_id": id})
			return err
		}
		_, err = s.members.UpdateMany(ctx,
			bson.M{"group_id": id, "archived": false},
			bson.M{"$set": bson.M{"archived": true, "updated_at": time.Now().UTC()}})
		return err
	})
}

// Unarchive reactivates a group and its memberships, refused while the
// parent is archived. The parent check is re-run inside the
// transaction so a concurrent parent archive cannot slip through.
func (s *Store) Unarchive(ctx context.Context, id primitive.ObjectID) error {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !g.Archived {
		return apperr.BadRequest("group is not archived")
	}

	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if g.ParentID != nil {
			parent, err := s.GetByID(ctx, *g.ParentID)
			if err != nil {
				return err
			}
			if parent.Archived {
				return apperr.BadRequest("cannot unarchive group with archived parent")
			}
		}

		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": id, "archived": true},
			bson.M{"$set": bson.M{"archived": false, "updated_at": time.Now().UTC()}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return apperr.BadRequest("group is not archived")
		}

		_, err = s.members.UpdateMany(ctx,
			bson.M{"group_id": id, "archived": true},
			bson.M{"$set": bson.M{"archived": false, "updated_at": time.Now().UTC()}})
		return err
	})
}

// Delete permanently removes a childless group along with its
// memberships, vacancies, and admin grants.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				return apperr.NotFound("group not found")
			}
			return err
		}

		// Archived children block deletion too.
		children, err := s.c.CountDocuments(ctx, bson.M{"parent_id": id})
		if err != nil {
			return err
		}
		if children > 0 {
			return apperr.BadRequest("cannot delete group with children")
		}

		if _, err := s.members.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
			return err
		}
		if _, err := s.vacancies.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		if _, err := s.admins.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return apperr.NotFound("group not found")
		}
		return nil
	})
}

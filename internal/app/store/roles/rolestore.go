// internal/app/store/roles/rolestore.go
package rolestore

import (
	"context"
	"time"

	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("roles")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Role, error) {
	var role models.Role
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&role); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Role{}, apperr.NotFound("role not found")
		}
		return models.Role{}, err
	}
	return role, nil
}

// GetOrCreate returns the role with the given name, creating it on
// first use. Names are matched case/diacritic-insensitively so "Lead"
// and "lead" are the same role.
func (s *Store) GetOrCreate(ctx context.Context, name string) (models.Role, error) {
	nameCI := text.Fold(name)

	after := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"name":       name,
			"name_ci":    nameCI,
			"created_at": time.Now().UTC(),
		},
	}

	var role models.Role
	err := s.c.FindOneAndUpdate(ctx, bson.M{"name_ci": nameCI}, update, after).Decode(&role)
	if err != nil {
		return models.Role{}, err
	}
	return role, nil
}

// ListByIDs returns the roles for the given ids, in no particular order.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var roles []models.Role
	if err := cur.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

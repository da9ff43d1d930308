// internal/app/store/vacancies/vacancystore.go
package vacancystore

import (
	"context"
	"time"

	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("vacancies")}
}

func (s *Store) Create(ctx context.Context, v models.Vacancy) (models.Vacancy, error) {
	switch v.Status {
	case "":
		v.Status = models.VacancyOpen
	case models.VacancyOpen, models.VacancyOnHold, models.VacancyClosed:
	default:
		return models.Vacancy{}, apperr.BadRequest("unknown vacancy status")
	}

	now := time.Now().UTC()
	v.ID = primitive.NewObjectID()
	v.CreatedAt = now
	v.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, v); err != nil {
		return models.Vacancy{}, err
	}
	return v, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Vacancy, error) {
	var v models.Vacancy
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Vacancy{}, apperr.NotFound("vacancy not found")
		}
		return models.Vacancy{}, err
	}
	return v, nil
}

// SetStatus moves a vacancy through its lifecycle (OPEN/ON_HOLD/CLOSED).
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, vstatus string) error {
	switch vstatus {
	case models.VacancyOpen, models.VacancyOnHold, models.VacancyClosed:
	default:
		return apperr.BadRequest("unknown vacancy status")
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     vstatus,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("vacancy not found")
	}
	return nil
}

// CountBlocking returns the number of vacancies that prevent groupID
// from being archived: non-archived and not CLOSED.
func (s *Store) CountBlocking(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"archived": false,
		"status":   bson.M{"$ne": models.VacancyClosed},
	})
}

// ListByGroup returns all vacancies attached to a group.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Vacancy, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Vacancy
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByGroup removes all vacancies for a group. Used when a group is
// hard-deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

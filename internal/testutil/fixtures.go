// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data. Documents
// are inserted directly, bypassing the stores, so store tests can
// arrange any starting state including ones the stores refuse to
// create.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert %s fixture: %v", coll, err)
	}
}

// GroupOpt mutates a group fixture before insertion.
type GroupOpt func(*models.Group)

// WithParent sets the parent group.
func WithParent(parent models.Group) GroupOpt {
	return func(g *models.Group) { g.ParentID = &parent.ID }
}

// Organizational marks the group as organizational.
func Organizational() GroupOpt {
	return func(g *models.Group) { g.Organizational = true }
}

// ArchivedGroup marks the group archived.
func ArchivedGroup() GroupOpt {
	return func(g *models.Group) { g.Archived = true }
}

// CreateGroup inserts a group with the given name.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, opts ...GroupOpt) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&g)
	}
	f.insert(ctx, "groups", g)
	return g
}

// CreateUser inserts an active user with the given name and role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      email,
		Role:       role,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", u)
	return u
}

// MembershipOpt mutates a membership fixture before insertion.
type MembershipOpt func(*models.Membership)

// WithPercentage sets the participation share.
func WithPercentage(p int) MembershipOpt {
	return func(m *models.Membership) { m.Percentage = &p }
}

// OrganizationalMembership marks the membership as belonging to an
// organizational group.
func OrganizationalMembership() MembershipOpt {
	return func(m *models.Membership) { m.Organizational = true }
}

// ArchivedMembership marks the membership archived.
func ArchivedMembership() MembershipOpt {
	return func(m *models.Membership) { m.Archived = true }
}

// WithRoles attaches role ids.
func WithRoles(roleIDs ...primitive.ObjectID) MembershipOpt {
	return func(m *models.Membership) { m.RoleIDs = roleIDs }
}

// CreateMembership inserts a membership joining user and group. The
// organizational mirror is taken from the group.
func (f *Fixtures) CreateMembership(ctx context.Context, user models.User, group models.Group, opts ...MembershipOpt) models.Membership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Membership{
		ID:             primitive.NewObjectID(),
		UserID:         user.ID,
		GroupID:        group.ID,
		Organizational: group.Organizational,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	f.insert(ctx, "memberships", m)
	return m
}

// CreateRole inserts a named role.
func (f *Fixtures) CreateRole(ctx context.Context, name string) models.Role {
	f.t.Helper()

	role := models.Role{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "roles", role)
	return role
}

// CreateVacancy inserts a vacancy on the group with the given status.
func (f *Fixtures) CreateVacancy(ctx context.Context, group models.Group, title, vstatus string) models.Vacancy {
	f.t.Helper()

	now := time.Now().UTC()
	v := models.Vacancy{
		ID:        primitive.NewObjectID(),
		GroupID:   group.ID,
		Title:     title,
		Status:    vstatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "vacancies", v)
	return v
}

// CreateGroupAdmin grants the user GroupAdmin on the group.
func (f *Fixtures) CreateGroupAdmin(ctx context.Context, user models.User, group models.Group) models.GroupAdmin {
	f.t.Helper()

	ga := models.GroupAdmin{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		GroupID:   group.ID,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "group_admins", ga)
	return ga
}

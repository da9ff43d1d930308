package membershipstore_test

import (
	"errors"
	"strings"
	"testing"

	membershipstore "github.com/orgdesk/orgdesk/internal/app/store/memberships"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Add(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Platform")
	u := fx.CreateUser(ctx, "Noa Lark", "noa@test.com", "user")

	m, err := store.Add(ctx, u.ID, g.ID)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if m.UserID != u.ID || m.GroupID != g.ID {
		t.Errorf("unexpected membership: %+v", m)
	}
	if m.Organizational {
		t.Error("expected non-organizational mirror for a plain group")
	}

	// The (user, group) pair is unique.
	if _, err := store.Add(ctx, u.ID, g.ID); !errors.Is(err, membershipstore.ErrDuplicateMembership) {
		t.Errorf("expected ErrDuplicateMembership, got %v", err)
	}
}

func TestStore_Add_ArchivedGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Retired", testutil.ArchivedGroup())
	u := fx.CreateUser(ctx, "Kim Teal", "kim@test.com", "user")

	_, err := store.Add(ctx, u.ID, g.ID)
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
	if !strings.Contains(apperr.MessageOf(err), "archived group") {
		t.Errorf("message: got %q", apperr.MessageOf(err))
	}
}

func TestStore_Add_OrganizationalExclusivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first := fx.CreateGroup(ctx, "Home Unit", testutil.Organizational())
	second := fx.CreateGroup(ctx, "Other Unit", testutil.Organizational())
	plain := fx.CreateGroup(ctx, "Book Club")
	u := fx.CreateUser(ctx, "Ira Dove", "ira@test.com", "user")

	if _, err := store.Add(ctx, u.ID, first.ID); err != nil {
		t.Fatalf("first organizational Add failed: %v", err)
	}

	// A second organizational membership is refused.
	_, err := store.Add(ctx, u.ID, second.ID)
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
	if !strings.Contains(apperr.MessageOf(err), "organizational membership") {
		t.Errorf("message: got %q", apperr.MessageOf(err))
	}

	// Non-organizational memberships stay unlimited.
	if _, err := store.Add(ctx, u.ID, plain.ID); err != nil {
		t.Fatalf("plain Add failed: %v", err)
	}
}

func TestStore_Remove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Ops")
	u := fx.CreateUser(ctx, "Gil Swan", "gil@test.com", "user")
	fx.CreateMembership(ctx, u, g)

	if err := store.Remove(ctx, u.ID, g.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	err := store.Remove(ctx, u.ID, g.ID)
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("expected NOT_FOUND on second remove, got %v", err)
	}
}

func TestStore_Remove_Archived(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Frozen")
	u := fx.CreateUser(ctx, "Uma Hart", "uma@test.com", "user")
	fx.CreateMembership(ctx, u, g, testutil.ArchivedMembership())

	err := store.Remove(ctx, u.ID, g.ID)
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
	if !strings.Contains(apperr.MessageOf(err), "archived membership") {
		t.Errorf("message: got %q", apperr.MessageOf(err))
	}
}

func TestStore_AddRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Design")
	u := fx.CreateUser(ctx, "Bo Wren", "bo@test.com", "user")
	m := fx.CreateMembership(ctx, u, g)

	// Create a role inline by name.
	lead, err := store.AddRole(ctx, m.ID, membershipstore.RoleInput{NewName: "Lead"})
	if err != nil {
		t.Fatalf("AddRole by name failed: %v", err)
	}
	if lead.Name != "Lead" {
		t.Errorf("role name: got %q, want %q", lead.Name, "Lead")
	}

	// The same name reuses the existing role document.
	again, err := store.AddRole(ctx, m.ID, membershipstore.RoleInput{NewName: "lead"})
	if err != nil {
		t.Fatalf("AddRole with same name failed: %v", err)
	}
	if again.ID != lead.ID {
		t.Errorf("expected role reuse, got %s and %s", lead.ID.Hex(), again.ID.Hex())
	}

	// Attach an existing role by id.
	boss := fx.CreateRole(ctx, "Boss")
	if _, err := store.AddRole(ctx, m.ID, membershipstore.RoleInput{ExistingID: &boss.ID}); err != nil {
		t.Fatalf("AddRole by id failed: %v", err)
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.RoleIDs) != 2 {
		t.Errorf("expected 2 roles, got %d", len(got.RoleIDs))
	}
}

func TestStore_AddRole_InputValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "QA")
	u := fx.CreateUser(ctx, "Vi Crane", "vi@test.com", "user")
	m := fx.CreateMembership(ctx, u, g)

	id := primitive.NewObjectID()
	cases := []struct {
		name string
		in   membershipstore.RoleInput
	}{
		{"empty", membershipstore.RoleInput{}},
		{"both set", membershipstore.RoleInput{ExistingID: &id, NewName: "Lead"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.AddRole(ctx, m.ID, tc.in)
			if apperr.CodeOf(err) != apperr.CodeBadRequest {
				t.Errorf("expected BAD_REQUEST, got %v", err)
			}
		})
	}

	// A missing existing role is NOT_FOUND.
	missing := primitive.NewObjectID()
	_, err := store.AddRole(ctx, m.ID, membershipstore.RoleInput{ExistingID: &missing})
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("expected NOT_FOUND for missing role, got %v", err)
	}
}

func TestStore_RemoveRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Support")
	u := fx.CreateUser(ctx, "Jo Reed", "jo@test.com", "user")
	role := fx.CreateRole(ctx, "On Call")
	m := fx.CreateMembership(ctx, u, g, testutil.WithRoles(role.ID))

	if err := store.RemoveRole(ctx, m.ID, role.ID); err != nil {
		t.Fatalf("RemoveRole failed: %v", err)
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.RoleIDs) != 0 {
		t.Errorf("expected no roles, got %v", got.RoleIDs)
	}
}

func TestStore_UpdatePercentage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateGroup(ctx, "Alpha")
	b := fx.CreateGroup(ctx, "Beta")
	u := fx.CreateUser(ctx, "Max Dale", "max@test.com", "user")
	first := fx.CreateMembership(ctx, u, a, testutil.WithPercentage(60))
	second := fx.CreateMembership(ctx, u, b)

	// 60 + 40 = 100, right at the budget.
	if err := store.UpdatePercentage(ctx, second.ID, 40); err != nil {
		t.Fatalf("UpdatePercentage to 40 failed: %v", err)
	}

	// 60 + 41 breaks the budget.
	err := store.UpdatePercentage(ctx, second.ID, 41)
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
	if !strings.Contains(apperr.MessageOf(err), "at most 40") {
		t.Errorf("message: got %q, want the remaining budget named", apperr.MessageOf(err))
	}

	// Raising a membership's own share only counts the others.
	if err := store.UpdatePercentage(ctx, first.ID, 100); apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Errorf("expected BAD_REQUEST for 100+40, got %v", err)
	}
	if err := store.UpdatePercentage(ctx, first.ID, 55); err != nil {
		t.Fatalf("UpdatePercentage within budget failed: %v", err)
	}

	// Out-of-range values are rejected outright.
	for _, p := range []int{-1, 101} {
		if err := store.UpdatePercentage(ctx, first.ID, p); apperr.CodeOf(err) != apperr.CodeBadRequest {
			t.Errorf("expected BAD_REQUEST for %d, got %v", p, err)
		}
	}
}

func TestStore_UpdatePercentage_IgnoresArchived(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateGroup(ctx, "Old Team")
	b := fx.CreateGroup(ctx, "New Team")
	u := fx.CreateUser(ctx, "Ada Moss", "ada@test.com", "user")
	fx.CreateMembership(ctx, u, a, testutil.WithPercentage(90), testutil.ArchivedMembership())
	m := fx.CreateMembership(ctx, u, b)

	// The archived 90 does not count against the budget.
	if err := store.UpdatePercentage(ctx, m.ID, 100); err != nil {
		t.Fatalf("UpdatePercentage failed: %v", err)
	}
}

func TestStore_ClearPercentage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateGroup(ctx, "Alpha")
	b := fx.CreateGroup(ctx, "Beta")
	u := fx.CreateUser(ctx, "Kim Vesper", "kim@test.com", "user")
	first := fx.CreateMembership(ctx, u, a, testutil.WithPercentage(60))
	second := fx.CreateMembership(ctx, u, b)

	if err := store.ClearPercentage(ctx, first.ID); err != nil {
		t.Fatalf("ClearPercentage failed: %v", err)
	}
	got, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Percentage != nil {
		t.Errorf("expected unset percentage, got %d", *got.Percentage)
	}

	// The cleared 60 no longer counts against the user's budget.
	if err := store.UpdatePercentage(ctx, second.ID, 100); err != nil {
		t.Fatalf("UpdatePercentage after clear failed: %v", err)
	}

	archived := fx.CreateMembership(ctx, fx.CreateUser(ctx, "Lee Gone", "lee@test.com", "user"), a,
		testutil.WithPercentage(10), testutil.ArchivedMembership())
	if err := store.ClearPercentage(ctx, archived.ID); apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Errorf("expected BAD_REQUEST for archived membership, got %v", err)
	}
}

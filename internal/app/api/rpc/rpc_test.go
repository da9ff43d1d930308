// internal/app/api/rpc/rpc_test.go
package rpc_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orgdesk/orgdesk/internal/app/api/rpc"
	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	userstore "github.com/orgdesk/orgdesk/internal/app/store/users"
	"github.com/orgdesk/orgdesk/internal/app/system/auditlog"
	"github.com/orgdesk/orgdesk/internal/app/system/auth"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"github.com/orgdesk/orgdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*rpc.Handler, http.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{Auth: "db", Admin: "db"})
	h := rpc.NewHandler(db, logger, auditLogger)
	return h, h.Routes(), db
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGroupCreate_RootRequiresAdmin(t *testing.T) {
	_, router, _ := newTestHandler(t)
	admin := testutil.AdminActor()

	body := map[string]any{"name": "Company"}

	// A plain user cannot create a root group.
	user := &auth.Actor{ID: primitive.NewObjectID().Hex(), Name: "Plain", Email: "p@test.com", Role: "user"}
	rec := do(router, testutil.NewJSONRequest(t, "POST", "/groups.create", body, user))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, http.StatusForbidden, rec.Body.String())
	}
	if code := testutil.ErrorCode(t, rec); code != "FORBIDDEN" {
		t.Errorf("error code: got %q, want FORBIDDEN", code)
	}

	// An admin can.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groups.create", body, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var created models.Group
	testutil.DecodeJSON(t, rec, &created)
	if created.Name != "Company" {
		t.Errorf("name: got %q, want %q", created.Name, "Company")
	}
}

func TestGroupEdit_PolicyClimb(t *testing.T) {
	_, router, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateGroup(ctx, "Company")
	division := fx.CreateGroup(ctx, "Division", testutil.WithParent(root))
	team := fx.CreateGroup(ctx, "Team", testutil.WithParent(division))

	granted := fx.CreateUser(ctx, "Dana Frost", "dana@test.com", "user")
	fx.CreateGroupAdmin(ctx, granted, division)
	ungranted := fx.CreateUser(ctx, "Eli Marsh", "eli@test.com", "user")

	body := map[string]any{"id": team.ID.Hex(), "description": "updated"}

	// The ancestor grant covers the team.
	rec := do(router, testutil.NewJSONRequest(t, "POST", "/groups.edit", body, testutil.ActorFor(granted)))
	if rec.Code != http.StatusOK {
		t.Fatalf("granted edit: got %d (body %s)", rec.Code, rec.Body.String())
	}

	// No grant, no access.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groups.edit", body, testutil.ActorFor(ungranted)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("ungranted edit: got %d, want 403", rec.Code)
	}

	// An edit event landed in the audit trail.
	n, err := db.Collection("audit_events").CountDocuments(ctx, map[string]any{"event_type": audit.EventGroupUpdated})
	if err != nil {
		t.Fatalf("count audit events: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 group_updated audit event, got %d", n)
	}
}

func TestGroupGet_NotFoundEnvelope(t *testing.T) {
	_, router, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	archived := fx.CreateGroup(ctx, "Ghost", testutil.ArchivedGroup())

	rec := do(router, testutil.NewJSONRequest(t, "GET", "/groups.get?id="+archived.ID.Hex(), nil, testutil.AdminActor()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404 (body %s)", rec.Code, rec.Body.String())
	}
	if code := testutil.ErrorCode(t, rec); code != "NOT_FOUND" {
		t.Errorf("error code: got %q, want NOT_FOUND", code)
	}
}

func TestRequireSignedIn(t *testing.T) {
	_, router, _ := newTestHandler(t)

	rec := do(router, testutil.NewJSONRequest(t, "GET", "/groups.list", nil, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestMembershipAddAndRoles(t *testing.T) {
	_, router, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Design")
	u := fx.CreateUser(ctx, "Bo Wren", "bo@test.com", "user")
	admin := testutil.AdminActor()

	rec := do(router, testutil.NewJSONRequest(t, "POST", "/memberships.add",
		map[string]any{"userId": u.ID.Hex(), "groupId": g.ID.Hex()}, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("add: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var m models.Membership
	testutil.DecodeJSON(t, rec, &m)

	// Attach a new role by name.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/memberships.addRole",
		map[string]any{"membershipId": m.ID.Hex(), "role": map[string]any{"name": "Lead"}}, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("addRole: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var role models.Role
	testutil.DecodeJSON(t, rec, &role)
	if role.Name != "Lead" {
		t.Errorf("role name: got %q", role.Name)
	}

	// Both selector arms set is a bad request.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/memberships.addRole",
		map[string]any{"membershipId": m.ID.Hex(), "role": map[string]any{"name": "Lead", "roleId": role.ID.Hex()}}, admin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("both arms: got %d, want 400", rec.Code)
	}

	// Percentage over budget is a bad request.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/memberships.updatePercentage",
		map[string]any{"membershipId": m.ID.Hex(), "percentage": 101}, admin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("percentage 101: got %d, want 400", rec.Code)
	}

	rec = do(router, testutil.NewJSONRequest(t, "POST", "/memberships.updatePercentage",
		map[string]any{"membershipId": m.ID.Hex(), "percentage": 80}, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("percentage 80: got %d (body %s)", rec.Code, rec.Body.String())
	}

	// A null percentage clears the share back to unset.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/memberships.updatePercentage",
		map[string]any{"membershipId": m.ID.Hex(), "percentage": nil}, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear percentage: got %d (body %s)", rec.Code, rec.Body.String())
	}
	cleared, err := db.Collection("memberships").CountDocuments(ctx,
		map[string]any{"_id": m.ID, "percentage": map[string]any{"$exists": false}})
	if err != nil {
		t.Fatalf("count cleared membership: %v", err)
	}
	if cleared != 1 {
		t.Error("expected percentage field unset after clear")
	}

	// Duplicate add surfaces as BAD_REQUEST, not an internal error.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/memberships.add",
		map[string]any{"userId": u.ID.Hex(), "groupId": g.ID.Hex()}, admin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate add: got %d, want 400", rec.Code)
	}
	if code := testutil.ErrorCode(t, rec); code != "BAD_REQUEST" {
		t.Errorf("error code: got %q, want BAD_REQUEST", code)
	}
}

func TestAuditList_AdminOnly(t *testing.T) {
	_, router, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "Vi Crane", "vi@test.com", "user")

	rec := do(router, testutil.NewJSONRequest(t, "GET", "/audit.list", nil, testutil.ActorFor(user)))
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin audit.list: got %d, want 403", rec.Code)
	}

	rec = do(router, testutil.NewJSONRequest(t, "GET", "/audit.list", nil, testutil.AdminActor()))
	if rec.Code != http.StatusOK {
		t.Errorf("admin audit.list: got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestLogin(t *testing.T) {
	_, router, db := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := auth.InitSessionStore("test-session-key-0123456789", "orgdesk-session", "", false, zap.NewNop()); err != nil {
		t.Fatalf("session store init failed: %v", err)
	}

	users := userstore.New(db)
	if _, err := users.Create(ctx, models.User{
		FullName: "Ada Moss",
		Email:    "ada@test.com",
		Role:     "user",
		Active:   true,
	}, "correct horse battery"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Wrong password is forbidden and leaves a failed-login event.
	rec := do(router, testutil.NewJSONRequest(t, "POST", "/auth.login",
		map[string]any{"email": "ada@test.com", "password": "wrong"}, nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong password: got %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}

	rec = do(router, testutil.NewJSONRequest(t, "POST", "/auth.login",
		map[string]any{"email": "ada@test.com", "password": "correct horse battery"}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d (body %s)", rec.Code, rec.Body.String())
	}
	if cookie := rec.Header().Get("Set-Cookie"); !strings.Contains(cookie, "orgdesk-session") {
		t.Errorf("expected session cookie, got %q", cookie)
	}

	n, err := db.Collection("audit_events").CountDocuments(ctx, map[string]any{"event_type": audit.EventLoginFailed})
	if err != nil {
		t.Fatalf("count audit events: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 login_failed event, got %d", n)
	}
}

func TestExportMembers(t *testing.T) {
	_, router, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateGroup(ctx, "Company")
	eng := fx.CreateGroup(ctx, "Engineering", testutil.WithParent(root))
	ada := fx.CreateUser(ctx, "Ada Moss", "ada@test.com", "user")
	lead := fx.CreateRole(ctx, "Lead")
	fx.CreateMembership(ctx, ada, eng, testutil.WithPercentage(60), testutil.WithRoles(lead.ID))

	// Inactive users stay out of the export.
	gone := fx.CreateUser(ctx, "Gone Person", "gone@test.com", "user")
	if _, err := db.Collection("users").UpdateByID(ctx, gone.ID, map[string]any{"$set": map[string]any{"active": false}}); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}
	fx.CreateMembership(ctx, gone, eng)

	rec := do(router, testutil.NewJSONRequest(t, "GET", "/groups.exportMembers?id="+root.ID.Hex(), nil, testutil.AdminActor()))
	if rec.Code != http.StatusOK {
		t.Fatalf("export: got %d (body %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "members-") || !strings.Contains(cd, ".csv") {
		t.Errorf("content disposition: got %q", cd)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "Ada Moss,Engineering") {
		t.Errorf("expected Ada's row, got %q", body)
	}
	if !strings.Contains(body, "Company / Engineering") {
		t.Errorf("expected breadcrumb path, got %q", body)
	}
	if strings.Contains(body, "Gone Person") {
		t.Errorf("expected inactive user excluded, got %q", body)
	}
}

func TestVacancyLifecycle(t *testing.T) {
	_, router, _ := newTestHandler(t)
	admin := testutil.AdminActor()

	rec := do(router, testutil.NewJSONRequest(t, "POST", "/groups.create",
		map[string]any{"name": "Hiring Team"}, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("create group: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var g models.Group
	testutil.DecodeJSON(t, rec, &g)

	rec = do(router, testutil.NewJSONRequest(t, "POST", "/vacancies.create",
		map[string]any{"groupId": g.ID.Hex(), "title": "Backend Engineer"}, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("create vacancy: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var v models.Vacancy
	testutil.DecodeJSON(t, rec, &v)
	if v.Status != models.VacancyOpen {
		t.Errorf("status: got %q, want %q", v.Status, models.VacancyOpen)
	}

	// The open vacancy blocks archiving.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groups.archive",
		map[string]any{"id": g.ID.Hex()}, admin))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("archive with open vacancy: got %d, want 400", rec.Code)
	}

	// Unknown statuses are refused.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/vacancies.setStatus",
		map[string]any{"vacancyId": v.ID.Hex(), "status": "PAUSED"}, admin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus status: got %d, want 400", rec.Code)
	}

	// Closing it unblocks the archive.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/vacancies.setStatus",
		map[string]any{"vacancyId": v.ID.Hex(), "status": models.VacancyClosed}, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("close vacancy: got %d (body %s)", rec.Code, rec.Body.String())
	}
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groups.archive",
		map[string]any{"id": g.ID.Hex()}, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("archive after close: got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestGroupAdminGrantAndRevoke(t *testing.T) {
	_, router, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateGroup(ctx, "Company")
	team := fx.CreateGroup(ctx, "Team", testutil.WithParent(root))
	u := fx.CreateUser(ctx, "Nia Reyes", "nia@test.com", "user")
	admin := testutil.AdminActor()

	grantBody := map[string]any{"userId": u.ID.Hex(), "groupId": root.ID.Hex()}

	// Only admins hand out grants.
	rec := do(router, testutil.NewJSONRequest(t, "POST", "/groupAdmins.grant", grantBody, testutil.ActorFor(u)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin grant: got %d, want 403", rec.Code)
	}

	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groupAdmins.grant", grantBody, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("grant: got %d (body %s)", rec.Code, rec.Body.String())
	}

	// The grant on the root covers the whole subtree.
	editBody := map[string]any{"id": team.ID.Hex(), "description": "now editable"}
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groups.edit", editBody, testutil.ActorFor(u)))
	if rec.Code != http.StatusOK {
		t.Fatalf("granted edit: got %d (body %s)", rec.Code, rec.Body.String())
	}

	// Granting twice surfaces as BAD_REQUEST.
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groupAdmins.grant", grantBody, admin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate grant: got %d, want 400", rec.Code)
	}

	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groupAdmins.revoke", grantBody, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke: got %d (body %s)", rec.Code, rec.Body.String())
	}
	rec = do(router, testutil.NewJSONRequest(t, "POST", "/groups.edit", editBody, testutil.ActorFor(u)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("edit after revoke: got %d, want 403", rec.Code)
	}
}

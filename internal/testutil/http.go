// internal/testutil/http.go
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orgdesk/orgdesk/internal/app/system/auth"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActorFor converts a user fixture into a session actor.
func ActorFor(u models.User) *auth.Actor {
	return &auth.Actor{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
}

// AdminActor returns an actor with the global admin role and a fresh
// id. Useful when the test does not care about the acting account.
func AdminActor() *auth.Actor {
	return &auth.Actor{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Admin",
		Email: "admin@test.com",
		Role:  "admin",
	}
}

// WithActor adds the actor to the request context, bypassing the
// session middleware.
func WithActor(r *http.Request, a *auth.Actor) *http.Request {
	return auth.WithTestActor(r, a)
}

// NewJSONRequest builds a request with the body JSON-encoded and the
// actor in context.
func NewJSONRequest(t *testing.T, method, target string, body any, a *auth.Actor) *http.Request {
	t.Helper()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if a != nil {
		req = WithActor(req, a)
	}
	return req
}

// DecodeJSON unmarshals the recorded response body into dst.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}

// ErrorCode extracts the machine code from an error envelope.
func ErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	DecodeJSON(t, rec, &env)
	return env.Error.Code
}

// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/orgdesk/orgdesk/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActorCtx returns the acting user's role (lowercased), ObjectID, and a
// found flag. If no actor is present in context or the actor ID is
// malformed, it returns "visitor", NilObjectID, false. Callers can
// trust that ok=true means a valid, authenticated actor.
func ActorCtx(r *http.Request) (role string, actorID primitive.ObjectID, ok bool) {
	a, ok := auth.CurrentActor(r)
	if !ok {
		return "visitor", primitive.NilObjectID, false
	}
	actorID, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		// Malformed actor ID in session - fail closed.
		return "visitor", primitive.NilObjectID, false
	}
	return strings.ToLower(a.Role), actorID, true
}

// IsAdmin reports whether the current request's actor is a global admin.
func IsAdmin(r *http.Request) bool {
	role, _, ok := ActorCtx(r)
	return ok && role == "admin"
}

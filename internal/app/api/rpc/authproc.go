// internal/app/api/rpc/authproc.go
package rpc

import (
	"net/http"

	"github.com/orgdesk/orgdesk/internal/app/system/auth"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Login verifies internal credentials and starts a session. Rejections
// are recorded in the auth audit trail with the reason; the client
// only ever sees a generic message.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeError(w, apperr.BadRequest("email and password are required"))
		return
	}

	u, err := h.Users.VerifyPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Audit.LoginFailed(r.Context(), req.Email, apperr.MessageOf(err))
		h.writeError(w, err)
		return
	}

	actor := &auth.Actor{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
	if err := auth.SignIn(w, r, actor); err != nil {
		h.writeError(w, apperr.Internal("could not start session", err))
		return
	}

	h.Audit.LoginSuccess(r.Context(), u.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		ID:    actor.ID,
		Name:  actor.Name,
		Email: actor.Email,
		Role:  actor.Role,
	})
}

// Logout ends the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	if err := auth.SignOut(w, r); err != nil {
		h.writeError(w, apperr.Internal("could not end session", err))
		return
	}
	if actor != nil {
		if id, err := primitive.ObjectIDFromHex(actor.ID); err == nil {
			h.Audit.Logout(r.Context(), id)
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// internal/app/api/rpc/respond.go
package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	groupstore "github.com/orgdesk/orgdesk/internal/app/store/groups"
	groupadminstore "github.com/orgdesk/orgdesk/internal/app/store/groupadmins"
	membershipstore "github.com/orgdesk/orgdesk/internal/app/store/memberships"
	userstore "github.com/orgdesk/orgdesk/internal/app/store/users"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// errorEnvelope is the wire shape of every failed procedure call.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeBadRequest:
		return http.StatusBadRequest
	case apperr.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a success payload.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps err onto the error envelope. Store sentinel errors
// count as bad requests; anything unrecognized is an internal error
// with details kept out of the response.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	msg := apperr.MessageOf(err)

	switch {
	case errors.Is(err, groupstore.ErrDuplicateGroupName),
		errors.Is(err, membershipstore.ErrDuplicateMembership),
		errors.Is(err, groupadminstore.ErrDuplicateGrant),
		errors.Is(err, userstore.ErrDuplicateEmail):
		code = apperr.CodeBadRequest
		msg = err.Error()
	}

	if code == apperr.CodeInternal {
		h.Log.Error("rpc internal error", zap.Error(err))
	}

	var env errorEnvelope
	env.Error.Code = string(code)
	env.Error.Message = msg
	writeJSON(w, statusFor(code), env)
}

// decode parses the JSON request body into dst.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.BadRequest("malformed request body")
	}
	return nil
}

// parseID converts a hex id from a request into an ObjectID.
func parseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("invalid " + what + " id")
	}
	return id, nil
}

// parseOptionalID converts an optional hex id; empty means nil.
func parseOptionalID(hex, what string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := parseID(hex, what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// internal/app/api/rpc/groupadmins.go
package rpc

import (
	"net/http"

	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"github.com/orgdesk/orgdesk/internal/app/system/authz"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
)

type groupAdminRequest struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

// GroupAdminGrant registers a user as an admin of a group's subtree.
// A grant decides who may edit the tree, so only global administrators
// can hand one out.
func (h *Handler) GroupAdminGrant(w http.ResponseWriter, r *http.Request) {
	if !authz.IsAdmin(r) {
		h.writeError(w, apperr.Forbidden("only administrators can manage group admin grants"))
		return
	}
	var req groupAdminRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	userID, err := parseID(req.UserID, "user")
	if err != nil {
		h.writeError(w, err)
		return
	}
	groupID, err := parseID(req.GroupID, "group")
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.Users.GetByID(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.Groups.GetActiveByID(r.Context(), groupID); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.GroupAdmins.Grant(r.Context(), userID, groupID); err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.MembershipEvent(r.Context(), audit.EventGroupAdminGranted, actorObjectID(r), groupID, userID, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"granted": true})
}

// GroupAdminRevoke removes a grant. Admin only, like Grant.
func (h *Handler) GroupAdminRevoke(w http.ResponseWriter, r *http.Request) {
	if !authz.IsAdmin(r) {
		h.writeError(w, apperr.Forbidden("only administrators can manage group admin grants"))
		return
	}
	var req groupAdminRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	userID, err := parseID(req.UserID, "user")
	if err != nil {
		h.writeError(w, err)
		return
	}
	groupID, err := parseID(req.GroupID, "group")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.GroupAdmins.Revoke(r.Context(), userID, groupID); err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.MembershipEvent(r.Context(), audit.EventGroupAdminRevoked, actorObjectID(r), groupID, userID, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

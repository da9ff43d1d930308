// internal/app/api/rpc/memberships.go
package rpc

import (
	"net/http"
	"strconv"

	membershipstore "github.com/orgdesk/orgdesk/internal/app/store/memberships"
	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type membershipAddRequest struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

// MembershipAdd puts a user into a group. Access is policed against
// the target group's tree.
func (h *Handler) MembershipAdd(w http.ResponseWriter, r *http.Request) {
	var req membershipAddRequest
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
	if err := h.requireGroupAccess(r, groupID); err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.Users.GetByID(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}

	m, err := h.Members.Add(r.Context(), userID, groupID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.MembershipEvent(r.Context(), audit.EventMemberAddedToGroup, actorObjectID(r), groupID, userID, nil)
	writeJSON(w, http.StatusOK, m)
}

// MembershipRemove takes a user out of a group.
func (h *Handler) MembershipRemove(w http.ResponseWriter, r *http.Request) {
	var req membershipAddRequest
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
	if err := h.requireGroupAccess(r, groupID); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.Members.Remove(r.Context(), userID, groupID); err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.MembershipEvent(r.Context(), audit.EventMemberRemovedFromGroup, actorObjectID(r), groupID, userID, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// roleSelector is the wire form of the role tagged union: exactly one
// of roleId (attach existing) or name (create inline) must be set.
type roleSelector struct {
	RoleID string `json:"roleId"`
	Name   string `json:"name"`
}

func (sel roleSelector) toInput() (membershipstore.RoleInput, error) {
	var in membershipstore.RoleInput
	if sel.RoleID != "" {
		id, err := parseID(sel.RoleID, "role")
		if err != nil {
			return in, err
		}
		in.ExistingID = &id
	}
	in.NewName = sel.Name
	return in, nil
}

type membershipRoleRequest struct {
	MembershipID string       `json:"membershipId"`
	Role         roleSelector `json:"role"`
}

// membershipForEdit loads the membership and polices its group's tree.
func (h *Handler) membershipForEdit(r *http.Request, membershipID primitive.ObjectID) (models.Membership, error) {
	m, err := h.Members.GetByID(r.Context(), membershipID)
	if err != nil {
		return models.Membership{}, err
	}
	if err := h.requireGroupAccess(r, m.GroupID); err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// MembershipAddRole attaches a role to a membership, creating the role
// on the fly when a name is given.
func (h *Handler) MembershipAddRole(w http.ResponseWriter, r *http.Request) {
	var req membershipRoleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	membershipID, err := parseID(req.MembershipID, "membership")
	if err != nil {
		h.writeError(w, err)
		return
	}
	m, err := h.membershipForEdit(r, membershipID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	in, err := req.Role.toInput()
	if err != nil {
		h.writeError(w, err)
		return
	}

	role, err := h.Members.AddRole(r.Context(), membershipID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.MembershipEvent(r.Context(), audit.EventRoleAddedToMembership, actorObjectID(r), m.GroupID, m.UserID,
		map[string]string{"role": role.Name, "role_id": role.ID.Hex()})
	writeJSON(w, http.StatusOK, role)
}

type membershipRemoveRoleRequest struct {
	MembershipID string `json:"membershipId"`
	RoleID       string `json:"roleId"`
}

// MembershipRemoveRole detaches a role from a membership.
func (h *Handler) MembershipRemoveRole(w http.ResponseWriter, r *http.Request) {
	var req membershipRemoveRoleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	membershipID, err := parseID(req.MembershipID, "membership")
	if err != nil {
		h.writeError(w, err)
		return
	}
	roleID, err := parseID(req.RoleID, "role")
	if err != nil {
		h.writeError(w, err)
		return
	}
	m, err := h.membershipForEdit(r, membershipID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.Members.RemoveRole(r.Context(), membershipID, roleID); err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.MembershipEvent(r.Context(), audit.EventRoleRemovedFromMembership, actorObjectID(r), m.GroupID, m.UserID,
		map[string]string{"role_id": roleID.Hex()})
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

type membershipPercentageRequest struct {
	MembershipID string `json:"membershipId"`
	Percentage   *int   `json:"percentage"`
}

// MembershipUpdatePercentage sets the participation share, holding the
// per-user sum at or under 100. A null (or omitted) percentage clears
// the share back to unset.
func (h *Handler) MembershipUpdatePercentage(w http.ResponseWriter, r *http.Request) {
	var req membershipPercentageRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	membershipID, err := parseID(req.MembershipID, "membership")
	if err != nil {
		h.writeError(w, err)
		return
	}
	m, err := h.membershipForEdit(r, membershipID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if req.Percentage != nil {
		err = h.Members.UpdatePercentage(r.Context(), membershipID, *req.Percentage)
	} else {
		err = h.Members.ClearPercentage(r.Context(), membershipID)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	details := map[string]string{"percentage": ""}
	if req.Percentage != nil {
		details["percentage"] = strconv.Itoa(*req.Percentage)
	}
	if m.Percentage != nil {
		details["previous"] = strconv.Itoa(*m.Percentage)
	}
	h.Audit.MembershipEvent(r.Context(), audit.EventMembershipPercentageUpdated, actorObjectID(r), m.GroupID, m.UserID, details)
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

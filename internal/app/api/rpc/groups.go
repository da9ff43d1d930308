// internal/app/api/rpc/groups.go
package rpc

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/orgdesk/orgdesk/internal/app/policy/grouppolicy"
	groupstore "github.com/orgdesk/orgdesk/internal/app/store/groups"
	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"github.com/orgdesk/orgdesk/internal/app/system/authz"
	"github.com/orgdesk/orgdesk/internal/app/system/htmlsanitize"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// groupFields flattens a group into the string map the audit diff
// works on. Pointer fields render as empty strings when nil so a
// cleared parent or supervisor shows up as a change.
func groupFields(g models.Group) map[string]string {
	f := map[string]string{
		"name":           g.Name,
		"description":    g.Description,
		"organizational": strconv.FormatBool(g.Organizational),
		"virtual":        strconv.FormatBool(g.Virtual),
		"archived":       strconv.FormatBool(g.Archived),
		"parent_id":      "",
		"supervisor_id":  "",
	}
	if g.ParentID != nil {
		f["parent_id"] = g.ParentID.Hex()
	}
	if g.SupervisorID != nil {
		f["supervisor_id"] = g.SupervisorID.Hex()
	}
	return f
}

// requireGroupAccess runs the policy check for a mutation touching
// groupID and converts a denial into a typed Forbidden error.
func (h *Handler) requireGroupAccess(r *http.Request, groupID primitive.ObjectID) error {
	role, actorID, ok := authz.ActorCtx(r)
	if !ok {
		return apperr.Forbidden("not signed in")
	}
	res, err := grouppolicy.IsGroupEditable(r.Context(), h.DB, role, actorID, groupID)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return apperr.Forbidden(res.Reason)
	}
	return nil
}

func actorObjectID(r *http.Request) primitive.ObjectID {
	_, id, _ := authz.ActorCtx(r)
	return id
}

type groupCreateRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	ParentID       string `json:"parentId"`
	SupervisorID   string `json:"supervisorId"`
	Organizational bool   `json:"organizational"`
	Virtual        bool   `json:"virtual"`
}

// GroupCreate creates a group. Root groups require the global admin
// role; child groups require edit access on the parent's tree.
func (h *Handler) GroupCreate(w http.ResponseWriter, r *http.Request) {
	var req groupCreateRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Name == "" {
		h.writeError(w, apperr.BadRequest("group name is required"))
		return
	}
	req.Name = htmlsanitize.PlainText(req.Name)
	req.Description = htmlsanitize.Sanitize(req.Description)
	parentID, err := parseOptionalID(req.ParentID, "parent group")
	if err != nil {
		h.writeError(w, err)
		return
	}
	supervisorID, err := parseOptionalID(req.SupervisorID, "supervisor")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if parentID == nil {
		if !authz.IsAdmin(r) {
			h.writeError(w, apperr.Forbidden("only administrators can create root groups"))
			return
		}
	} else if err := h.requireGroupAccess(r, *parentID); err != nil {
		h.writeError(w, err)
		return
	}

	g, err := h.Groups.Create(r.Context(), models.Group{
		Name:           req.Name,
		Description:    req.Description,
		ParentID:       parentID,
		SupervisorID:   supervisorID,
		Organizational: req.Organizational,
		Virtual:        req.Virtual,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.GroupEvent(r.Context(), audit.EventGroupCreated, actorObjectID(r), g.ID, nil, groupFields(g))
	writeJSON(w, http.StatusOK, g)
}

type groupEditRequest struct {
	ID             string  `json:"id"`
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Organizational *bool   `json:"organizational"`
	Virtual        *bool   `json:"virtual"`
	SupervisorID   *string `json:"supervisorId"`
}

// GroupEdit patches a group's fields. Moving lives in groups.move;
// archived state changes live in groups.archive/unarchive.
func (h *Handler) GroupEdit(w http.ResponseWriter, r *http.Request) {
	var req groupEditRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	id, err := parseID(req.ID, "group")
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireGroupAccess(r, id); err != nil {
		h.writeError(w, err)
		return
	}

	before, err := h.Groups.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if req.Name != nil {
		clean := htmlsanitize.PlainText(*req.Name)
		if clean == "" {
			h.writeError(w, apperr.BadRequest("group name is required"))
			return
		}
		req.Name = &clean
	}
	if req.Description != nil {
		clean := htmlsanitize.Sanitize(*req.Description)
		req.Description = &clean
	}

	patch := groupstore.EditPatch{
		Name:           req.Name,
		Description:    req.Description,
		Organizational: req.Organizational,
		Virtual:        req.Virtual,
	}
	if req.SupervisorID != nil {
		sup, err := parseOptionalID(*req.SupervisorID, "supervisor")
		if err != nil {
			h.writeError(w, err)
			return
		}
		if sup == nil {
			// Empty string clears the supervisor.
			var nilID primitive.ObjectID
			sup = &nilID
		}
		patch.SupervisorID = sup
	}

	g, err := h.Groups.Edit(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.GroupEvent(r.Context(), audit.EventGroupUpdated, actorObjectID(r), g.ID, groupFields(before), groupFields(g))
	writeJSON(w, http.StatusOK, g)
}

type groupMoveRequest struct {
	ID          string `json:"id"`
	NewParentID string `json:"newParentId"`
}

// GroupMove reparents a group. The actor needs edit access on both the
// group's current tree and the destination tree.
func (h *Handler) GroupMove(w http.ResponseWriter, r *http.Request) {
	var req groupMoveRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	id, err := parseID(req.ID, "group")
	if err != nil {
		h.writeError(w, err)
		return
	}
	newParentID, err := parseOptionalID(req.NewParentID, "parent group")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.requireGroupAccess(r, id); err != nil {
		h.writeError(w, err)
		return
	}
	if newParentID == nil {
		if !authz.IsAdmin(r) {
			h.writeError(w, apperr.Forbidden("only administrators can move groups to the root"))
			return
		}
	} else if err := h.requireGroupAccess(r, *newParentID); err != nil {
		h.writeError(w, err)
		return
	}

	before, err := h.Groups.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Groups.Move(r.Context(), id, newParentID); err != nil {
		h.writeError(w, err)
		return
	}

	after := before
	after.ParentID = newParentID
	h.Audit.GroupEvent(r.Context(), audit.EventGroupMoved, actorObjectID(r), id, groupFields(before), groupFields(after))
	writeJSON(w, http.StatusOK, map[string]bool{"moved": true})
}

type groupIDRequest struct {
	ID string `json:"id"`
}

func (h *Handler) groupIDFromBody(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	var req groupIDRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return primitive.NilObjectID, false
	}
	id, err := parseID(req.ID, "group")
	if err != nil {
		h.writeError(w, err)
		return primitive.NilObjectID, false
	}
	if err := h.requireGroupAccess(r, id); err != nil {
		h.writeError(w, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

// GroupArchive archives a leaf group and cascades onto its memberships.
func (h *Handler) GroupArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupIDFromBody(w, r)
	if !ok {
		return
	}
	if err := h.Groups.Archive(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.Audit.GroupEvent(r.Context(), audit.EventGroupArchived, actorObjectID(r), id,
		map[string]string{"archived": "false"}, map[string]string{"archived": "true"})
	writeJSON(w, http.StatusOK, map[string]bool{"archived": true})
}

// GroupUnarchive restores an archived group and its cascaded
// memberships.
func (h *Handler) GroupUnarchive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupIDFromBody(w, r)
	if !ok {
		return
	}
	if err := h.Groups.Unarchive(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.Audit.GroupEvent(r.Context(), audit.EventGroupUnarchived, actorObjectID(r), id,
		map[string]string{"archived": "true"}, map[string]string{"archived": "false"})
	writeJSON(w, http.StatusOK, map[string]bool{"unarchived": true})
}

// GroupDelete permanently removes a childless group and everything
// attached to it.
func (h *Handler) GroupDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupIDFromBody(w, r)
	if !ok {
		return
	}
	if err := h.Groups.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.Audit.GroupEvent(r.Context(), audit.EventGroupDeleted, actorObjectID(r), id, nil, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GroupGet returns one non-archived group by id.
func (h *Handler) GroupGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"), "group")
	if err != nil {
		h.writeError(w, err)
		return
	}
	g, err := h.Groups.GetActiveByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GroupList returns non-archived groups, optionally filtered by a
// case-insensitive name prefix.
func (h *Handler) GroupList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Groups.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// GroupBreadcrumbs returns the root-first ancestor chain for a group.
func (h *Handler) GroupBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"), "group")
	if err != nil {
		h.writeError(w, err)
		return
	}
	chain, err := h.Groups.Breadcrumbs(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"breadcrumbs": chain})
}

type hierarchyNode struct {
	Group    models.Group    `json:"group"`
	Children []hierarchyNode `json:"children"`
}

func buildHierarchyNode(h *groupstore.Hierarchy, id primitive.ObjectID) hierarchyNode {
	node := hierarchyNode{Group: h.Nodes[id], Children: []hierarchyNode{}}
	kids := append([]primitive.ObjectID(nil), h.Children[id]...)
	sort.Slice(kids, func(i, j int) bool {
		return h.Nodes[kids[i]].NameCI < h.Nodes[kids[j]].NameCI
	})
	for _, childID := range kids {
		node.Children = append(node.Children, buildHierarchyNode(h, childID))
	}
	return node
}

// GroupHierarchy returns the full non-archived subtree rooted at id,
// children sorted by name.
func (h *Handler) GroupHierarchy(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"), "group")
	if err != nil {
		h.writeError(w, err)
		return
	}
	tree, err := h.Groups.GetHierarchy(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildHierarchyNode(tree, tree.RootID))
}

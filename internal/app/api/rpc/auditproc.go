// internal/app/api/rpc/auditproc.go
package rpc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"github.com/orgdesk/orgdesk/internal/app/system/authz"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
)

// AuditList returns audit events newest-first. Admin only.
//
// Query parameters: actorId, groupId, category, eventType, start, end
// (RFC 3339), limit, offset. All optional.
func (h *Handler) AuditList(w http.ResponseWriter, r *http.Request) {
	if !authz.IsAdmin(r) {
		h.writeError(w, apperr.Forbidden("only administrators can view the audit trail"))
		return
	}

	q := r.URL.Query()
	var filter audit.QueryFilter
	var err error

	if filter.ActorID, err = parseOptionalID(q.Get("actorId"), "actor"); err != nil {
		h.writeError(w, err)
		return
	}
	if filter.GroupID, err = parseOptionalID(q.Get("groupId"), "group"); err != nil {
		h.writeError(w, err)
		return
	}
	filter.Category = q.Get("category")
	filter.EventType = q.Get("eventType")

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, apperr.BadRequest("invalid start time"))
			return
		}
		filter.StartTime = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, apperr.BadRequest("invalid end time"))
			return
		}
		filter.EndTime = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			h.writeError(w, apperr.BadRequest("invalid limit"))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			h.writeError(w, apperr.BadRequest("invalid offset"))
			return
		}
		filter.Offset = n
	}

	events, err := h.AuditStore.Query(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

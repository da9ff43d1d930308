// internal/app/api/rpc/vacancies.go
package rpc

import (
	"net/http"

	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"github.com/orgdesk/orgdesk/internal/app/system/htmlsanitize"
	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/domain/models"
)

type vacancyCreateRequest struct {
	GroupID string `json:"groupId"`
	Title   string `json:"title"`
	Status  string `json:"status"`
}

// VacancyCreate opens a position on a group. Status defaults to OPEN.
// While the group has any vacancy that is not CLOSED, it cannot be
// archived.
func (h *Handler) VacancyCreate(w http.ResponseWriter, r *http.Request) {
	var req vacancyCreateRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	groupID, err := parseID(req.GroupID, "group")
	if err != nil {
		h.writeError(w, err)
		return
	}
	title := htmlsanitize.PlainText(req.Title)
	if title == "" {
		h.writeError(w, apperr.BadRequest("title is required"))
		return
	}
	if err := h.requireGroupAccess(r, groupID); err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.Groups.GetActiveByID(r.Context(), groupID); err != nil {
		h.writeError(w, err)
		return
	}

	v, err := h.Vacancies.Create(r.Context(), models.Vacancy{
		GroupID: groupID,
		Title:   title,
		Status:  req.Status,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.GroupEvent(r.Context(), audit.EventVacancyCreated, actorObjectID(r), groupID, nil,
		map[string]string{"title": v.Title, "status": v.Status})
	writeJSON(w, http.StatusOK, v)
}

type vacancyStatusRequest struct {
	VacancyID string `json:"vacancyId"`
	Status    string `json:"status"`
}

// VacancySetStatus moves a vacancy through its OPEN/ON_HOLD/CLOSED
// lifecycle. Closing the last open vacancy is what unblocks archiving
// the group.
func (h *Handler) VacancySetStatus(w http.ResponseWriter, r *http.Request) {
	var req vacancyStatusRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	vacancyID, err := parseID(req.VacancyID, "vacancy")
	if err != nil {
		h.writeError(w, err)
		return
	}
	v, err := h.Vacancies.GetByID(r.Context(), vacancyID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireGroupAccess(r, v.GroupID); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.Vacancies.SetStatus(r.Context(), vacancyID, req.Status); err != nil {
		h.writeError(w, err)
		return
	}

	h.Audit.GroupEvent(r.Context(), audit.EventVacancyStatusChanged, actorObjectID(r), v.GroupID,
		map[string]string{"status": v.Status},
		map[string]string{"status": req.Status})
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

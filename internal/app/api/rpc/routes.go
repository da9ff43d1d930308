// internal/app/api/rpc/routes.go
package rpc

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orgdesk/orgdesk/internal/app/system/auth"
)

// Routes mounts one route per procedure. Reads are GETs with query
// parameters; mutations are POSTs with JSON bodies. Everything except
// auth.login requires a signed-in actor.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth.login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)

		r.Post("/auth.logout", h.Logout)

		r.Get("/groups.get", h.GroupGet)
		r.Get("/groups.list", h.GroupList)
		r.Get("/groups.breadcrumbs", h.GroupBreadcrumbs)
		r.Get("/groups.hierarchy", h.GroupHierarchy)
		r.Get("/groups.exportMembers", h.ExportMembers)
		r.Post("/groups.create", h.GroupCreate)
		r.Post("/groups.edit", h.GroupEdit)
		r.Post("/groups.move", h.GroupMove)
		r.Post("/groups.archive", h.GroupArchive)
		r.Post("/groups.unarchive", h.GroupUnarchive)
		r.Post("/groups.delete", h.GroupDelete)

		r.Post("/memberships.add", h.MembershipAdd)
		r.Post("/memberships.remove", h.MembershipRemove)
		r.Post("/memberships.addRole", h.MembershipAddRole)
		r.Post("/memberships.removeRole", h.MembershipRemoveRole)
		r.Post("/memberships.updatePercentage", h.MembershipUpdatePercentage)

		r.Post("/vacancies.create", h.VacancyCreate)
		r.Post("/vacancies.setStatus", h.VacancySetStatus)

		r.Post("/groupAdmins.grant", h.GroupAdminGrant)
		r.Post("/groupAdmins.revoke", h.GroupAdminRevoke)

		r.Get("/audit.list", h.AuditList)
	})

	return r
}

// internal/app/api/rpc/export.go
package rpc

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/orgdesk/orgdesk/internal/app/system/csvutil"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ExportMembers streams a CSV of every active member in the subtree
// rooted at the given group: one row per (user, group) membership,
// walked depth-first with children in name order.
func (h *Handler) ExportMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rootID, err := parseID(r.URL.Query().Get("id"), "group")
	if err != nil {
		h.writeError(w, err)
		return
	}

	tree, err := h.Groups.GetHierarchy(ctx, rootID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	memberships, err := h.Members.ListByGroups(ctx, tree.GroupIDs())
	if err != nil {
		h.writeError(w, err)
		return
	}
	byGroup := make(map[primitive.ObjectID][]models.Membership)
	userIDSet := make(map[primitive.ObjectID]struct{})
	roleIDSet := make(map[primitive.ObjectID]struct{})
	for _, m := range memberships {
		byGroup[m.GroupID] = append(byGroup[m.GroupID], m)
		userIDSet[m.UserID] = struct{}{}
		for _, rid := range m.RoleIDs {
			roleIDSet[rid] = struct{}{}
		}
	}

	users, err := h.Users.ListByIDs(ctx, setToSlice(userIDSet))
	if err != nil {
		h.writeError(w, err)
		return
	}

	roleNames := make(map[primitive.ObjectID]string)
	roles, err := h.Roles.ListByIDs(ctx, setToSlice(roleIDSet))
	if err != nil {
		h.writeError(w, err)
		return
	}
	for _, role := range roles {
		roleNames[role.ID] = role.Name
	}

	paths := make(map[primitive.ObjectID][]string)
	for id := range tree.Nodes {
		chain, err := h.Groups.Breadcrumbs(ctx, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		names := make([]string, 0, len(chain))
		for _, g := range chain {
			names = append(names, g.Name)
		}
		paths[id] = names
	}

	// Group names outside the subtree, looked up lazily for the
	// supplemental-positions column.
	groupName := func(id primitive.ObjectID) (string, error) {
		if g, ok := tree.Nodes[id]; ok {
			return g.Name, nil
		}
		g, err := h.Groups.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return g.Name, nil
	}

	var rows []csvutil.MemberRow
	var walkErr error
	tree.Walk(func(g models.Group) {
		if walkErr != nil {
			return
		}
		ms := byGroup[g.ID]
		sort.Slice(ms, func(i, j int) bool {
			return users[ms[i].UserID].FullNameCI < users[ms[j].UserID].FullNameCI
		})
		for _, m := range ms {
			u, ok := users[m.UserID]
			if !ok || !u.Active {
				continue
			}

			others, err := h.Members.ListByUser(ctx, m.UserID)
			if err != nil {
				walkErr = err
				return
			}
			var supplemental []string
			for _, om := range others {
				if om.GroupID == m.GroupID {
					continue
				}
				name, err := groupName(om.GroupID)
				if err != nil {
					walkErr = err
					return
				}
				supplemental = append(supplemental, name)
			}
			sort.Strings(supplemental)

			var roleList []string
			for _, rid := range m.RoleIDs {
				if name, ok := roleNames[rid]; ok {
					roleList = append(roleList, name)
				}
			}
			sort.Strings(roleList)

			pct := ""
			if m.Percentage != nil {
				pct = strconv.Itoa(*m.Percentage)
			}

			rows = append(rows, csvutil.MemberRow{
				Name:         u.FullName,
				OrgUnit:      g.Name,
				Supplemental: supplemental,
				Email:        u.Email,
				Roles:        roleList,
				Percentage:   pct,
				Path:         paths[g.ID],
			})
		}
	})
	if walkErr != nil {
		h.writeError(w, walkErr)
		return
	}

	filename := fmt.Sprintf("members-%s.csv", uuid.New().String()[:8])
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := csvutil.WriteMembers(w, rows); err != nil {
		h.Log.Error("csv export write failed", zap.Error(err))
	}
}

func setToSlice(set map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

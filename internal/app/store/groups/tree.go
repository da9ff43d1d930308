// internal/app/store/groups/tree.go
package groupstore

import (
	"context"
	"sort"

	"github.com/orgdesk/orgdesk/internal/domain/apperr"
	"github.com/orgdesk/orgdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Breadcrumbs returns the root-first ancestor chain of a group,
// ending with the group itself. The climb is a $graphLookup over
// parent_id (the storage engine's recursive-query capability).
func (s *Store) Breadcrumbs(ctx context.Context, id primitive.ObjectID) ([]models.Group, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"_id": id}},
		{"$graphLookup": bson.M{
			"from":             "groups",
			"startWith":        "$parent_id",
			"connectFromField": "parent_id",
			"connectToField":   "_id",
			"as":               "ancestors",
			"depthField":       "depth",
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, apperr.NotFound("group not found")
	}

	var row struct {
		models.Group `bson:",inline"`
		Ancestors    []struct {
			models.Group `bson:",inline"`
			Depth        int64 `bson:"depth"`
		} `bson:"ancestors"`
	}
	if err := cur.Decode(&row); err != nil {
		return nil, err
	}

	// depth 0 is the immediate parent; the root has the largest depth.
	sort.Slice(row.Ancestors, func(i, j int) bool {
		return row.Ancestors[i].Depth > row.Ancestors[j].Depth
	})

	out := make([]models.Group, 0, len(row.Ancestors)+1)
	for _, a := range row.Ancestors {
		out = append(out, a.Group)
	}
	out = append(out, row.Group)
	return out, nil
}

// AncestorIDs returns the ids of the group's ancestor chain including
// the group itself, in no particular order. Both the move cycle check
// and the policy evaluator's admin-grant climb use it.
func (s *Store) AncestorIDs(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	crumbs, err := s.Breadcrumbs(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(crumbs))
	for _, g := range crumbs {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// Hierarchy is the non-archived descendant set of a root group plus
// its parent/child adjacency.
type Hierarchy struct {
	RootID   primitive.ObjectID
	Nodes    map[primitive.ObjectID]models.Group
	Children map[primitive.ObjectID][]primitive.ObjectID
}

// GroupIDs returns the ids of every group in the hierarchy, root
// included, in no particular order.
func (h *Hierarchy) GroupIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(h.Nodes))
	for id := range h.Nodes {
		ids = append(ids, id)
	}
	return ids
}

// Walk visits the hierarchy depth-first from the root, children in
// name order, calling fn for each group.
func (h *Hierarchy) Walk(fn func(g models.Group)) {
	var visit func(id primitive.ObjectID)
	visit = func(id primitive.ObjectID) {
		g, ok := h.Nodes[id]
		if !ok {
			return
		}
		fn(g)
		kids := append([]primitive.ObjectID(nil), h.Children[id]...)
		sort.Slice(kids, func(i, j int) bool {
			return h.Nodes[kids[i]].NameCI < h.Nodes[kids[j]].NameCI
		})
		for _, kid := range kids {
			visit(kid)
		}
	}
	visit(h.RootID)
}

// GetHierarchy collects all non-archived descendants of rootID
// (inclusive). An archived or missing root is NotFound.
func (s *Store) GetHierarchy(ctx context.Context, rootID primitive.ObjectID) (*Hierarchy, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"_id": rootID, "archived": false}},
		{"$graphLookup": bson.M{
			"from":                    "groups",
			"startWith":               "$_id",
			"connectFromField":        "_id",
			"connectToField":          "parent_id",
			"as":                      "descendants",
			"restrictSearchWithMatch": bson.M{"archived": false},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, apperr.NotFound("group not found")
	}

	var row struct {
		models.Group `bson:",inline"`
		Descendants  []models.Group `bson:"descendants"`
	}
	if err := cur.Decode(&row); err != nil {
		return nil, err
	}

	h := &Hierarchy{
		RootID:   rootID,
		Nodes:    make(map[primitive.ObjectID]models.Group, len(row.Descendants)+1),
		Children: make(map[primitive.ObjectID][]primitive.ObjectID),
	}
	h.Nodes[row.Group.ID] = row.Group
	for _, d := range row.Descendants {
		h.Nodes[d.ID] = d
	}
	for id, g := range h.Nodes {
		if id == rootID || g.ParentID == nil {
			continue
		}
		if _, inSubtree := h.Nodes[*g.ParentID]; inSubtree {
			h.Children[*g.ParentID] = append(h.Children[*g.ParentID], id)
		}
	}
	return h, nil
}

// internal/app/system/csvutil/members.go

// Package csvutil builds the member-export CSV. encoding/csv handles
// the quoting rules (fields containing the separator or a quote are
// wrapped in quotes with internal quotes doubled).
package csvutil

import (
	"encoding/csv"
	"io"
	"strings"
)

// memberHeader is the header row of the member export.
var memberHeader = []string{
	"Name",
	"Org unit",
	"Supplemental positions",
	"Email",
	"Roles",
	"Percentage",
	"Path",
}

// MemberRow is one exported member-in-group line.
type MemberRow struct {
	Name string
	// OrgUnit is the name of the group this membership belongs to.
	OrgUnit string
	// Supplemental lists the user's other non-archived group names.
	Supplemental []string
	Email        string
	Roles        []string
	// Percentage is the participation share as text; empty when unset.
	Percentage string
	// Path is the root-first breadcrumb chain of the group.
	Path []string
}

// WriteMembers writes the header and rows to w in CSV form.
func WriteMembers(w io.Writer, rows []MemberRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(memberHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Name,
			r.OrgUnit,
			strings.Join(r.Supplemental, ", "),
			r.Email,
			strings.Join(r.Roles, ", "),
			r.Percentage,
			strings.Join(r.Path, " / "),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize strips dangerous markup from user-supplied text.
// Group descriptions allow basic formatting; names and role labels are
// stripped to plain text.
package htmlsanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize keeps user-generated-content markup (paragraphs, emphasis,
// links) and removes scripts and event handlers.
func Sanitize(s string) string {
	return ugc.Sanitize(s)
}

// PlainText removes all markup, returning text only.
func PlainText(s string) string {
	return strict.Sanitize(s)
}

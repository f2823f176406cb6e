// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize strips dangerous markup from user-supplied rich text
// (group and recipe descriptions, moderation rejection reasons) before it is
// persisted. Formatting tags and safe links survive; scripts, event handler
// attributes, and javascript: URLs do not.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

var policy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	return p
}()

var strict = bluemonday.StrictPolicy()

// Sanitize returns s with unsafe HTML removed, preserving user-generated
// formatting (paragraphs, emphasis, lists, links).
func Sanitize(s string) string {
	return policy.Sanitize(s)
}

// PlainText strips all markup from s. Used for fields that are plain text by
// contract, such as group names and recipe titles.
func PlainText(s string) string {
	return strict.Sanitize(s)
}

package ticket

import (
	"strings"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/zendesk"
)

// ShouldPost reports whether the candidate note body is absent from the
// ticket's audit log. The comparison is exact trimmed byte equality by
// design: card rendering is deterministic per review state, so any real
// content change produces a non-matching body and gets posted, while a
// repeated delivery of the same state matches and is suppressed.
func ShouldPost(audits []zendesk.Audit, body string) bool {
	want := strings.TrimSpace(body)
	for _, audit := range audits {
		for _, event := range audit.Events {
			if event.Type != zendesk.EventTypeComment {
				continue
			}
			if strings.TrimSpace(event.Body) == want {
				return false
			}
		}
	}
	return true
}

// LatestPrivateComment returns the comment id of the most recent private
// note in the audit log. Fix mode overwrites this comment in place,
// deliberately bypassing ShouldPost.
func LatestPrivateComment(audits []zendesk.Audit) (int64, bool) {
	var id int64
	found := false
	for _, audit := range audits {
		for _, event := range audit.Events {
			if event.Type == zendesk.EventTypeComment && !event.Public {
				id = event.ID
				found = true
			}
		}
	}
	return id, found
}

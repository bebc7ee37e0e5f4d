package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/zendesk"
)

func auditsWith(bodies ...string) []zendesk.Audit {
	var audits []zendesk.Audit
	for i, body := range bodies {
		audits = append(audits, zendesk.Audit{
			ID: int64(i + 1),
			Events: []zendesk.AuditEvent{
				{ID: int64(100 + i), Type: zendesk.EventTypeComment, Body: body},
			},
		})
	}
	return audits
}

func TestShouldPost_ExactMatchSuppressed(t *testing.T) {
	audits := auditsWith("Review ID: abc123\nRating: 5★")
	assert.False(t, ShouldPost(audits, "Review ID: abc123\nRating: 5★"))
}

func TestShouldPost_TrimmedComparison(t *testing.T) {
	audits := auditsWith("card body\n")
	assert.False(t, ShouldPost(audits, "  card body  "))
}

func TestShouldPost_SingleCharacterChangePosts(t *testing.T) {
	audits := auditsWith("Rating: 5★")
	assert.True(t, ShouldPost(audits, "Rating: 4★"))
}

func TestShouldPost_IgnoresNonCommentEvents(t *testing.T) {
	audits := []zendesk.Audit{{
		Events: []zendesk.AuditEvent{{Type: "Change", Body: "card body"}},
	}}
	assert.True(t, ShouldPost(audits, "card body"))
}

func TestShouldPost_EmptyLog(t *testing.T) {
	assert.True(t, ShouldPost(nil, "anything"))
}

func TestLatestPrivateComment(t *testing.T) {
	audits := []zendesk.Audit{
		{Events: []zendesk.AuditEvent{{ID: 1, Type: zendesk.EventTypeComment, Public: false}}},
		{Events: []zendesk.AuditEvent{{ID: 2, Type: zendesk.EventTypeComment, Public: true}}},
		{Events: []zendesk.AuditEvent{{ID: 3, Type: zendesk.EventTypeComment, Public: false}}},
	}

	id, ok := LatestPrivateComment(audits)
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
}

func TestLatestPrivateComment_NonePresent(t *testing.T) {
	audits := []zendesk.Audit{
		{Events: []zendesk.AuditEvent{{ID: 2, Type: zendesk.EventTypeComment, Public: true}}},
	}
	_, ok := LatestPrivateComment(audits)
	assert.False(t, ok)
}

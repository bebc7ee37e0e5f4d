package zendesk

import "time"

// Ticket is the helpdesk's ticket record, reduced to the fields the
// bridge reads and writes. ExternalID carries the review's stable key.
type Ticket struct {
	ID           int64         `json:"id"`
	Subject      string        `json:"subject"`
	ExternalID   string        `json:"external_id"`
	Status       string        `json:"status"`
	Tags         []string      `json:"tags"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// CustomField is one ticket custom-field value.
type CustomField struct {
	ID    int64 `json:"id"`
	Value any   `json:"value"`
}

// Comment is a new comment attached to a create or update request.
type Comment struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

// TicketRequest is the writable subset of a ticket for create/update.
type TicketRequest struct {
	Subject      string        `json:"subject,omitempty"`
	ExternalID   string        `json:"external_id,omitempty"`
	Status       string        `json:"status,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Comment      *Comment      `json:"comment,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// Audit is one entry in a ticket's append-only event log.
type Audit struct {
	ID        int64        `json:"id"`
	TicketID  int64        `json:"ticket_id"`
	CreatedAt time.Time    `json:"created_at"`
	Events    []AuditEvent `json:"events"`
}

// AuditEvent is a single event inside an audit. Comment events carry
// the note body the dedup guard compares against.
type AuditEvent struct {
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	Body   string `json:"body,omitempty"`
	Public bool   `json:"public"`
}

// EventTypeComment marks comment events in the audit log.
const EventTypeComment = "Comment"

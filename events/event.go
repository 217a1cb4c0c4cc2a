// Package events defines message payloads exchanged over the message broker.
package events

// Content change actions.
const (
	ActionPublished = "published"
	ActionDeleted   = "deleted"
	ActionCreated   = "created"
)

// ContentChangedEvent is published after a successful content mutation.
// It carries enough information for downstream consumers to invalidate,
// notify, or trigger rebuilds without querying the primary database.
type ContentChangedEvent struct {
	Action     string `json:"action"`
	Collection string `json:"collection"`
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id,omitempty"`
	Path       string `json:"path,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

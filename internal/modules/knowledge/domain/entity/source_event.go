package entity

import "time"

const (
	EventSourceIngested = "source.ingested"
	EventSourceDeleted  = "source.deleted"
)

// SourceEvent 来源变更通知，投递语义为至多一次
type SourceEvent struct {
	Type       string    `json:"type"`
	UserId     string    `json:"user_id"`
	SourceId   string    `json:"source_id"`
	Title      string    `json:"source_title,omitempty"`
	SourceType string    `json:"source_type,omitempty"`
	Points     int       `json:"points"`
	Replayed   bool      `json:"replayed"`
	Collection string    `json:"collection"`
	OccurredAt time.Time `json:"occurred_at"`
}

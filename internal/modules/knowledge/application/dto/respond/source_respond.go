package respond

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// 向量库侧结果
const (
	QdrantUpserted     = "upserted"
	QdrantExisting     = "existing"
	QdrantFailed       = "failed"
	QdrantRolledBack   = "rolled_back"
	QdrantNotAttempted = "not_attempted"
	QdrantDeleted      = "deleted"
)

// 元数据侧结果
const (
	SupabaseCreated       = "created"
	SupabaseUpdated       = "updated"
	SupabaseNotConfigured = "not_configured"
	SupabaseFailed        = "failed"
	SupabaseRolledBack    = "rolled_back"
	SupabaseNotAffected   = "not_affected"
	SupabaseDeleted       = "deleted"
	SupabaseAvailable     = "available"
)

type StepOutcome string

const (
	StepOK      StepOutcome = "ok"
	StepFailed  StepOutcome = "failed"
	StepSkipped StepOutcome = "skipped"
)

type Step struct {
	Name    string      `json:"name"`
	Outcome StepOutcome `json:"outcome"`
	Detail  string      `json:"detail,omitempty"`
}

type IngestResult struct {
	Status         string `json:"status"`
	UserId         string `json:"user_id"`
	SourceId       string `json:"source_id"`
	Collection     string `json:"collection"`
	PointsUpserted int    `json:"points_upserted"`
	FileReplaced   bool   `json:"file_replaced"`
	QdrantStatus   string `json:"qdrant_status"`
	SupabaseStatus string `json:"supabase_status"`
	Error          string `json:"error"`
	Message        string `json:"message"`
	Steps          []Step `json:"steps"`
}

type DeleteResult struct {
	Status         string `json:"status"`
	UserId         string `json:"user_id"`
	SourceId       string `json:"source_id"`
	SourceTitle    string `json:"source_title"`
	QdrantStatus   string `json:"qdrant_status"`
	SupabaseStatus string `json:"supabase_status"`
	Error          string `json:"error"`
	Message        string `json:"message"`
}

type SourceItem struct {
	SourceId    string    `json:"source_id"`
	SourceTitle string    `json:"source_title"`
	SourceType  string    `json:"source_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListSourcesResult struct {
	Status         string       `json:"status"`
	UserId         string       `json:"user_id"`
	SupabaseStatus string       `json:"supabase_status"`
	Sources        []SourceItem `json:"sources"`
	Error          string       `json:"error"`
	Message        string       `json:"message"`
}

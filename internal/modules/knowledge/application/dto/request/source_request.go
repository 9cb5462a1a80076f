package request

type IngestSourceRequest struct {
	UserId      string      `json:"user_id"`
	SourceId    string      `json:"source_id"`
	SourceTitle string      `json:"source_title"`
	SourceType  string      `json:"source_type"`
	Chunks      []string    `json:"chunks"`
	Vectors     [][]float32 `json:"vectors"`
}

type DeleteSourceRequest struct {
	UserId      string `json:"user_id"`
	SourceTitle string `json:"source_title"`
}

type ListSourcesRequest struct {
	UserId     string `form:"user_id" json:"user_id"`
	SourceType string `form:"source_type" json:"source_type"`
}

package entity

import "unicode/utf8"

// Payload 字段名，向量库过滤与读回都使用这些键
const (
	FieldUserID      = "user_id"
	FieldSourceID    = "source_id"
	FieldChunkIndex  = "chunk_index"
	FieldText        = "text"
	FieldChunkLength = "chunk_length"
)

// Point 向量库中的一条记录。Id 只在向量库内有意义
type Point struct {
	Id          string
	Vector      []float32
	UserId      string
	SourceId    string
	ChunkIndex  int64
	Text        string
	ChunkLength int64
}

// NewPoint 构造一个 chunk 对应的点，chunk_length 按字符计
func NewPoint(id, userID, sourceID string, index int, text string, vector []float32) Point {
	return Point{
		Id:          id,
		Vector:      vector,
		UserId:      userID,
		SourceId:    sourceID,
		ChunkIndex:  int64(index),
		Text:        text,
		ChunkLength: int64(utf8.RuneCountInString(text)),
	}
}

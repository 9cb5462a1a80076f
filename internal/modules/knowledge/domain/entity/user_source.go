package entity

import (
	"time"

	"OmniAgent/pkg/util"
)

type SourceType string

const (
	SourceTypeWebsite SourceType = "website"
	SourceTypePDF     SourceType = "pdf"
)

func (t SourceType) Valid() bool {
	return t == SourceTypeWebsite || t == SourceTypePDF
}

// UserSource 一条已摄取来源的元数据行，(user_id, source_id) 唯一
type UserSource struct {
	Id          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserId      string     `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:uniq_user_source"`
	SourceId    string     `gorm:"column:source_id;type:varchar(128);not null;uniqueIndex:uniq_user_source"`
	SourceTitle string     `gorm:"column:source_title;type:varchar(255);not null;index:idx_user_source_title"`
	SourceType  SourceType `gorm:"column:source_type;type:varchar(16);not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
}

func (UserSource) TableName() string { return "user_sources" }

// SourceIDFromURL 网站来源取 url 的 sha256 前 6 位
func SourceIDFromURL(url string) string {
	return util.SHA256Prefix([]byte(url), 6)
}

// SourceIDFromContent PDF 来源取文件内容的 sha256 前 16 位
func SourceIDFromContent(content []byte) string {
	return util.SHA256Prefix(content, 16)
}

package entity

import "time"

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountInactive
}

// MessagingAccount 一个 WhatsApp 号码的绑定。phone_number 是持久键，
// jid 是会话键，重新登录后可能换到另一个 user_id
type MessagingAccount struct {
	Id          int64         `gorm:"column:id;primaryKey;autoIncrement"`
	UserId      string        `gorm:"column:user_id;type:varchar(64);not null;index:idx_wa_user"`
	PhoneNumber string        `gorm:"column:phone_number;type:varchar(32);not null;uniqueIndex:uniq_wa_phone"`
	Jid         string        `gorm:"column:jid;type:varchar(128);not null;uniqueIndex:uniq_wa_jid"`
	Status      AccountStatus `gorm:"column:status;type:varchar(16);not null;default:active"`
	CreatedAt   time.Time     `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;not null"`
}

func (MessagingAccount) TableName() string { return "whatsapp_accounts" }

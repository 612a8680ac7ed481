package model

import "time"

// Notification 接种提醒 对应 notifications
// (child_id, vaccine_code, due_date) 唯一；创建后不再修改
type Notification struct {
	NotificationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"         json:"notification_id"`
	ChildID        string    `gorm:"type:uuid;not null;uniqueIndex:uq_notifications_triple"  json:"child_id"`
	VaccineCode    string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_notifications_triple" json:"vaccine_code"`
	DueDate        Date      `gorm:"type:date;not null;uniqueIndex:uq_notifications_triple"  json:"due_date"`
	Message        string    `gorm:"type:text;not null"                                      json:"message"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                      json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

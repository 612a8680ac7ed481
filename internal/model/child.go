package model

import "strings"

// Child 儿童档案 对应 children
// 接种计划仅读取 BirthDate；其余字段用于提醒文案与投递
type Child struct {
	ChildID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"child_id"`
	FirstName    string `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName     string `gorm:"type:varchar(100);not null;default:''"          json:"last_name"`
	BirthDate    Date   `gorm:"type:date;not null"                             json:"birth_date"`
	ContactEmail string `gorm:"type:varchar(255);not null;default:''"          json:"contact_email"`
	VersionedModel
}

// TableName 指定表名
func (Child) TableName() string { return "children" }

// FullName 姓名（名 + 姓）
func (c *Child) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

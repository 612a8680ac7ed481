package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate_Valid(t *testing.T) {
	d, err := ParseDate("2024-01-01")
	if err != nil {
		t.Fatalf("ParseDate 应成功: %v", err)
	}
	if d.String() != "2024-01-01" {
		t.Errorf("期望 2024-01-01，实际 %s", d)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, s := range []string{"", "2024-1-1", "2024/01/01", "2024-02-30", "2024-13-01", "20240101", "2024-01-01T00:00:00Z", " 2024-01-01"} {
		if _, err := ParseDate(s); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) 期望 ErrInvalidDate，实际 %v", s, err)
		}
	}
}

func TestDate_AddDays(t *testing.T) {
	d := NewDate(2024, time.January, 1)
	if got := d.AddDays(14).String(); got != "2024-01-15" {
		t.Errorf("期望 2024-01-15，实际 %s", got)
	}
	if got := d.AddDays(60).String(); got != "2024-03-01" {
		t.Errorf("闰年 60 天期望 2024-03-01，实际 %s", got)
	}
	if got := NewDate(2023, time.January, 1).AddDays(60).String(); got != "2023-03-02" {
		t.Errorf("平年 60 天期望 2023-03-02，实际 %s", got)
	}
}

func TestDateOf_UsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*3600)
	// UTC 1月14日 12:00 在 UTC+13 已是 1月15日
	ts := time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC).In(loc)
	if got := DateOf(ts).String(); got != "2024-01-15" {
		t.Errorf("期望 2024-01-15，实际 %s", got)
	}
}

func TestDate_JSON(t *testing.T) {
	type wrap struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrap{D: NewDate(2024, 3, 1)})
	if err != nil {
		t.Fatalf("Marshal 失败: %v", err)
	}
	if string(b) != `{"d":"2024-03-01"}` {
		t.Errorf("序列化结果不符: %s", b)
	}

	var w wrap
	if err := json.Unmarshal([]byte(`{"d":"2024-02-29"}`), &w); err != nil {
		t.Fatalf("Unmarshal 失败: %v", err)
	}
	if w.D.String() != "2024-02-29" {
		t.Errorf("期望 2024-02-29，实际 %s", w.D)
	}
	if err := json.Unmarshal([]byte(`{"d":"2023-02-29"}`), &w); err == nil {
		t.Error("非法日期应解析失败")
	}
}

func TestDate_ScanValue(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan(time.Time) 失败: %v", err)
	}
	if d.String() != "2024-01-15" {
		t.Errorf("期望 2024-01-15，实际 %s", d)
	}
	if err := d.Scan([]byte("2024-03-01")); err != nil || d.String() != "2024-03-01" {
		t.Errorf("Scan([]byte) 结果不符: %s, %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Error("Scan(int) 应报错")
	}
	v, err := NewDate(2024, 1, 15).Value()
	if err != nil || v != "2024-01-15" {
		t.Errorf("Value 结果不符: %v, %v", v, err)
	}
	if v, _ := (Date{}).Value(); v != nil {
		t.Errorf("零值 Value 应为 nil，实际 %v", v)
	}
}

func TestDueMatch_Key(t *testing.T) {
	a := DueMatch{ChildID: "c-1", VaccineCode: "BCG", DueDate: NewDate(2024, 1, 15)}
	b := DueMatch{ChildID: "c-1", VaccineCode: "OPV_1", DueDate: NewDate(2024, 1, 15)}
	if a.Key() == b.Key() {
		t.Error("不同疫苗的去重键不应相同")
	}
}

package logger

import (
	"testing"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/config"
)

func TestNewLogger_JSON(t *testing.T) {
	l, err := NewLogger(&config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger 应成功: %v", err)
	}
	if l.Core().Enabled(-1) {
		t.Error("info 级别下 debug 不应启用")
	}
}

func TestNewLogger_Console(t *testing.T) {
	l, err := NewLogger(&config.LogConfig{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatalf("NewLogger 应成功: %v", err)
	}
	if !l.Core().Enabled(-1) {
		t.Error("debug 级别下 debug 应启用")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "loud"}); err == nil {
		t.Error("非法日志级别应报错")
	}
}

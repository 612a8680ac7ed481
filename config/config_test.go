package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Scheduler: SchedulerConfig{
			Cron:       "0 9 * * *",
			Timezone:   "UTC",
			LeadDays:   1,
			RunTimeout: 10 * time.Minute,
			StaleAfter: 30 * time.Minute,
			LockTTL:    15 * time.Minute,
		},
		Delivery:  DeliveryConfig{Workers: 2},
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("期望 log.level=debug，实际=%s", cfg.Log.Level)
	}
	if cfg.Scheduler.Cron != "0 9 * * *" {
		t.Errorf("期望默认 cron=0 9 * * *，实际=%s", cfg.Scheduler.Cron)
	}
	if cfg.Scheduler.LeadDays != 1 {
		t.Errorf("期望默认 lead_days=1，实际=%d", cfg.Scheduler.LeadDays)
	}
	if cfg.Scheduler.RunTimeout != 10*time.Minute {
		t.Errorf("期望默认 run_timeout=10m，实际=%s", cfg.Scheduler.RunTimeout)
	}
	if cfg.Delivery.Workers != 4 {
		t.Errorf("期望默认 workers=4，实际=%d", cfg.Delivery.Workers)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  lead_days: 1\n"), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	t.Setenv("SMARTCHILD_SCHEDULER_LEAD_DAYS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Scheduler.LeadDays != 3 {
		t.Errorf("期望环境变量覆盖 lead_days=3，实际=%d", cfg.Scheduler.LeadDays)
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("端口越界应报错")
	}
}

func TestValidate_NegativeLeadDays(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.LeadDays = -1
	if err := cfg.Validate(); err == nil {
		t.Error("lead_days 为负应报错")
	}
}

func TestValidate_ZeroLeadDaysAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.LeadDays = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("lead_days=0 应合法: %v", err)
	}
}

func TestValidate_BadCron(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Cron = "every day"
	if err := cfg.Validate(); err == nil {
		t.Error("非法 cron 表达式应报错")
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Error("未知时区应报错")
	}
}

func TestValidate_EmailWithoutHost(t *testing.T) {
	cfg := validConfig()
	cfg.Delivery.EmailEnabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("启用邮件但缺少 smtp_host 应报错")
	}
}

func TestValidate_MQWithoutURL(t *testing.T) {
	cfg := validConfig()
	cfg.Delivery.MQEnabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("启用 MQ 但缺少 url 应报错")
	}
}

func TestValidate_SchedulerTimings(t *testing.T) {
	cases := []struct {
		name  string
		apply func(c *SchedulerConfig)
	}{
		{"run_timeout 为 0", func(c *SchedulerConfig) { c.RunTimeout = 0 }},
		{"stale_after 为 0", func(c *SchedulerConfig) { c.StaleAfter = 0 }},
		{"stale_after 短于 run_timeout", func(c *SchedulerConfig) { c.StaleAfter = time.Nanosecond; c.RunTimeout = time.Hour; c.LockTTL = time.Hour }},
		{"stale_after 等于 run_timeout", func(c *SchedulerConfig) { c.StaleAfter = c.RunTimeout }},
		{"lock_ttl 为 0", func(c *SchedulerConfig) { c.LockTTL = 0 }},
		{"lock_ttl 短于 run_timeout", func(c *SchedulerConfig) { c.LockTTL = c.RunTimeout - time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.apply(&cfg.Scheduler)
			if err := cfg.Validate(); err == nil {
				t.Errorf("%s 应报错", tc.name)
			}
		})
	}
}

func TestValidate_LockTTLEqualRunTimeoutAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.LockTTL = cfg.Scheduler.RunTimeout
	if err := cfg.Validate(); err != nil {
		t.Errorf("lock_ttl 等于 run_timeout 应合法: %v", err)
	}
}

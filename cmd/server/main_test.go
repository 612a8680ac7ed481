package main

import (
	"testing"
)

func TestParseScanDate(t *testing.T) {
	d, err := parseScanDate("")
	if err != nil || !d.IsZero() {
		t.Fatalf("空日期应返回零值: %v %v", d, err)
	}

	d, err = parseScanDate("2024-01-14")
	if err != nil || d.String() != "2024-01-14" {
		t.Fatalf("unexpected: %v %v", d, err)
	}

	if _, err := parseScanDate("2024-02-30"); err == nil {
		t.Fatal("非法日期应返回错误")
	}
}

func TestRootCmd_SubCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "migrate": false, "scan": false, "schedule": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("缺少子命令 %s", name)
		}
	}
	if f := root.PersistentFlags().Lookup("config"); f == nil {
		t.Error("缺少 --config 参数")
	}
}

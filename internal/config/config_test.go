package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worth.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Log.Level != "info" {
		t.Fatalf("log level = %q", c.Log.Level)
	}
	if c.DataDir != "./recovery" {
		t.Fatalf("data dir = %q", c.DataDir)
	}
	if c.Server.Bind != "127.0.0.1" || c.Server.Port != 5678 || c.Server.NotifyPort != 4567 {
		t.Fatalf("server defaults = %+v", c.Server)
	}
	if c.Chat.Port != 4000 || c.Chat.MulticastBase != "239.0.0.0" {
		t.Fatalf("chat defaults = %+v", c.Chat)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\nserver:\n  port: 9000\n")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Log.Level != "debug" || c.Server.Port != 9000 {
		t.Fatalf("explicit values lost: %+v", c)
	}
	if c.Server.NotifyPort != 4567 || c.Chat.Port != 4000 {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad bind", "server:\n  bind: nowhere\n", "server.bind"},
		{"port clash", "server:\n  port: 4567\n", "must differ"},
		{"port range", "server:\n  port: 70000\n", "out of range"},
		{"unicast base", "chat:\n  multicast_base: 10.0.0.1\n", "multicast"},
		{"not yaml", "{{{", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != "" && !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

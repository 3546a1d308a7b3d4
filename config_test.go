package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestShellSplit(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"server", []string{"server"}},
		{"uv run server.py", []string{"uv", "run", "server.py"}},
		{"npx -y some-server", []string{"npx", "-y", "some-server"}},
		{`python -c "print('hi there')"`, []string{"python", "-c", "print('hi there')"}},
		{`echo 'single quoted arg'`, []string{"echo", "single quoted arg"}},
		{`echo a\ b`, []string{"echo", "a b"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{`cmd ""`, []string{"cmd", ""}},
		{"", nil},
	}
	for _, c := range cases {
		got, err := shellSplit(c.in)
		if err != nil {
			t.Errorf("shellSplit(%q) error: %v", c.in, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("shellSplit(%q) = %#v, want %#v", c.in, got, c.want)
		}
	}
}

func TestShellSplitErrors(t *testing.T) {
	for _, in := range []string{`echo "unterminated`, `echo 'still open`, `trailing\`} {
		if got, err := shellSplit(in); err == nil {
			t.Errorf("shellSplit(%q) = %v, want error", in, got)
		}
	}
}

func TestSplitCommand(t *testing.T) {
	got, err := splitCommand([]string{"uv run server.py"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"uv", "run", "server.py"}) {
		t.Errorf("single arg should be shell-split, got %#v", got)
	}

	multi := []string{"python", "-c", "print('a b')"}
	got, err = splitCommand(multi)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, multi) {
		t.Errorf("multiple args must pass through untouched, got %#v", got)
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preflight.yaml")
	content := "timeout_seconds: 30\nenv:\n  API_KEY: abc\ncwd: /tmp\nisolate_home: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TimeoutSeconds != 30 || cfg.Env["API_KEY"] != "abc" || cfg.Cwd != "/tmp" || !cfg.IsolateHome {
		t.Errorf("loaded config = %+v", cfg)
	}
}

func TestLoadFileConfigErrors(t *testing.T) {
	if _, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte(":\n  - ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadFileConfig(bad); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func envValue(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}

func TestBuildServerEnvOverrides(t *testing.T) {
	t.Setenv("PRE_EXISTING", "parent")
	env, cleanup, err := buildServerEnv(serverEnvSpec{
		fileEnv:   map[string]string{"FROM_FILE": "file", "PRE_EXISTING": "file"},
		overrides: []string{"FROM_FLAG=flag", "PRE_EXISTING=flag"},
	})
	defer cleanup()
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := envValue(env, "FROM_FILE"); v != "file" {
		t.Errorf("FROM_FILE = %q", v)
	}
	if v, _ := envValue(env, "FROM_FLAG"); v != "flag" {
		t.Errorf("FROM_FLAG = %q", v)
	}
	// --env beats both the parent environment and the config file.
	if v, _ := envValue(env, "PRE_EXISTING"); v != "flag" {
		t.Errorf("PRE_EXISTING = %q, want flag override", v)
	}
}

func TestBuildServerEnvRejectsBadOverride(t *testing.T) {
	for _, bad := range []string{"NOEQUALS", "=value"} {
		if _, cleanup, err := buildServerEnv(serverEnvSpec{overrides: []string{bad}}); err == nil {
			cleanup()
			t.Errorf("override %q should be rejected", bad)
		}
	}
}

func TestBuildServerEnvHomeRedirection(t *testing.T) {
	env, cleanup, err := buildServerEnv(serverEnvSpec{home: "/fake/home"})
	defer cleanup()
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := envValue(env, "HOME"); v != "/fake/home" {
		t.Errorf("HOME = %q", v)
	}
	if v, _ := envValue(env, "XDG_CONFIG_HOME"); v != "/fake/home/.config" {
		t.Errorf("XDG_CONFIG_HOME = %q", v)
	}
	if v, _ := envValue(env, "XDG_CACHE_HOME"); v != "/fake/home/.cache" {
		t.Errorf("XDG_CACHE_HOME = %q", v)
	}
}

func TestBuildServerEnvIsolateHome(t *testing.T) {
	env, cleanup, err := buildServerEnv(serverEnvSpec{isolateHome: true})
	if err != nil {
		t.Fatal(err)
	}
	home, ok := envValue(env, "HOME")
	if !ok || !strings.Contains(home, "mcp-preflight-home-") {
		t.Fatalf("HOME = %q, want temp dir", home)
	}
	if _, err := os.Stat(home); err != nil {
		t.Errorf("temp home should exist before cleanup: %v", err)
	}
	cleanup()
	if _, err := os.Stat(home); !os.IsNotExist(err) {
		t.Errorf("temp home should be removed by cleanup, stat err = %v", err)
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nDOTENV_NEW_KEY=fresh\nDOTENV_KEPT_KEY=ignored\n\nnot a pair\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOTENV_KEPT_KEY", "original")
	t.Setenv("DOTENV_NEW_KEY", "")

	loadDotenv(path)

	if got := os.Getenv("DOTENV_NEW_KEY"); got != "fresh" {
		t.Errorf("DOTENV_NEW_KEY = %q", got)
	}
	if got := os.Getenv("DOTENV_KEPT_KEY"); got != "original" {
		t.Errorf("existing vars must not be overridden, got %q", got)
	}
}

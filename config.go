package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig holds probe defaults loadable from a yaml file (--config).
// Flags always win over file values.
type fileConfig struct {
	TimeoutSeconds float64           `yaml:"timeout_seconds"`
	Env            map[string]string `yaml:"env"`
	Cwd            string            `yaml:"cwd"`
	Home           string            `yaml:"home"`
	IsolateHome    bool              `yaml:"isolate_home"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// loadDotenv loads a .env file into the environment if it exists.
func loadDotenv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// serverEnvSpec is everything that shapes the probed server's environment.
type serverEnvSpec struct {
	fileEnv     map[string]string
	overrides   []string // --env KEY=VALUE, applied last
	home        string   // --home DIR
	isolateHome bool     // --isolate-home
}

// buildServerEnv constructs the child environment: parent env, config-file
// entries, --env overrides, then HOME/XDG redirection. The returned cleanup
// removes the temporary home, if one was created, and is always non-nil.
func buildServerEnv(spec serverEnvSpec) ([]string, func(), error) {
	env := environMap()
	for k, v := range spec.fileEnv {
		env[k] = v
	}
	for _, item := range spec.overrides {
		k, v, ok := strings.Cut(item, "=")
		if !ok || k == "" {
			return nil, func() {}, fmt.Errorf("--env must be KEY=VALUE (got %q)", item)
		}
		env[k] = v
	}

	cleanup := func() {}
	homeDir := spec.home
	if spec.isolateHome {
		tmp, err := os.MkdirTemp("", "mcp-preflight-home-")
		if err != nil {
			return nil, cleanup, fmt.Errorf("create temp home: %w", err)
		}
		cleanup = func() { os.RemoveAll(tmp) }
		homeDir = tmp
	}

	if homeDir != "" {
		env["HOME"] = homeDir
		env["XDG_CONFIG_HOME"] = filepath.Join(homeDir, ".config")
		env["XDG_DATA_HOME"] = filepath.Join(homeDir, ".local", "share")
		env["XDG_CACHE_HOME"] = filepath.Join(homeDir, ".cache")
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out, cleanup, nil
}

func environMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// splitCommand turns the positional arguments into the server command.
// A single argument is treated as a quoted command line ("uv run server.py")
// and shell-split; multiple arguments are taken as-is.
func splitCommand(args []string) ([]string, error) {
	if len(args) == 1 {
		return shellSplit(args[0])
	}
	return args, nil
}

// shellSplit splits a command string on whitespace, honoring single/double
// quotes and backslash escapes.
func shellSplit(s string) ([]string, error) {
	var out []string
	var b strings.Builder
	inQuote := byte(0)
	escaped := false
	inWord := false
	flush := func() {
		if inWord {
			out = append(out, b.String())
			b.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			inWord = true
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
			inWord = true
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			} else {
				b.WriteByte(c)
			}
		case c == '\'' || c == '"':
			inQuote = c
			inWord = true
		case c == ' ' || c == '\t':
			flush()
		default:
			b.WriteByte(c)
			inWord = true
		}
	}
	if escaped {
		return nil, fmt.Errorf("trailing escape in command")
	}
	if inQuote != 0 {
		return nil, fmt.Errorf("unterminated quote in command")
	}
	flush()
	return out, nil
}

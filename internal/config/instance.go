package config

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const instanceEnvVar = "VODOO_INSTANCE"

var instanceNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ResolveInstance picks the effective instance name. Resolution order:
// the explicit argument, the VODOO_INSTANCE environment variable, the
// project default-instance file, the global default-instance file, then
// "default". The second return reports whether the caller (or environment)
// named the instance explicitly.
func (l *Loader) ResolveInstance(explicit string) (string, bool, error) {
	if explicit != "" {
		if err := validInstanceName(explicit); err != nil {
			return "", false, err
		}
		return explicit, true, nil
	}
	if env := strings.TrimSpace(l.Env(instanceEnvVar)); env != "" {
		if err := validInstanceName(env); err != nil {
			return "", false, err
		}
		return env, true, nil
	}
	for _, dir := range []string{l.ProjectDir, l.GlobalDir} {
		name, err := readDefaultInstance(dir)
		if err != nil {
			return "", false, err
		}
		if name != "" {
			return name, false, nil
		}
	}
	return "default", false, nil
}

// Scope selects where a default-instance setting is persisted.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

func (l *Loader) scopeDir(scope Scope) (string, error) {
	switch scope {
	case ScopeProject:
		return l.ProjectDir, nil
	case ScopeGlobal:
		return l.GlobalDir, nil
	default:
		return "", errorf("unknown scope %q", scope)
	}
}

// ReadDefaultInstance returns the persisted default instance for a scope,
// or "" when none is set.
func (l *Loader) ReadDefaultInstance(scope Scope) (string, error) {
	dir, err := l.scopeDir(scope)
	if err != nil {
		return "", err
	}
	return readDefaultInstance(dir)
}

// WriteDefaultInstance persists name as the default instance for a scope.
func (l *Loader) WriteDefaultInstance(scope Scope, name string) error {
	if err := validInstanceName(name); err != nil {
		return err
	}
	dir, err := l.scopeDir(scope)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errorf("create config dir %s: %v", dir, err)
	}
	path := filepath.Join(dir, "default-instance")
	if err := os.WriteFile(path, []byte(name+"\n"), 0o644); err != nil {
		return errorf("write %s: %v", path, err)
	}
	return nil
}

// ListProfiles returns the names of all known instance profiles across the
// project and global scopes, sorted and deduplicated.
func (l *Loader) ListProfiles() ([]string, error) {
	seen := map[string]bool{}
	for _, dir := range []string{l.ProjectDir, l.GlobalDir} {
		entries, err := os.ReadDir(filepath.Join(dir, "instances"))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errorf("list profiles in %s: %v", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			ext := filepath.Ext(name)
			if ext != ".toml" && ext != ".env" {
				continue
			}
			base := strings.TrimSuffix(name, ext)
			if validInstanceName(base) == nil {
				seen[base] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// readDefaultInstance reads the first meaningful line of dir's
// default-instance file. Blank lines and # comments are skipped.
func readDefaultInstance(dir string) (string, error) {
	path := filepath.Join(dir, "default-instance")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errorf("read %s: %v", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := validInstanceName(line); err != nil {
			return "", errorf("invalid instance name in %s: %q", path, line)
		}
		return line, nil
	}
	return "", scanner.Err()
}

func validInstanceName(name string) error {
	if !instanceNameRe.MatchString(name) {
		return errorf("invalid instance name %q", name)
	}
	return nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/vodoo/vodoo/internal/odoo"
)

// Error reports a client-side configuration problem: a missing required
// setting, an unreadable profile, or a bad instance name.
type Error struct {
	msg string
}

func (e *Error) Error() string { return "config: " + e.msg }

func errorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Config is one resolved connection profile.
type Config struct {
	URL      string `toml:"url"`
	Database string `toml:"database"`
	Username string `toml:"username"`
	// Password is the login password or API key. A value starting with
	// op:// is treated as a secret reference and resolved before use.
	Password    string `toml:"password"`
	PasswordRef string `toml:"password_ref"`

	// DefaultUserID is the acting user for sudo-style posts when the
	// caller does not name one.
	DefaultUserID int `toml:"default_user_id"`

	RetryCount      int     `toml:"retry_count"`
	RetryBackoff    float64 `toml:"retry_backoff"`
	RetryMaxBackoff float64 `toml:"retry_max_backoff"`
}

// ConnInfo converts the profile into transport connection parameters.
func (c Config) ConnInfo() odoo.ConnInfo {
	return odoo.ConnInfo{
		URL:      c.URL,
		Database: c.Database,
		Username: c.Username,
		Secret:   c.Password,
		Retry: odoo.RetryPolicy{
			MaxRetries:  c.RetryCount,
			BackoffBase: time.Duration(c.RetryBackoff * float64(time.Second)),
			BackoffMax:  time.Duration(c.RetryMaxBackoff * float64(time.Second)),
		},
	}
}

// Loader resolves profiles across the project and global scopes. Construct
// with NewLoader; tests override the directories and lookups.
type Loader struct {
	// ProjectDir is the project-local config directory, usually ./.vodoo.
	ProjectDir string
	// GlobalDir is the per-user config directory.
	GlobalDir string
	// WorkDir anchors the legacy .env fallbacks.
	WorkDir string
	// Env looks up environment variables.
	Env func(string) string
	// ResolveSecret resolves secret references like op://vault/item/field.
	ResolveSecret func(ref string) (string, error)
}

// NewLoader builds a loader rooted at the current directory and the user's
// XDG config home.
func NewLoader() *Loader {
	return &Loader{
		ProjectDir:    ".vodoo",
		GlobalDir:     filepath.Join(xdg.ConfigHome, "vodoo"),
		WorkDir:       ".",
		Env:           os.Getenv,
		ResolveSecret: resolveSecretReference,
	}
}

// Load resolves and validates the effective configuration. explicitPath
// forces a specific file; instance selects a named profile. Both empty means
// the default instance resolution order applies. Environment variables
// (ODOO_URL and friends) override file values either way.
func (l *Loader) Load(instance, explicitPath string) (Config, error) {
	cfg := Config{
		RetryCount:      odoo.DefaultRetry.MaxRetries,
		RetryBackoff:    odoo.DefaultRetry.BackoffBase.Seconds(),
		RetryMaxBackoff: odoo.DefaultRetry.BackoffMax.Seconds(),
	}

	path, err := l.DetectConfigFile(instance, explicitPath)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	l.applyEnv(&cfg)

	if path == "" {
		name, explicit, err := l.ResolveInstance(instance)
		if err != nil {
			return Config{}, err
		}
		if explicit && !hasCredentials(cfg) {
			return Config{}, errorf("no profile found for instance %q; looked in %s",
				name, strings.Join(l.profileCandidates(name), ", "))
		}
	}

	if err := l.resolvePassword(&cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	if !strings.HasPrefix(cfg.URL, "https://") {
		log.Printf("warning: server URL %s does not use HTTPS; credentials travel in cleartext", cfg.URL)
	}
	return cfg, nil
}

// DetectConfigFile returns the profile file the resolution order selects, or
// "" when configuration must come from the environment alone.
func (l *Loader) DetectConfigFile(instance, explicitPath string) (string, error) {
	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return "", errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	name, explicit, err := l.ResolveInstance(instance)
	if err != nil {
		return "", err
	}
	for _, candidate := range l.profileCandidates(name) {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	if explicit {
		return "", nil
	}
	for _, candidate := range l.legacyCandidates() {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// profileCandidates lists where a named profile may live, most specific
// first. TOML is the native format; .env profiles are accepted for setups
// migrated from environment files.
func (l *Loader) profileCandidates(instance string) []string {
	var paths []string
	for _, dir := range []string{l.ProjectDir, l.GlobalDir} {
		paths = append(paths,
			filepath.Join(dir, "instances", instance+".toml"),
			filepath.Join(dir, "instances", instance+".env"),
		)
	}
	return paths
}

func (l *Loader) legacyCandidates() []string {
	return []string{
		filepath.Join(l.WorkDir, ".vodoo.env"),
		filepath.Join(l.WorkDir, ".env"),
		filepath.Join(l.GlobalDir, "config.env"),
	}
}

func loadFile(path string, cfg *Config) error {
	if strings.HasSuffix(path, ".toml") {
		data, err := os.ReadFile(path)
		if err != nil {
			return errorf("read profile %s: %v", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return errorf("parse profile %s: %v", path, err)
		}
		return nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return errorf("read profile %s: %v", path, err)
	}
	applyValues(cfg, func(key string) string { return values[key] })
	return nil
}

func (l *Loader) applyEnv(cfg *Config) {
	applyValues(cfg, l.Env)
}

// applyValues copies non-empty ODOO_* values into cfg.
func applyValues(cfg *Config, get func(string) string) {
	set := func(key string, dst *string) {
		if v := strings.TrimSpace(get(key)); v != "" {
			*dst = v
		}
	}
	set("ODOO_URL", &cfg.URL)
	set("ODOO_DATABASE", &cfg.Database)
	set("ODOO_USERNAME", &cfg.Username)
	set("ODOO_PASSWORD", &cfg.Password)
	set("ODOO_PASSWORD_REF", &cfg.PasswordRef)

	if v := strings.TrimSpace(get("ODOO_DEFAULT_USER_ID")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultUserID = n
		}
	}
	if v := strings.TrimSpace(get("ODOO_RETRY_COUNT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetryCount = n
		}
	}
	if v := strings.TrimSpace(get("ODOO_RETRY_BACKOFF")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RetryBackoff = f
		}
	}
	if v := strings.TrimSpace(get("ODOO_RETRY_MAX_BACKOFF")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RetryMaxBackoff = f
		}
	}
}

// resolvePassword replaces secret references with the secrets they point to.
// An explicit PasswordRef wins; a Password that itself looks like a
// reference is resolved in place.
func (l *Loader) resolvePassword(cfg *Config) error {
	ref := strings.TrimSpace(cfg.PasswordRef)
	if ref == "" && strings.HasPrefix(strings.TrimSpace(cfg.Password), "op://") {
		ref = strings.TrimSpace(cfg.Password)
	}
	if ref == "" {
		return nil
	}
	secret, err := l.ResolveSecret(ref)
	if err != nil {
		return err
	}
	cfg.Password = secret
	return nil
}

func validate(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		missing = append(missing, "database")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func hasCredentials(cfg Config) bool {
	return strings.TrimSpace(cfg.URL) != "" &&
		strings.TrimSpace(cfg.Database) != "" &&
		strings.TrimSpace(cfg.Username) != "" &&
		(strings.TrimSpace(cfg.Password) != "" || strings.TrimSpace(cfg.PasswordRef) != "")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

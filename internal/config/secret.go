package config

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

const secretResolveTimeout = 10 * time.Second

// resolveSecretReference resolves an op:// reference through the 1Password
// CLI. Other reference schemes are rejected.
func resolveSecretReference(ref string) (string, error) {
	if !strings.HasPrefix(ref, "op://") {
		return "", errorf("unsupported secret reference %q", ref)
	}

	ctx, cancel := context.WithTimeout(context.Background(), secretResolveTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "op", "read", ref).Output()
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			return "", errorf("op read %s: %s", ref, strings.TrimSpace(string(exitErr.Stderr)))
		case errors.Is(err, exec.ErrNotFound):
			return "", errorf("op CLI not found; install 1Password CLI to use %q", ref)
		default:
			return "", errorf("op read %s: %v", ref, err)
		}
	}

	secret := strings.TrimSpace(string(out))
	if secret == "" {
		return "", errorf("op read %s returned no value", ref)
	}
	return secret, nil
}

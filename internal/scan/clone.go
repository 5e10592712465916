package scan

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var identitySanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Identity derives the deterministic repository identity used to key clone
// directories and snapshot databases: owner_repo for remote URLs, the cleaned
// base name for local paths.
func Identity(pathOrURL string) string {
	if u, err := url.Parse(pathOrURL); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		trimmed := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
		parts := strings.Split(trimmed, "/")
		if len(parts) >= 2 {
			return sanitizeIdentity(parts[len(parts)-2] + "_" + parts[len(parts)-1])
		}
		return sanitizeIdentity(trimmed)
	}
	return sanitizeIdentity(filepath.Base(filepath.Clean(pathOrURL)))
}

func sanitizeIdentity(s string) string {
	s = identitySanitizer.ReplaceAllString(s, "_")
	if s == "" || s == "." {
		return "repo"
	}
	return s
}

// IsRemote reports whether the repository reference is an http(s) URL rather
// than a local path.
func IsRemote(pathOrURL string) bool {
	u, err := url.Parse(pathOrURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// Clone shallow-clones a remote repository into dest, reusing an existing
// clone when present. An access token, when provided, is injected into the
// https URL for the subprocess only and never logged. Clone failure is a
// discovery error and fatal to the caller.
func (s *Scanner) Clone(ctx context.Context, repoURL, accessToken, dest string) error {
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		s.log.Debug("reusing existing clone", zap.String("dest", dest))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating clone directory: %w", err)
	}

	cloneURL := repoURL
	if accessToken != "" {
		u, err := url.Parse(repoURL)
		if err != nil {
			return fmt.Errorf("invalid repository URL: %w", err)
		}
		u.User = url.User(accessToken)
		cloneURL = u.String()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", cloneURL, dest)
	if out, err := cmd.CombinedOutput(); err != nil {
		// Scrub the token before surfacing subprocess output.
		msg := string(out)
		if accessToken != "" {
			msg = strings.ReplaceAll(msg, accessToken, "***")
		}
		return fmt.Errorf("cloning %s: %w: %s", repoURL, err, strings.TrimSpace(msg))
	}

	s.log.Info("cloned repository", zap.String("url", repoURL), zap.String("dest", dest))
	return nil
}

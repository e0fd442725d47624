package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"whispersub/internal/config"
	"whispersub/internal/deps"
	"whispersub/internal/services"
	"whispersub/internal/services/deepseek"
)

// translationCheckTimeout bounds the single health-check request.
const translationCheckTimeout = 30 * time.Second

// CheckTranslation verifies that the translation API is reachable and the key
// is accepted. It makes one request and never retries.
func CheckTranslation(ctx context.Context, cfg *config.Config) Result {
	const name = "Translation API"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if err := cfg.RequireTranslation(); err != nil {
		return Result{Name: name, Detail: summarizeTranslationError(err)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, translationCheckTimeout)
	defer cancel()

	client := deepseek.NewClient(deepseek.Config{
		BaseURL: cfg.Translation.BaseURL,
		APIKey:  cfg.Translation.APIKey,
		Model:   cfg.Translation.Model,
		Proxy:   cfg.Network.Proxy,
		Timeout: cfg.TranslationTimeout(),
	})
	if err := client.HealthCheck(checkCtx, cfg.Translation.TargetLanguage); err != nil {
		return Result{Name: name, Detail: summarizeTranslationError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%s)", cfg.Translation.BaseURL, cfg.Translation.Model)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external tools named in cfg.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, deps.Requirements(cfg))
}

// summarizeTranslationError produces a human-readable summary for translation
// health check failures.
func summarizeTranslationError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (translation API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (translation API unreachable)"
	}
	msg := err.Error()
	if errors.Is(err, services.ErrConfiguration) {
		// Drop the classification prefix; the remainder names the missing setting.
		if idx := strings.LastIndex(msg, ": "); idx >= 0 {
			msg = msg[idx+2:]
		}
	}
	return msg
}

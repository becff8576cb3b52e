// Package auth supplies the credential for the remote backend and
// diagnoses authentication failures. The credential is an opaque access
// token read from a file; recovery re-reads the file and applies a token
// that differs from the rejected one.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// ErrTokenEmpty is returned when the token file holds no token.
var ErrTokenEmpty = errors.New("token file is empty")

// Recommendations offered by Diagnose.
const (
	RecommendConfigure = "set token_file in config.yaml or HABITS_ACCESS_TOKEN"
	RecommendRefresh   = "write a fresh access token to the token file"
	RecommendScopes    = "grant the token access to Drive files and Sheets"
)

// ReadToken returns the trimmed contents of the token file.
func ReadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrTokenEmpty
	}
	return token, nil
}

// TokenFile is a types.Diagnoser over a token file. Apply receives each
// token that recovery or Watch loads.
type TokenFile struct {
	path   string
	apply  func(token string)
	logger *slog.Logger

	mu      sync.Mutex
	current string
}

var _ types.Diagnoser = (*TokenFile)(nil)

// NewTokenFile returns a diagnoser for path. current is the token in use;
// apply is called with replacement tokens. A nil logger means
// slog.Default().
func NewTokenFile(path, current string, apply func(string), logger *slog.Logger) *TokenFile {
	if logger == nil {
		logger = slog.Default()
	}
	if apply == nil {
		apply = func(string) {}
	}
	return &TokenFile{path: path, apply: apply, logger: logger, current: current}
}

// Current returns the token last applied.
func (f *TokenFile) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Diagnose reports on the credential after err. Errors outside the
// authentication and authorization kinds are reported healthy.
func (f *TokenFile) Diagnose(_ context.Context, err error) types.Diagnostic {
	kind := types.KindUnknown
	if se := types.Classify(err); se != nil {
		kind = se.Kind
	}

	switch kind {
	case types.KindAuthorization:
		return types.Diagnostic{
			IsHealthy:       false,
			Issues:          []types.Issue{{Severity: types.SeverityWarning, Message: "token lacks the required scopes"}},
			Recommendations: []string{RecommendScopes},
		}
	case types.KindAuthentication:
	default:
		return types.Diagnostic{IsHealthy: true}
	}

	if f.path == "" {
		d := critical("no token file configured", RecommendConfigure)
		f.logger.Warn("credential diagnosis", slog.String("issue", d.Issues[0].Message))
		return d
	}

	token, readErr := ReadToken(f.path)
	var d types.Diagnostic
	switch {
	case errors.Is(readErr, os.ErrNotExist):
		d = critical("token file does not exist", RecommendRefresh)
	case errors.Is(readErr, ErrTokenEmpty):
		d = critical("token file is empty", RecommendRefresh)
	case readErr != nil:
		d = critical(readErr.Error(), RecommendRefresh)
	case token == f.Current():
		d = critical("access token was rejected", RecommendRefresh)
	default:
		d = types.Diagnostic{
			IsHealthy:       false,
			Issues:          []types.Issue{{Severity: types.SeverityCritical, Message: "token file holds a newer token"}},
			Recommendations: []string{"reload the token file"},
		}
	}
	f.logger.Warn("credential diagnosis", slog.String("issue", d.Issues[0].Message))
	return d
}

// AttemptAutoRecovery reloads the token file and applies its token when
// it differs from the current one.
func (f *TokenFile) AttemptAutoRecovery(_ context.Context, d types.Diagnostic) bool {
	if d.IsHealthy || !d.HasCritical() || f.path == "" {
		return false
	}
	recovered, err := f.Reload()
	if err != nil {
		f.logger.Warn("credential recovery failed", slog.Any("error", err))
		return false
	}
	if recovered {
		f.logger.Info("credential recovered from token file", slog.String("path", f.path))
	}
	return recovered
}

// Reload reads the token file and applies its token if it changed. It
// reports whether a new token was applied.
func (f *TokenFile) Reload() (bool, error) {
	token, err := ReadToken(f.path)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	changed := token != f.current
	if changed {
		f.current = token
	}
	f.mu.Unlock()
	if changed {
		f.apply(token)
	}
	return changed, nil
}

func critical(message, recommendation string) types.Diagnostic {
	return types.Diagnostic{
		IsHealthy:       false,
		Issues:          []types.Issue{{Severity: types.SeverityCritical, Message: message}},
		Recommendations: []string{recommendation},
	}
}

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/habits/internal/logging"
	"github.com/mesh-intelligence/habits/pkg/types"
)

type recorder struct {
	mu     sync.Mutex
	tokens []string
}

func (r *recorder) apply(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tokens) == 0 {
		return ""
	}
	return r.tokens[len(r.tokens)-1]
}

func writeToken(t *testing.T, path, token string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(token+"\n"), 0o600))
}

func TestReadToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")

	_, err := ReadToken(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	writeToken(t, path, "  ")
	_, err = ReadToken(path)
	assert.ErrorIs(t, err, ErrTokenEmpty)

	writeToken(t, path, "abc")
	token, err := ReadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestDiagnose(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	unauthorized := &types.StoreError{Kind: types.KindAuthentication, Message: "Invalid credentials", Status: 401}

	tests := []struct {
		name     string
		path     string
		content  *string
		err      error
		healthy  bool
		critical bool
		message  string
	}{
		{name: "non-auth error is healthy", path: path, err: errors.New("boom"), healthy: true},
		{name: "no token file configured", path: "", err: unauthorized, critical: true, message: "no token file configured"},
		{name: "missing file", path: path, err: unauthorized, critical: true, message: "token file does not exist"},
		{name: "empty file", path: path, content: ptr(""), err: unauthorized, critical: true, message: "token file is empty"},
		{name: "same token rejected", path: path, content: ptr("old"), err: unauthorized, critical: true, message: "access token was rejected"},
		{name: "newer token available", path: path, content: ptr("new"), err: types.ErrUnauthorized, critical: true, message: "token file holds a newer token"},
		{name: "authorization is not critical", path: path, err: types.ErrForbidden, message: "token lacks the required scopes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(path)
			if tt.content != nil {
				writeToken(t, path, *tt.content)
			}
			d := NewTokenFile(tt.path, "old", nil, logging.Discard()).Diagnose(ctx, tt.err)
			assert.Equal(t, tt.healthy, d.IsHealthy)
			assert.Equal(t, tt.critical, d.HasCritical())
			if tt.message != "" {
				require.NotEmpty(t, d.Issues)
				assert.Equal(t, tt.message, d.Issues[0].Message)
				assert.NotEmpty(t, d.Recommendations)
			}
		})
	}
}

func TestAttemptAutoRecovery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")
	rec := &recorder{}
	f := NewTokenFile(path, "old", rec.apply, logging.Discard())

	writeToken(t, path, "old")
	d := f.Diagnose(ctx, types.ErrUnauthorized)
	assert.False(t, f.AttemptAutoRecovery(ctx, d), "same token cannot recover")
	assert.Empty(t, rec.tokens)

	writeToken(t, path, "new")
	d = f.Diagnose(ctx, types.ErrUnauthorized)
	assert.True(t, f.AttemptAutoRecovery(ctx, d))
	assert.Equal(t, "new", rec.last())
	assert.Equal(t, "new", f.Current())

	assert.False(t, f.AttemptAutoRecovery(ctx, types.Diagnostic{IsHealthy: true}))
}

func TestWatchReloadsToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	writeToken(t, path, "old")

	rec := &recorder{}
	f := NewTokenFile(path, "old", rec.apply, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.Watch(ctx, ready) }()
	<-ready

	writeToken(t, path, "rotated")
	assert.Eventually(t, func() bool { return rec.last() == "rotated" }, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func ptr(s string) *string { return &s }

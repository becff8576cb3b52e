package types

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			name:     "habit not found sentinel",
			err:      fmt.Errorf("delete habit h2: %w", ErrHabitNotFound),
			wantKind: KindNotFound,
			wantMsg:  "Habit not found",
		},
		{
			name:     "day out of range is validation",
			err:      ErrDayOutOfRange,
			wantKind: KindValidation,
			wantMsg:  "Day must be between 1 and 31",
		},
		{
			name:     "unknown column is not-found",
			err:      fmt.Errorf("update cell: %w", ErrUnknownColumn),
			wantKind: KindNotFound,
		},
		{
			name:     "store error passes through",
			err:      fmt.Errorf("wrapped: %w", &StoreError{Kind: KindServer, Message: "Backend unavailable"}),
			wantKind: KindServer,
			wantMsg:  "Backend unavailable",
		},
		{
			name:     "url error is network",
			err:      &url.Error{Op: "Get", URL: "http://x", Err: errors.New("dial tcp: refused")},
			wantKind: KindNetwork,
		},
		{
			name:     "deadline is network",
			err:      context.DeadlineExceeded,
			wantKind: KindNetwork,
		},
		{
			name:     "401 pattern is authentication",
			err:      errors.New("request failed with status 401"),
			wantKind: KindAuthentication,
		},
		{
			name:     "invalid_grant is authentication",
			err:      errors.New("oauth2: invalid_grant"),
			wantKind: KindAuthentication,
		},
		{
			name:     "403 pattern is authorization",
			err:      errors.New("403 Forbidden"),
			wantKind: KindAuthorization,
		},
		{
			name:     "503 is server",
			err:      errors.New("upstream returned 503"),
			wantKind: KindServer,
		},
		{
			name:     "status digits inside an id are ignored",
			err:      fmt.Errorf("writing habit %s: %w", "0194a401-7c2e", errors.New("database is locked")),
			wantKind: KindUnknown,
			wantMsg:  "Writing habit 0194a401-7c2e: database is locked",
		},
		{
			name:     "server digits inside an id are ignored",
			err:      fmt.Errorf("updating isArchived of %s: %w", "01950503-aa10", errors.New("disk I/O error")),
			wantKind: KindUnknown,
		},
		{
			name:     "wrapper text does not classify",
			err:      fmt.Errorf("habit not found in cache 401: %w", errors.New("database is locked")),
			wantKind: KindUnknown,
		},
		{
			name:     "pattern inside a longer word is ignored",
			err:      errors.New("geoffrey has no networks"),
			wantKind: KindUnknown,
		},
		{
			name:     "unexpected EOF is network",
			err:      fmt.Errorf("reading habit h1: %w", errors.New("unexpected EOF")),
			wantKind: KindNetwork,
		},
		{
			name:     "unexpected body is server",
			err:      fmt.Errorf("decode sheet: %w", ErrUnexpectedBody),
			wantKind: KindServer,
		},
		{
			name:     "closed backend is unknown",
			err:      fmt.Errorf("read range 401: %w", ErrBackendClosed),
			wantKind: KindUnknown,
			wantMsg:  "Backend is closed",
		},
		{
			name:     "already open backend is unknown",
			err:      ErrAlreadyOpen,
			wantKind: KindUnknown,
			wantMsg:  "Backend is already open",
		},
		{
			name:     "anything else is unknown",
			err:      errors.New("something odd"),
			wantKind: KindUnknown,
			wantMsg:  "Something odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := Classify(tt.err)
			require.NotNil(t, se)
			assert.Equal(t, tt.wantKind, se.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, se.Message)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestStoreErrorUnwrap(t *testing.T) {
	se := &StoreError{Kind: KindAuthentication, Op: "read range", Message: "Invalid credentials", Err: ErrUnauthorized}
	assert.ErrorIs(t, se, ErrUnauthorized)
	assert.Equal(t, "read range: Invalid credentials", se.Error())
	assert.True(t, IsAuthentication(fmt.Errorf("x: %w", se)))
	assert.False(t, IsAuthentication(ErrHabitNotFound))
}

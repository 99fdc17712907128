package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venomshop/backend/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "date_range.json"))

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := domain.DateRange{
		From: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, time.January, 31, 23, 59, 59, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, want))

	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, want.From.Equal(got.From))
	assert.True(t, want.To.Equal(got.To))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	var s MemoryStore

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	r := domain.DateRange{From: time.Unix(0, 0).UTC()}
	require.NoError(t, s.Save(ctx, r))
	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, r, got)
}

package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

func newTestLogger(t *testing.T) (*Logger, *store.MemoryStore) {
	t.Helper()
	st, err := store.NewMemoryStore(&store.SeedData{})
	require.NoError(t, err)
	return NewLogger(st, nil), st
}

func TestRecordAndList(t *testing.T) {
	l, _ := newTestLogger(t)
	ctx := context.Background()

	l.RecordCreate(ctx, 1, TargetSite, 10, "created site Vue.js")
	l.RecordUpdate(ctx, 1, TargetSite, 10, "renamed site")
	l.RecordDelete(ctx, 2, TargetCategory, 3, "removed category")

	entries, total, err := l.List(ctx, store.ActivityFilter{}, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 3)
	// newest first
	assert.Equal(t, nav.ActionDelete, entries[0].ActionType)
	assert.Equal(t, nav.ActionCreate, entries[2].ActionType)
}

func TestListFilters(t *testing.T) {
	l, _ := newTestLogger(t)
	ctx := context.Background()

	l.RecordCreate(ctx, 1, TargetSite, 10, "created site")
	l.RecordCreate(ctx, 2, TargetCategory, 3, "created category")

	userID := int64(2)
	entries, total, err := l.List(ctx, store.ActivityFilter{UserID: &userID}, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, TargetCategory, entries[0].TargetType)

	entries, _, err = l.List(ctx, store.ActivityFilter{TargetType: TargetSite}, store.Page{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].UserID)
}

// appendFailStore drops every append.
type appendFailStore struct {
	store.Store
}

func (f *appendFailStore) AppendActivity(ctx context.Context, e *nav.ActivityLogEntry) error {
	return errors.New("activity table unavailable")
}

func TestRecordFailureIsSwallowed(t *testing.T) {
	st, err := store.NewMemoryStore(&store.SeedData{})
	require.NoError(t, err)
	l := NewLogger(&appendFailStore{Store: st}, nil)

	// must not panic or propagate
	l.RecordCreate(context.Background(), 1, TargetSite, 10, "created site")
}

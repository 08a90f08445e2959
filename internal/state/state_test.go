package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestTokenPair_RoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	_, ok, err := st.TokenPair(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	pair := domain.TokenPair{Access: "acc", Refresh: "ref"}
	require.NoError(t, st.SetTokenPair(ctx, pair))

	got, ok, err := st.TokenPair(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pair, got)
}

func TestTokenPair_SetReplaces(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetTokenPair(ctx, domain.TokenPair{Access: "a1", Refresh: "r1"}))
	require.NoError(t, st.SetTokenPair(ctx, domain.TokenPair{Access: "a2", Refresh: "r2"}))

	got, ok, err := st.TokenPair(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a2", got.Access)
}

func TestClearTokenPair_Idempotent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetTokenPair(ctx, domain.TokenPair{Access: "a", Refresh: "r"}))
	require.NoError(t, st.ClearTokenPair(ctx))
	require.NoError(t, st.ClearTokenPair(ctx))

	_, ok, err := st.TokenPair(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenPair_CorruptRecordReadsAsAbsent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.set(ctx, keyTokenPair, "{not json"))

	_, ok, err := st.TokenPair(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProjectID_RoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	_, ok, err := st.ProjectID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SetProjectID(ctx, "proj-42"))
	id, ok, err := st.ProjectID(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "proj-42", id)

	require.NoError(t, st.ClearProjectID(ctx))
	_, ok, err = st.ProjectID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "sprintdesk.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.SetProjectID(ctx, "proj-7"))
	require.NoError(t, st.Close())

	st2, err := Open(path)
	require.NoError(t, err)
	defer st2.Close()

	id, ok, err := st2.ProjectID(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "proj-7", id)
}

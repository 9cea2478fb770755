package history

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brain/internal/types"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_AppendAndLoad(t *testing.T) {
	s := newTestSQLiteStore(t)

	m1 := types.NewMessage(types.RoleUser, "ping", "")
	m2 := types.NewMessage(types.RoleAssistant, "pong", "claude")

	require.NoError(t, s.Append("demo", m1))
	require.NoError(t, s.Append("demo", m2))

	got, err := s.Load("demo")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, m1, got[0])
	assert.Equal(t, m2, got[1])
}

func TestSQLiteStore_UnknownThreadIsEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.Load("missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_WindowSemantics(t *testing.T) {
	s := newTestSQLiteStore(t)

	for i := 1; i <= 15; i++ {
		require.NoError(t, s.Append("long", types.NewMessage(types.RoleUser, fmt.Sprintf("msg-%d", i), "")))
	}

	window, err := s.Window("long", 10)
	require.NoError(t, err)
	require.Len(t, window, 10)
	assert.Equal(t, "msg-6", window[0].Content)
	assert.Equal(t, "msg-15", window[9].Content)
}

func TestSQLiteStore_ThreadIsolation(t *testing.T) {
	s := newTestSQLiteStore(t)

	require.NoError(t, s.Append("alpha", types.NewMessage(types.RoleUser, "a", "")))
	require.NoError(t, s.Append("beta", types.NewMessage(types.RoleUser, "b", "")))

	alpha, err := s.Load("alpha")
	require.NoError(t, err)
	require.Len(t, alpha, 1)
	assert.Equal(t, "a", alpha[0].Content)

	threads, err := s.Threads()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, threads)
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()

	fileStore, err := Open(configFor("file", dir))
	require.NoError(t, err)
	defer fileStore.Close()
	assert.IsType(t, &FileStore{}, fileStore)

	sqliteStore, err := Open(configFor("sqlite", dir))
	require.NoError(t, err)
	defer sqliteStore.Close()
	assert.IsType(t, &SQLiteStore{}, sqliteStore)

	_, err = Open(configFor("redis", dir))
	assert.Error(t, err)
}

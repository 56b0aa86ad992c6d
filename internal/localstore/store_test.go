package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "ns", "k", []byte("v")))
	got, err := s.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	assert.NoError(t, s.Close())
}

func TestGet_Missing(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), DefaultNamespace, "nothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSet_Overwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, DefaultNamespace, "cart", []byte("[1]")))
	require.NoError(t, s.Set(ctx, DefaultNamespace, "cart", []byte("[1,2]")))

	got, err := s.Get(ctx, DefaultNamespace, "cart")
	require.NoError(t, err)
	assert.Equal(t, []byte("[1,2]"), got)
}

func TestSet_NamespacesAreIsolated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "k", []byte("from-a")))
	require.NoError(t, s.Set(ctx, "b", "k", []byte("from-b")))

	got, err := s.Get(ctx, "a", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-a"), got)
}

func TestSet_NilValueStoredAsEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "ns", "k", nil))
	got, err := s.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDelete_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "ns", "k", []byte("v")))
	require.NoError(t, s.Delete(ctx, "ns", "k"))
	require.NoError(t, s.Delete(ctx, "ns", "k"))

	_, err := s.Get(ctx, "ns", "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeys_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"zeta", "alpha", "Mid"} {
		require.NoError(t, s.Set(ctx, "ns", k, []byte("x")))
	}

	keys, err := s.Keys(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mid", "alpha", "zeta"}, keys)

	empty, err := s.Keys(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{}, empty)
}

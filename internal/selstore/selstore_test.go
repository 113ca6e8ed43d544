package selstore

import (
	"testing"

	"github.com/dgraph-io/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSelectedEmptyStore(t *testing.T) {
	s := New(zap.NewNop(), openTestDB(t))

	_, ok, err := s.Selected()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistRoundTrip(t *testing.T) {
	s := New(zap.NewNop(), openTestDB(t))

	require.NoError(t, s.Persist(2))
	index, ok, err := s.Selected()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, index)

	// overwrite
	require.NoError(t, s.Persist(0))
	index, ok, err = s.Selected()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, index)
}

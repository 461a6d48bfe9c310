package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the lifecycle every backend must honour.
func exerciseStore(t *testing.T, s TokenStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx), "deleting a missing token is not an error")

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Save(ctx, Token{RoomCode: "ABC123", PlayerName: "Ana"}))
	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Token{RoomCode: "ABC123", PlayerName: "Ana"}, tok)

	// Last write wins.
	require.NoError(t, s.Save(ctx, Token{RoomCode: "XYZ789", PlayerName: "Luis"}))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Token{RoomCode: "XYZ789", PlayerName: "Luis"}, tok)

	require.NoError(t, s.Delete(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoToken)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := NewFile(dir)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFile_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, Token{RoomCode: "ABC123", PlayerName: "Ana"}))

	second, err := NewFile(dir)
	require.NoError(t, err)
	tok, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", tok.RoomCode)
}

func TestFile_CorruptTokenIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Key+".json"), []byte("{not json"), 0o600))

	s, err := NewFile(dir)
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	s, err := NewPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

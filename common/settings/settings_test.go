package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("first run - no settings file exists", func(t *testing.T) {
		tempDir := t.TempDir()
		s, err := New(tempDir)
		require.NoError(t, err)

		assert.Equal(t, "info", s.GetString(LogLevelKey))
		assert.Equal(t, tempDir, s.GetString(DataPathKey))

		_, err = os.Stat(filepath.Join(tempDir, settingsFileName))
		assert.NoError(t, err, "expected settings file to be created")
	})

	t.Run("existing valid settings file", func(t *testing.T) {
		tempDir := t.TempDir()
		contents := []byte(`{"access_token": "tok123", "log_level": "debug"}`)
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, settingsFileName), contents, 0600))

		s, err := New(tempDir)
		require.NoError(t, err)
		assert.Equal(t, "tok123", s.GetString(TokenKey))
		assert.Equal(t, "debug", s.GetString(LogLevelKey))
	})

	t.Run("invalid settings file", func(t *testing.T) {
		tempDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, settingsFileName), []byte(`{invalid json}`), 0600))

		_, err := New(tempDir)
		assert.Error(t, err)
	})

	t.Run("non-existent directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")
		_, err := New(dir)
		assert.NoError(t, err)
	})
}

func TestSetGetDelete(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(TokenKey, "abc"))
	assert.True(t, s.Has(TokenKey))
	assert.Equal(t, "abc", s.GetString(TokenKey))

	require.NoError(t, s.Delete(TokenKey))
	assert.False(t, s.Has(TokenKey))
	assert.Empty(t, s.GetString(TokenKey))

	// deleting an absent key is a no-op
	assert.NoError(t, s.Delete(TokenKey))
}

func TestPersistenceAcrossInstances(t *testing.T) {
	tempDir := t.TempDir()
	s, err := New(tempDir)
	require.NoError(t, err)
	require.NoError(t, s.Set(TokenKey, "survivor"))

	s2, err := New(tempDir)
	require.NoError(t, err)
	assert.Equal(t, "survivor", s2.GetString(TokenKey))
}

func TestReadOnly(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		_, err := NewReadOnly(t.TempDir(), false)
		assert.Error(t, err)
	})

	t.Run("rejects writes", func(t *testing.T) {
		tempDir := t.TempDir()
		s, err := New(tempDir)
		require.NoError(t, err)
		require.NoError(t, s.Set(TokenKey, "abc"))

		ro, err := NewReadOnly(tempDir, false)
		require.NoError(t, err)
		assert.Equal(t, "abc", ro.GetString(TokenKey))
		assert.ErrorIs(t, ro.Set(TokenKey, "nope"), ErrReadOnly)
		assert.ErrorIs(t, ro.Delete(TokenKey), ErrReadOnly)
	})

	t.Run("reloads on file change", func(t *testing.T) {
		tempDir := t.TempDir()
		s, err := New(tempDir)
		require.NoError(t, err)
		require.NoError(t, s.Set(TokenKey, "old"))

		ro, err := NewReadOnly(tempDir, true)
		require.NoError(t, err)
		defer ro.Close()
		require.Equal(t, "old", ro.GetString(TokenKey))

		require.NoError(t, s.Set(TokenKey, "new"))
		assert.Eventually(t, func() bool {
			return ro.GetString(TokenKey) == "new"
		}, 5*time.Second, 50*time.Millisecond)
	})
}

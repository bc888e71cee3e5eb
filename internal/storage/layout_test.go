package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_paths(t *testing.T) {
	l := NewLayout("/data")
	assert.Equal(t, filepath.Join("/data", "jobs", "abc"), l.JobDir("abc"))
	assert.Equal(t, filepath.Join("/data", "jobs", "abc", "clips"), l.ClipDir("abc"))
	assert.Equal(t, filepath.Join("/data", "jobs", "abc", "output", "montage.mp4"), l.OutputPath("abc"))
}

func TestLayout_SaveInput_and_Remove(t *testing.T) {
	l := NewLayout(t.TempDir())

	path, err := l.SaveInput("j1", "../../etc/song.mp3", strings.NewReader("ID3"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.JobDir("j1"), "input", "song.mp3"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(data))

	path, err = l.SaveInput("j1", "", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "track.mp3", filepath.Base(path))

	require.NoError(t, l.Remove("j1"))
	assert.NoDirExists(t, l.JobDir("j1"))
	require.NoError(t, l.Remove("j1"))
}

func TestLayout_rejects_unsafe_ids(t *testing.T) {
	l := NewLayout(t.TempDir())
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, l.Remove(id), ErrInvalidJobID, id)
		_, err := l.SaveInput(id, "x.mp3", strings.NewReader(""))
		assert.ErrorIs(t, err, ErrInvalidJobID, id)
	}
}

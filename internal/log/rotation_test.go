package log

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFile_RotatesAtMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wire", "calls.log")

	rf, err := NewRotatingFile(path, RotateOptions{MaxSize: 10, MaxBackups: 2})
	require.NoError(t, err)
	defer rf.Close()

	for _, chunk := range []string{"aaaaaaaa", "bbbbbbbb", "cccccccc", "dddddddd"} {
		_, err := rf.Write([]byte(chunk))
		require.NoError(t, err)
	}

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dddddddd", string(current))

	b1, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "cccccccc", string(b1))

	b2, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbb", string(b2))

	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "only maxBackups files are kept")
}

func TestRotatingFile_OversizedWriteIsKeptWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.log")

	rf, err := NewRotatingFile(path, RotateOptions{MaxSize: 4, MaxBackups: 1})
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("a large envelope"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a large envelope", string(data))
}

func TestRotatingFile_ManualRotateAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.log")

	rf, err := NewRotatingFile(path, RotateOptions{MaxBackups: 1})
	require.NoError(t, err)

	_, err = rf.Write([]byte("first"))
	require.NoError(t, err)
	require.NoError(t, rf.Rotate())
	_, err = rf.Write([]byte("second"))
	require.NoError(t, err)

	require.NoError(t, rf.Close())
	require.NoError(t, rf.Close(), "close is idempotent")

	_, err = rf.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)

	b1, _ := os.ReadFile(path + ".1")
	assert.Equal(t, "first", string(b1))
	cur, _ := os.ReadFile(path)
	assert.Equal(t, "second", string(cur))
}

func TestRotatingFile_CompressedBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.log")

	rf, err := NewRotatingFile(path, RotateOptions{MaxSize: 16, MaxBackups: 2, Compress: true})
	require.NoError(t, err)
	defer rf.Close()

	for _, env := range []string{"<rval>one</rval>", "<rval>two</rval>", "<rval>3</rval>"} {
		_, err := rf.Write([]byte(env))
		require.NoError(t, err)
	}

	assert.Equal(t, path+".1.gz", rf.Backup(1))
	assert.Equal(t, "<rval>two</rval>", gunzipFile(t, rf.Backup(1)))
	assert.Equal(t, "<rval>one</rval>", gunzipFile(t, rf.Backup(2)))

	_, err = os.Stat(path + ".1")
	assert.True(t, os.IsNotExist(err), "the uncompressed copy is removed")

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<rval>3</rval>", string(cur))
}

func TestRotatingFile_NoBackupsDiscardsOldLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.log")

	rf, err := NewRotatingFile(path, RotateOptions{MaxSize: 4})
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("old!"))
	require.NoError(t, err)
	_, err = rf.Write([]byte("new"))
	require.NoError(t, err)

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(cur))
	_, err = os.Stat(rf.Backup(1))
	assert.True(t, os.IsNotExist(err))
}

func gunzipFile(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

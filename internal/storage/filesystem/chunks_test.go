package filesystem

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChunkStore(t *testing.T) *ChunkStore {
	t.Helper()
	cs, err := NewChunkStore(t.TempDir())
	require.NoError(t, err)
	return cs
}

func TestSaveAndAssembleChunks(t *testing.T) {
	cs := newTestChunkStore(t)

	// 乱序写入
	for _, part := range []struct {
		index int
		data  string
	}{{2, "ij"}, {0, "abcd"}, {1, "efgh"}} {
		n, err := cs.SaveChunk("sess-1", part.index, strings.NewReader(part.data))
		require.NoError(t, err)
		assert.Equal(t, int64(len(part.data)), n)
		assert.True(t, cs.HasChunk("sess-1", part.index))
	}

	var buf bytes.Buffer
	total, err := cs.Assemble(&buf, "sess-1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	assert.Equal(t, "abcdefghij", buf.String())
}

func TestAssembleManyChunks(t *testing.T) {
	cs := newTestChunkStore(t)

	// 12 个分块，末块不满，倒序写入
	chunkSize := 4
	payload := []byte("0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJK")
	count := (len(payload) + chunkSize - 1) / chunkSize
	require.Equal(t, 12, count)

	for i := count - 1; i >= 0; i-- {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		_, err := cs.SaveChunk("sess-many", i, bytes.NewReader(payload[start:end]))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	total, err := cs.Assemble(&buf, "sess-many", count)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), total)
	assert.Equal(t, payload, buf.Bytes())
}

func TestSaveChunkOverwrites(t *testing.T) {
	cs := newTestChunkStore(t)

	_, err := cs.SaveChunk("sess-1", 0, strings.NewReader("old!"))
	require.NoError(t, err)
	_, err = cs.SaveChunk("sess-1", 0, strings.NewReader("new!"))
	require.NoError(t, err)

	size, err := cs.ChunkSize("sess-1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)

	var buf bytes.Buffer
	_, err = cs.Assemble(&buf, "sess-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "new!", buf.String())
}

func TestAssembleMissingChunk(t *testing.T) {
	cs := newTestChunkStore(t)

	_, err := cs.SaveChunk("sess-1", 0, strings.NewReader("abcd"))
	require.NoError(t, err)
	_, err = cs.SaveChunk("sess-1", 2, strings.NewReader("ij"))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = cs.Assemble(&buf, "sess-1", 3)
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestDeleteChunkAndSession(t *testing.T) {
	cs := newTestChunkStore(t)

	_, err := cs.SaveChunk("sess-1", 0, strings.NewReader("abcd"))
	require.NoError(t, err)
	_, err = cs.SaveChunk("sess-1", 1, strings.NewReader("efgh"))
	require.NoError(t, err)

	require.NoError(t, cs.DeleteChunk("sess-1", 0))
	assert.False(t, cs.HasChunk("sess-1", 0))
	assert.True(t, cs.HasChunk("sess-1", 1))

	// 删除不存在的分块不报错
	require.NoError(t, cs.DeleteChunk("sess-1", 99))

	require.NoError(t, cs.DeleteSession("sess-1"))
	assert.False(t, cs.HasChunk("sess-1", 1))

	_, err = cs.OpenChunk("sess-1", 1)
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestCleanupStale(t *testing.T) {
	cs := newTestChunkStore(t)

	_, err := cs.SaveChunk("old-session", 0, strings.NewReader("abcd"))
	require.NoError(t, err)
	_, err = cs.SaveChunk("fresh-session", 0, strings.NewReader("abcd"))
	require.NoError(t, err)

	// 把旧会话目录的修改时间拨回过去
	oldDir := filepath.Join(cs.basePath, "sessions", "old-session")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldDir, past, past))

	count, err := cs.CleanupStale(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, cs.HasChunk("old-session", 0))
	assert.True(t, cs.HasChunk("fresh-session", 0))
}

func TestNewChunkStoreRequiresPath(t *testing.T) {
	_, err := NewChunkStore("")
	assert.Error(t, err)
}

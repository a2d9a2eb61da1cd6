package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/copilot/pkg/logging"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLexicalIndex_RanksByMatchingTerms(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/parser.cpp", "void parseStream(Reader r) {\n  // stream parser\n}\n")
	writeFile(t, root, "src/util.cpp", "int add(int a, int b) { return a + b; }\n")
	writeFile(t, root, "docs/readme.txt", "stream parser notes")
	writeFile(t, root, ".git/config", "stream parser")

	idx := NewLexicalIndex(WithLogger(logging.NewDisabledLogger()))
	result, err := idx.Query(context.Background(), root, "where is the stream parser?", 20)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "src/parser.cpp", result.Chunks[0].FileName)
	assert.Contains(t, result.Chunks[0].Content, "parseStream")
}

func TestLexicalIndex_TopKAndChunking(t *testing.T) {
	root := t.TempDir()
	content := ""
	for i := 0; i < 10; i++ {
		content += "token line\n"
	}
	writeFile(t, root, "a.go", content)

	idx := NewLexicalIndex(WithChunkLines(2), WithLogger(logging.NewDisabledLogger()))
	result, err := idx.Query(context.Background(), root, "token", 3)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 3)
}

func TestLexicalIndex_PartialIndexNotCompleted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "alpha = 1\n")
	writeFile(t, root, "b.py", "alpha = 2\n")
	writeFile(t, root, "c.py", "alpha = 3\n")

	idx := NewLexicalIndex(WithMaxFiles(1), WithLogger(logging.NewDisabledLogger()))
	result, err := idx.Query(context.Background(), root, "alpha", 20)
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Len(t, result.Chunks, 1)
}

func TestLexicalIndex_CachedUntilInvalidated(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")

	idx := NewLexicalIndex(WithLogger(logging.NewDisabledLogger()))
	ctx := context.Background()

	result, err := idx.Query(ctx, root, "widget", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)

	writeFile(t, root, "b.go", "type widget struct{}\n")
	result, err = idx.Query(ctx, root, "widget", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)

	idx.Invalidate(root)
	result, err = idx.Query(ctx, root, "widget", 5)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 1)
}

func TestLexicalIndex_MissingProject(t *testing.T) {
	idx := NewLexicalIndex(WithLogger(logging.NewDisabledLogger()))
	_, err := idx.Query(context.Background(), filepath.Join(t.TempDir(), "missing"), "x", 1)
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	var q Querier = Unavailable{}
	assert.False(t, q.Available())
	_, err := q.Query(context.Background(), "/p", "x", 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

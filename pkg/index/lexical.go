package index

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/kcaldas/copilot/pkg/language"
	"github.com/kcaldas/copilot/pkg/logging"
)

const (
	defaultChunkLines = 40
	defaultMaxFiles   = 5000
	defaultMaxBytes   = 512 * 1024
	readWorkers       = 8
)

var skippedDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	"node_modules": true,
	"build":        true,
	"vendor":       true,
	".cache":       true,
}

// LexicalOption configures a LexicalIndex.
type LexicalOption func(*LexicalIndex)

// WithChunkLines sets how many lines make up one chunk.
func WithChunkLines(n int) LexicalOption {
	return func(l *LexicalIndex) {
		if n > 0 {
			l.chunkLines = n
		}
	}
}

// WithMaxFiles caps the number of files indexed per project. Projects with
// more files are indexed partially and report Completed=false.
func WithMaxFiles(n int) LexicalOption {
	return func(l *LexicalIndex) {
		if n > 0 {
			l.maxFiles = n
		}
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) LexicalOption {
	return func(l *LexicalIndex) {
		if logger != nil {
			l.logger = logger
		}
	}
}

type project struct {
	chunks   []Chunk
	complete bool
}

// LexicalIndex is an in-process Querier that ranks fixed-size chunks of the
// project's source files by how many prompt terms they contain. A project is
// indexed on its first query and cached until Invalidate.
type LexicalIndex struct {
	mu       sync.Mutex
	projects map[string]*project

	chunkLines int
	maxFiles   int
	logger     logging.Logger
}

// NewLexicalIndex creates an empty index.
func NewLexicalIndex(opts ...LexicalOption) *LexicalIndex {
	l := &LexicalIndex{
		projects:   map[string]*project{},
		chunkLines: defaultChunkLines,
		maxFiles:   defaultMaxFiles,
		logger:     logging.NewComponentLogger("index"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Available always reports true; the lexical index has no external backend.
func (l *LexicalIndex) Available() bool { return true }

// Invalidate drops the cached index of projectPath.
func (l *LexicalIndex) Invalidate(projectPath string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.projects, filepath.Clean(projectPath))
}

// Query returns the topK best chunks for prompt. Chunks without any matching
// term are never returned.
func (l *LexicalIndex) Query(ctx context.Context, projectPath, prompt string, topK int) (Result, error) {
	p, err := l.project(ctx, filepath.Clean(projectPath))
	if err != nil {
		return Result{}, err
	}

	terms := tokenize(prompt)
	if len(terms) == 0 || topK <= 0 {
		return Result{Completed: p.complete}, nil
	}

	type scored struct {
		chunk Chunk
		score int
	}
	var candidates []scored
	for _, c := range p.chunks {
		if s := score(c.Content, terms); s > 0 {
			candidates = append(candidates, scored{chunk: c, score: s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	result := Result{Completed: p.complete, Chunks: make([]Chunk, 0, len(candidates))}
	for _, c := range candidates {
		result.Chunks = append(result.Chunks, c.chunk)
	}
	return result, nil
}

func (l *LexicalIndex) project(ctx context.Context, root string) (*project, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.projects[root]; ok {
		return p, nil
	}
	p, err := l.build(ctx, root)
	if err != nil {
		return nil, err
	}
	l.projects[root] = p
	return p, nil
}

func (l *LexicalIndex) build(ctx context.Context, root string) (*project, error) {
	files, complete, err := l.collect(root)
	if err != nil {
		return nil, err
	}

	perFile := make([][]Chunk, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readWorkers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				l.logger.Debug("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			if bytes.IndexByte(data, 0) >= 0 {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			perFile[i] = splitChunks(filepath.ToSlash(rel), string(data), l.chunkLines)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", root, err)
	}

	p := &project{complete: complete}
	for _, chunks := range perFile {
		p.chunks = append(p.chunks, chunks...)
	}
	l.logger.Debug("project indexed", "root", root, "files", len(files), "chunks", len(p.chunks), "complete", complete)
	return p, nil
}

func (l *LexicalIndex) collect(root string) ([]string, bool, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, false, fmt.Errorf("indexing %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, false, fmt.Errorf("indexing %s: not a directory", root)
	}

	var files []string
	complete := true
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !language.Known(path) {
			return nil
		}
		if fi, err := d.Info(); err != nil || fi.Size() > defaultMaxBytes {
			return nil
		}
		if len(files) >= l.maxFiles {
			complete = false
			return filepath.SkipAll
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return files, complete, nil
}

func splitChunks(name, content string, size int) []Chunk {
	lines := strings.SplitAfter(content, "\n")
	var chunks []Chunk
	for start := 0; start < len(lines); start += size {
		end := start + size
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start:end], "")
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{FileName: name, Content: text})
	}
	return chunks
}

func tokenize(text string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		if len([]rune(field)) < 2 || seen[field] {
			continue
		}
		seen[field] = true
		terms = append(terms, field)
	}
	return terms
}

func score(content string, terms []string) int {
	lower := strings.ToLower(content)
	total := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			total++
		}
	}
	return total
}

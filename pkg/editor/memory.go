package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Annotation is an end-of-line note shown by Memory.
type Annotation struct {
	File     string
	Title    string
	Contents string
	Line     int
}

// Memory is a single-document editor kept in memory. Offsets are byte offsets
// into the text.
type Memory struct {
	mu          sync.Mutex
	file        string
	text        string
	cursor      int
	selFrom     int
	selTo       int
	completions []string
	finished    int
	annotations []Annotation
	handlers    []SelectionHandler
}

// NewMemory creates an editor showing text as file, with the cursor at the end.
func NewMemory(file, text string) *Memory {
	return &Memory{file: file, text: text, cursor: len(text), selFrom: -1, selTo: -1}
}

// Open loads path into a new Memory.
func Open(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return NewMemory(abs, string(data)), nil
}

// Save writes the current text back to the file.
func (m *Memory) Save() error {
	m.mu.Lock()
	file, text := m.file, m.text
	m.mu.Unlock()

	if err := os.WriteFile(file, []byte(text), 0o644); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	return nil
}

// Text returns the whole document.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// OnSelectionChanged registers h for selection changes.
func (m *Memory) OnSelectionChanged(h SelectionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// SetCursor moves the cursor to line and column, clamping column to the line.
func (m *Memory) SetCursor(line, column int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset, err := m.offset(line, column)
	if err != nil {
		return err
	}
	m.cursor = offset
	return nil
}

// Select selects lines from..to inclusive and puts the cursor at the end of
// the selection. Selection handlers are called after the change.
func (m *Memory) Select(from, to int) error {
	m.mu.Lock()
	if from > to {
		from, to = to, from
	}
	start, err := m.offset(from, 0)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	end, err := m.offset(to+1, 0)
	if err != nil {
		end = len(m.text)
	}
	m.selFrom, m.selTo, m.cursor = start, end, end
	endLine, endCol := m.position(end)
	file, handlers := m.file, append([]SelectionHandler(nil), m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(file, from, 0, endLine, endCol)
	}
	return nil
}

// ClearSelection drops the selection and notifies handlers with lineFrom -1.
func (m *Memory) ClearSelection() {
	m.mu.Lock()
	m.selFrom, m.selTo = -1, -1
	file, handlers := m.file, append([]SelectionHandler(nil), m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(file, -1, -1, -1, -1)
	}
}

// Completions returns the items last offered with SetInlineCompletions.
func (m *Memory) Completions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.completions...)
}

// FinishedCount is the number of Finished calls so far.
func (m *Memory) FinishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

// Annotations returns the current annotations ordered by line.
func (m *Memory) Annotations() []Annotation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Annotation(nil), m.annotations...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func (m *Memory) SetInlineCompletions(items []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append([]string(nil), items...)
}

func (m *Memory) Finished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished++
}

func (m *Memory) InlineCompletionContext() InlineContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return InlineContext{Prefix: m.text[:m.cursor], Suffix: m.text[m.cursor:]}
}

func (m *Memory) SelectedText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selFrom < 0 {
		return ""
	}
	return m.text[m.selFrom:m.selTo]
}

// ReplaceSelectedText replaces the selection with text, or inserts text at
// the cursor when nothing is selected.
func (m *Memory) ReplaceSelectedText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selFrom < 0 {
		m.insert(text)
		return
	}
	m.text = m.text[:m.selFrom] + text + m.text[m.selTo:]
	m.cursor = m.selFrom + len(text)
	m.selFrom, m.selTo = -1, -1
}

func (m *Memory) InsertText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(text)
}

func (m *Memory) CurrentFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file
}

func (m *Memory) CursorPosition() Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	line, col := m.position(m.cursor)
	return Position{Line: line, Column: col}
}

func (m *Memory) EOLAnnotate(fileName, title, contents string, line int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.annotations = append(m.annotations, Annotation{File: fileName, Title: title, Contents: contents, Line: line})
}

func (m *Memory) ClearAllEOLAnnotation(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.annotations[:0]
	for _, a := range m.annotations {
		if a.Title != title {
			kept = append(kept, a)
		}
	}
	m.annotations = kept
}

func (m *Memory) insert(text string) {
	m.text = m.text[:m.cursor] + text + m.text[m.cursor:]
	m.cursor += len(text)
}

// offset converts a line and column to a byte offset. Callers hold mu.
func (m *Memory) offset(line, column int) (int, error) {
	if line < 0 {
		return 0, fmt.Errorf("line %d out of range", line)
	}
	start := 0
	for i := 0; i < line; i++ {
		next := strings.IndexByte(m.text[start:], '\n')
		if next < 0 {
			return 0, fmt.Errorf("line %d out of range", line)
		}
		start += next + 1
	}
	end := strings.IndexByte(m.text[start:], '\n')
	if end < 0 {
		end = len(m.text) - start
	}
	if column < 0 || column > end {
		column = end
	}
	return start + column, nil
}

// position converts a byte offset to a line and column. Callers hold mu.
func (m *Memory) position(offset int) (int, int) {
	before := m.text[:offset]
	line := strings.Count(before, "\n")
	return line, offset - (strings.LastIndexByte(before, '\n') + 1)
}

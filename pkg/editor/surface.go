// Package editor describes what the copilot needs from the code editor and
// provides an in-memory editor for the CLI and tests.
package editor

// InlineContext is the text around the cursor used for inline completion.
type InlineContext struct {
	Prefix string
	Suffix string
}

// Position is a zero-based line and column. Line is -1 when there is no cursor.
type Position struct {
	Line   int
	Column int
}

// SelectionHandler receives selection changes. lineFrom is -1 when the
// selection was cleared.
type SelectionHandler func(fileName string, lineFrom, indexFrom, lineTo, indexTo int)

// Surface is the editor seen by the copilot.
type Surface interface {
	// SetInlineCompletions offers items as ghost text at the cursor.
	SetInlineCompletions(items []string)
	// Finished signals that the offered completions are final.
	Finished()
	InlineCompletionContext() InlineContext

	SelectedText() string
	ReplaceSelectedText(text string)
	InsertText(text string)
	CurrentFile() string
	CursorPosition() Position

	// EOLAnnotate shows contents at the end of line, grouped under title.
	EOLAnnotate(fileName, title, contents string, line int)
	ClearAllEOLAnnotation(title string)
}

package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// DefaultFile is where chat prompts are kept between runs.
const DefaultFile = "~/.config/unioncode/copilot_history"

const maxEntries = 50

// PromptHistory remembers the prompts sent from the command line.
type PromptHistory interface {
	Add(prompt string)
	List() []string
	Load() error
	Save() error
}

// FilePromptHistory implements PromptHistory with optional file persistence.
type FilePromptHistory struct {
	filePath    string
	prompts     []string
	maxSize     int
	saveEnabled bool
}

// NewPromptHistory creates a history stored at filePath. With saveEnabled
// false nothing is read from or written to disk.
func NewPromptHistory(filePath string, saveEnabled bool) PromptHistory {
	if expanded, err := homedir.Expand(filePath); err == nil {
		filePath = expanded
	}
	return &FilePromptHistory{
		filePath:    filePath,
		maxSize:     maxEntries,
		saveEnabled: saveEnabled,
	}
}

// Add appends prompt, moving an earlier identical prompt to the end.
func (h *FilePromptHistory) Add(prompt string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return
	}

	for i, existing := range h.prompts {
		if existing == prompt {
			h.prompts = append(h.prompts[:i], h.prompts[i+1:]...)
			break
		}
	}
	h.prompts = append(h.prompts, prompt)
	h.trim()

	if h.saveEnabled {
		if err := h.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
}

// List returns the prompts, oldest first.
func (h *FilePromptHistory) List() []string {
	return append([]string(nil), h.prompts...)
}

// Load reads the history file. A missing file leaves the history empty.
func (h *FilePromptHistory) Load() error {
	if !h.saveEnabled {
		return nil
	}

	file, err := os.Open(h.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	h.prompts = h.prompts[:0]
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Lines are Go-quoted so multi-line prompts fit on one line.
		prompt, err := strconv.Unquote(line)
		if err != nil {
			prompt = line
		}
		h.prompts = append(h.prompts, prompt)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}

	h.trim()
	return nil
}

// Save writes the history file, creating its directory when needed.
func (h *FilePromptHistory) Save() error {
	if !h.saveEnabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(h.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	var b strings.Builder
	for _, prompt := range h.prompts {
		b.WriteString(strconv.Quote(prompt))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(h.filePath, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

func (h *FilePromptHistory) trim() {
	if len(h.prompts) > h.maxSize {
		h.prompts = h.prompts[len(h.prompts)-h.maxSize:]
	}
}

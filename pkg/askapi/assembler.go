package askapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/index"
	"github.com/kcaldas/copilot/pkg/language"
	"github.com/kcaldas/copilot/pkg/logging"
)

// CodebaseTopK is the number of chunks requested from the project index.
const CodebaseTopK = 20

const codebaseInstruction = "\n 参考下面这些代码片段，回答上面的问题。不要参考其他的代码和上下文，数据不够充分的情况下提示用户\n"

// ProjectFunc returns the workspace folder of the active project, or "".
type ProjectFunc func() string

// Assembled is a serialized chat body.
type Assembled struct {
	Body []byte
	// Augmented is true when the prompt was rewritten with codebase chunks
	// and the history was dropped; the caller should clear its own history.
	Augmented bool
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithIndex sets the project index used for codebase augmentation.
func WithIndex(q index.Querier) AssemblerOption {
	return func(a *Assembler) {
		if q != nil {
			a.index = q
		}
	}
}

// WithProject sets how the active project path is looked up.
func WithProject(fn ProjectFunc) AssemblerOption {
	return func(a *Assembler) {
		if fn != nil {
			a.project = fn
		}
	}
}

// WithPublisher sets where index notices are published.
func WithPublisher(p events.Publisher) AssemblerOption {
	return func(a *Assembler) {
		if p != nil {
			a.publisher = p
		}
	}
}

// WithTokenCounter sets the counter used to trim history to the token budget.
func WithTokenCounter(c TokenCounter) AssemblerOption {
	return func(a *Assembler) {
		if c != nil {
			a.counter = c
		}
	}
}

// WithHistoryBudget caps prompt plus history at n tokens. Zero disables trimming.
func WithHistoryBudget(n int) AssemblerOption {
	return func(a *Assembler) {
		a.historyBudget = n
	}
}

// WithAssemblerLogger injects a custom logger implementation.
func WithAssemblerLogger(logger logging.Logger) AssemblerOption {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Assembler builds request bodies. Its feature flags may be changed at any
// time; each body is built from a snapshot of them.
type Assembler struct {
	mu             sync.RWMutex
	model          string
	locale         string
	codebase       bool
	network        bool
	referenceFiles []string

	index         index.Querier
	project       ProjectFunc
	publisher     events.Publisher
	counter       TokenCounter
	historyBudget int
	logger        logging.Logger
}

// NewAssembler creates an Assembler for model and locale.
func NewAssembler(model, locale string, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		model:     model,
		locale:    locale,
		index:     index.Unavailable{},
		project:   func() string { return "" },
		publisher: &events.NoOpEventBus{},
		counter:   NewTiktokenCounter(),
		logger:    logging.NewComponentLogger("askapi"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assembler) SetModel(model string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = model
}

func (a *Assembler) Model() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

func (a *Assembler) SetLocale(locale string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locale = locale
}

func (a *Assembler) Locale() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.locale
}

func (a *Assembler) SetCodebaseEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codebase = enabled
}

func (a *Assembler) CodebaseEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.codebase
}

func (a *Assembler) SetNetworkEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.network = enabled
}

func (a *Assembler) NetworkEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.network
}

// SetReferenceFiles sets the files attached to following chat requests.
func (a *Assembler) SetReferenceFiles(paths []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.referenceFiles = append([]string(nil), paths...)
}

func (a *Assembler) ReferenceFiles() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.referenceFiles...)
}

type filesPayload struct {
	Files []ReferenceFile `json:"files"`
}

type snapshot struct {
	model, locale     string
	codebase, network bool
	referenceFiles    []string
}

func (a *Assembler) snapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		model:          a.model,
		locale:         a.locale,
		codebase:       a.codebase,
		network:        a.network,
		referenceFiles: append([]string(nil), a.referenceFiles...),
	}
}

// ChatBody builds the body of a chat request. It may block on the project
// index and on reading reference files; run it off the interactive path.
func (a *Assembler) ChatBody(ctx context.Context, req ChatRequest) (Assembled, error) {
	s := a.snapshot()

	history := req.History
	if history == nil {
		history = []HistoryPair{}
	}
	prompt := req.Prompt
	augmented := false

	if projectPath := a.project(); s.codebase && projectPath != "" {
		result, err := a.index.Query(ctx, projectPath, req.Prompt, CodebaseTopK)
		if err != nil {
			a.logger.Warn("project index query failed", "project", projectPath, "error", err)
		}

		switch {
		case len(result.Chunks) > 0:
			if !result.Completed {
				events.Emit(a.publisher, events.NotificationEvent{
					Level:   "warning",
					Message: fmt.Sprintf("The indexing of project %s has not been completed, which may cause the results to be inaccurate.", projectPath),
				})
			}
			prompt = withChunks(req.Prompt, result.Chunks)
			history = []HistoryPair{}
			augmented = true
		case !a.index.Available():
			events.Emit(a.publisher, events.NoChunksFoundEvent{ProjectPath: projectPath})
			return Assembled{}, ErrAugmentationUnavailable
		}
	}

	if !augmented {
		history = a.trimHistory(prompt, history)
	}

	body := map[string]any{
		"prompt":    prompt,
		"machineId": req.MachineID,
		"history":   history,
		"locale":    s.locale,
		"model":     s.model,
	}

	switch {
	case len(s.referenceFiles) > 0:
		files, err := readReferenceFiles(ctx, s.referenceFiles)
		if err != nil {
			return Assembled{}, err
		}
		body["command"] = CommandFileAugment
		body["files"] = filesPayload{Files: files}
	case s.network:
		body["command"] = CommandOnlineSearch
	}
	if req.Command != "" {
		body["command"] = req.Command
	}
	for key, value := range req.Extra {
		body[key] = value
	}

	if req.TalkID != "" {
		body["talkId"] = req.TalkID
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Assembled{}, fmt.Errorf("marshal chat body: %w", err)
	}
	return Assembled{Body: data, Augmented: augmented}, nil
}

// CommandBody builds the body of a command request (fix bug, explain, commit
// message...). Commands carry their own context, so the prompt is never
// augmented, reference files are not attached and history is ignored.
func (a *Assembler) CommandBody(req ChatRequest) ([]byte, error) {
	s := a.snapshot()
	body := map[string]any{
		"prompt":    req.Prompt,
		"machineId": req.MachineID,
		"history":   []HistoryPair{},
		"locale":    s.locale,
		"model":     s.model,
	}
	if req.Command != "" {
		body["command"] = req.Command
	}
	for key, value := range req.Extra {
		body[key] = value
	}
	if req.TalkID != "" {
		body["talkId"] = req.TalkID
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal command body: %w", err)
	}
	return data, nil
}

func withChunks(prompt string, chunks []index.Chunk) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString(codebaseInstruction)
	for _, chunk := range chunks {
		b.WriteString(chunk.FileName)
		b.WriteByte('\n')
		b.WriteString(chunk.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// trimHistory drops the oldest pairs until prompt and history fit the budget.
func (a *Assembler) trimHistory(prompt string, history []HistoryPair) []HistoryPair {
	if a.historyBudget <= 0 || len(history) == 0 {
		return history
	}

	used := a.counter.Count(prompt)
	kept := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := a.counter.Count(history[i].Query) + a.counter.Count(history[i].Answer)
		if used+cost > a.historyBudget {
			break
		}
		used += cost
		kept = i
	}
	if kept == len(history) {
		return []HistoryPair{}
	}
	if kept > 0 {
		a.logger.Debug("trimmed chat history", "dropped", kept, "budget", a.historyBudget)
	}
	return history[kept:]
}

// readReferenceFiles loads every attached file concurrently, keeping order.
// Unreadable files are sent with name and language only.
func readReferenceFiles(ctx context.Context, paths []string) ([]ReferenceFile, error) {
	files := make([]ReferenceFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files[i] = ReferenceFile{
				Name:     filepath.Base(path),
				Language: language.ID(path),
			}
			if data, err := os.ReadFile(path); err == nil {
				files[i].Content = string(data)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading reference files: %w", err)
	}
	return files, nil
}

// NewSessionBody builds the body of a new-session request.
func NewSessionBody(prompt, talkID string) ([]byte, error) {
	return json.Marshal(map[string]string{"prompt": prompt, "talkId": talkID})
}

// DeleteSessionsBody builds the body of a delete-sessions request: a JSON array of talk ids.
func DeleteSessionsBody(talkIDs []string) ([]byte, error) {
	if talkIDs == nil {
		talkIDs = []string{}
	}
	return json.Marshal(talkIDs)
}

package askapi

// Commands understood by the chat endpoint.
const (
	CommandFileAugment   = "file_augment"
	CommandOnlineSearch  = "online_search"
	CommandFixBug        = "fixbug"
	CommandExplain       = "explain"
	CommandReview        = "code_check"
	CommandTests         = "tests"
	CommandComment       = "comment"
	CommandCommitMessage = "commit_message"
)

// CodeTokenHeader carries the user's access token on every request.
const CodeTokenHeader = "code-token"

// HistoryPair is one earlier exchange of a conversation.
type HistoryPair struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// ChatRequest is the input of a chat call.
type ChatRequest struct {
	Prompt    string
	MachineID string
	TalkID    string
	History   []HistoryPair
	// Command overrides the command chosen by the assembler (file_augment or
	// online_search). Used by the fix bug, explain, review and tests actions.
	Command string
	// Extra fields are copied into the body as-is.
	Extra map[string]any
}

// ReferenceFile is an attached file embedded in a file_augment request.
type ReferenceFile struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content,omitempty"`
}

// SessionRecord summarises a conversation stored by the service.
type SessionRecord struct {
	TalkID      string
	CreatedTime string
	Prompt      string
}

// MessageRecord is one stored exchange of a conversation.
type MessageRecord struct {
	Input  string
	Output string
}

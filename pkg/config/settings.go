package config

import (
	"time"
)

// Endpoints used when nothing is configured.
const (
	DefaultChatURL       = "https://codegeex.cn/prod/code/chatCodeSseV3/chat"
	DefaultCompletionURL = "https://api.codegeex.cn:8443/v3/completions/inline?stream=false"
	DefaultSessionURL    = "https://codegeex.cn/prod/code/chatGlmTalk"
	DefaultAccountURL    = "https://codegeex.cn/prod/code/oauth"
	DefaultLoginURL      = "https://codegeex.cn/auth"
	DefaultModel         = "codegeex-4"
	DefaultLocale        = "zh"
)

// Settings is the resolved copilot configuration.
type Settings struct {
	Token          string
	MachineID      string
	ChatURL        string
	CompletionURL  string
	SessionURL     string
	AccountURL     string
	LoginURL       string
	Model          string
	Locale         string
	CommitsLocale  string
	Codebase       bool
	Network        bool
	CompletionMode string
	Debounce       time.Duration
	HistoryTokens  int
}

// LoadSettings resolves Settings from m.
func LoadSettings(m Manager) Settings {
	locale := m.GetStringWithDefault("COPILOT_LOCALE", DefaultLocale)
	return Settings{
		Token:          m.GetStringWithDefault("COPILOT_TOKEN", ""),
		MachineID:      m.GetStringWithDefault("COPILOT_MACHINE_ID", ""),
		ChatURL:        m.GetStringWithDefault("COPILOT_CHAT_URL", DefaultChatURL),
		CompletionURL:  m.GetStringWithDefault("COPILOT_COMPLETION_URL", DefaultCompletionURL),
		SessionURL:     m.GetStringWithDefault("COPILOT_SESSION_URL", DefaultSessionURL),
		AccountURL:     m.GetStringWithDefault("COPILOT_ACCOUNT_URL", DefaultAccountURL),
		LoginURL:       m.GetStringWithDefault("COPILOT_LOGIN_URL", DefaultLoginURL),
		Model:          m.GetStringWithDefault("COPILOT_MODEL", DefaultModel),
		Locale:         locale,
		CommitsLocale:  m.GetStringWithDefault("COPILOT_COMMITS_LOCALE", locale),
		Codebase:       m.GetBoolWithDefault("COPILOT_CODEBASE", false),
		Network:        m.GetBoolWithDefault("COPILOT_NETWORK", false),
		CompletionMode: m.GetStringWithDefault("COPILOT_COMPLETION_MODE", "block"),
		Debounce:       m.GetDurationWithDefault("COPILOT_DEBOUNCE", 500*time.Millisecond),
		HistoryTokens:  m.GetIntWithDefault("COPILOT_HISTORY_TOKENS", 6000),
	}
}

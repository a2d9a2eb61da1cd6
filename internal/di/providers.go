package di

import (
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kcaldas/copilot/pkg/askapi"
	"github.com/kcaldas/copilot/pkg/completion"
	"github.com/kcaldas/copilot/pkg/config"
	"github.com/kcaldas/copilot/pkg/copilot"
	"github.com/kcaldas/copilot/pkg/editor"
	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/index"
	"github.com/kcaldas/copilot/pkg/logging"
)

// WorkDir is the project folder the copilot works in.
type WorkDir string

// ConfigPath is the YAML configuration file. Empty means the default location.
type ConfigPath string

// ProvidePublisher narrows the bus handed to the injector for the components
// that only publish.
func ProvidePublisher(bus events.EventBus) events.Publisher {
	return bus
}

// ProvideConfigManager loads the configuration file and .env on top of the environment.
func ProvideConfigManager(path ConfigPath) (config.Manager, error) {
	if path == "" {
		path = config.DefaultConfigFile
	}
	return config.LoadConfigManager(string(path))
}

// ProvideSettings resolves the settings, inventing a machine id when none is configured.
func ProvideSettings(m config.Manager) config.Settings {
	settings := config.LoadSettings(m)
	if settings.MachineID == "" {
		settings.MachineID = uuid.NewString()
		logging.GetGlobalLogger().Debug("no machine id configured, using a random one", "machine_id", settings.MachineID)
	}
	return settings
}

// ProvideProject returns the active project folder.
func ProvideProject(dir WorkDir) askapi.ProjectFunc {
	abs, err := filepath.Abs(string(dir))
	if err != nil {
		abs = string(dir)
	}
	return func() string { return abs }
}

func ProvideIndex() index.Querier {
	return index.NewLexicalIndex()
}

func ProvideAssembler(settings config.Settings, idx index.Querier, project askapi.ProjectFunc, publisher events.Publisher) *askapi.Assembler {
	a := askapi.NewAssembler(settings.Model, settings.Locale,
		askapi.WithIndex(idx),
		askapi.WithProject(project),
		askapi.WithPublisher(publisher),
		askapi.WithHistoryBudget(settings.HistoryTokens),
	)
	a.SetCodebaseEnabled(settings.Codebase)
	a.SetNetworkEnabled(settings.Network)
	return a
}

func ProvideChatClient(assembler *askapi.Assembler) *askapi.Client {
	return askapi.NewClient(assembler)
}

func ProvideSessionStore(settings config.Settings, publisher events.Publisher) *askapi.SessionStore {
	return askapi.NewSessionStore(askapi.DefaultSessionEndpoints(settings.SessionURL), askapi.WithSessionPublisher(publisher))
}

func ProvideAccount(settings config.Settings, publisher events.Publisher) *askapi.Account {
	return askapi.NewAccount(settings.AccountURL, settings.LoginURL, publisher, nil)
}

// ProvideGenerator provides the inline completion backend. Model and locale
// follow the assembler so settings changes apply to both.
func ProvideGenerator(settings config.Settings, assembler *askapi.Assembler) completion.Generator {
	return completion.NewClient(settings.CompletionURL, settings.Token, assembler.Model, assembler.Locale)
}

func ProvideController(surface editor.Surface, generator completion.Generator, settings config.Settings) *completion.Controller {
	return completion.NewController(surface, generator,
		completion.WithMode(completion.ParseMode(settings.CompletionMode)),
		completion.WithDebounce(settings.Debounce),
	)
}

func ProvideCopilotService(
	settings config.Settings,
	client *askapi.Client,
	sessions *askapi.SessionStore,
	account *askapi.Account,
	controller *completion.Controller,
	surface editor.Surface,
	project askapi.ProjectFunc,
	bus events.EventBus,
) copilot.Copilot {
	return copilot.New(settings, client, sessions, account, controller, surface, project, bus)
}

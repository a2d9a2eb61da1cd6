//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/kcaldas/copilot/pkg/config"
	"github.com/kcaldas/copilot/pkg/copilot"
	"github.com/kcaldas/copilot/pkg/editor"
	"github.com/kcaldas/copilot/pkg/events"
)

// ProvideCopilot builds the copilot service for the editor surface. Every
// component publishes on bus.
func ProvideCopilot(surface editor.Surface, bus events.EventBus, dir WorkDir, path ConfigPath) (copilot.Copilot, error) {
	wire.Build(
		// Configuration
		ProvideConfigManager,
		ProvideSettings,

		// Event bus
		ProvidePublisher,

		// Chat, sessions and account
		ProvideProject,
		ProvideIndex,
		ProvideAssembler,
		ProvideChatClient,
		ProvideSessionStore,
		ProvideAccount,

		// Inline completion
		ProvideGenerator,
		ProvideController,

		ProvideCopilotService,
	)
	return nil, nil
}

// ProvideSettingsFrom resolves settings without building the service.
func ProvideSettingsFrom(path ConfigPath) (config.Settings, error) {
	wire.Build(ProvideConfigManager, ProvideSettings)
	return config.Settings{}, nil
}

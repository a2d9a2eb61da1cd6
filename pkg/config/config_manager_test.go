package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetString(t *testing.T) {
	manager := NewConfigManager()
	t.Setenv("COPILOT_TEST_KEY", "test_value")

	value, err := manager.GetString("COPILOT_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "test_value", value)

	_, err = manager.GetString("COPILOT_NON_EXISTENT_KEY")
	assert.Error(t, err)
}

func TestManager_Defaults(t *testing.T) {
	manager := NewConfigManager()
	t.Setenv("COPILOT_TEST_INT", "not-a-number")
	t.Setenv("COPILOT_TEST_BOOL", "true")
	t.Setenv("COPILOT_TEST_DURATION", "250ms")

	assert.Equal(t, "fallback", manager.GetStringWithDefault("COPILOT_MISSING", "fallback"))
	assert.Equal(t, 7, manager.GetIntWithDefault("COPILOT_TEST_INT", 7))
	assert.True(t, manager.GetBoolWithDefault("COPILOT_TEST_BOOL", false))
	assert.Equal(t, 250*time.Millisecond, manager.GetDurationWithDefault("COPILOT_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, manager.GetDurationWithDefault("COPILOT_MISSING", time.Second))
}

func TestManager_RequireString_Panics(t *testing.T) {
	manager := NewConfigManager()
	assert.Panics(t, func() {
		manager.RequireString("COPILOT_NON_EXISTENT_KEY")
	})
}

func TestLoadConfigManager_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("copilot_locale: en\nCOPILOT_HISTORY_TOKENS: 42\ncopilot_codebase: true\n"), 0o644))

	manager, err := LoadConfigManager(path)
	require.NoError(t, err)

	settings := LoadSettings(manager)
	assert.Equal(t, "en", settings.Locale)
	assert.Equal(t, "en", settings.CommitsLocale)
	assert.Equal(t, 42, settings.HistoryTokens)
	assert.True(t, settings.Codebase)
	assert.Equal(t, DefaultChatURL, settings.ChatURL)
}

func TestLoadConfigManager_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("COPILOT_MODEL: from-file\n"), 0o644))
	t.Setenv("COPILOT_MODEL", "from-env")

	manager, err := LoadConfigManager(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", LoadSettings(manager).Model)
}

func TestLoadConfigManager_MissingFile(t *testing.T) {
	manager, err := LoadConfigManager(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLocale, LoadSettings(manager).Locale)
}

func TestLoadConfigManager_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not yaml"), 0o644))

	_, err := LoadConfigManager(path)
	assert.Error(t, err)
}

package config

import (
	"strings"

	"github.com/diogo/aichat/internal/models"
)

// Settings store keys
const (
	KeyAPIKey       = "openai_api_key"
	KeyModel        = "openai_model"
	KeySystemPrompt = "openai_system_prompt"
)

// Settings holds the per-user request settings
type Settings struct {
	APIKey       string
	Model        string
	SystemPrompt string
}

// DefaultSettings returns settings with no key and the default model and prompt
func DefaultSettings() Settings {
	return Settings{
		Model:        models.DefaultModel,
		SystemPrompt: models.DefaultSystemPrompt,
	}
}

// HasAPIKey reports whether an API key is set
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// MaskedKey returns the API key with all but its last four characters hidden
func (s Settings) MaskedKey() string {
	return MaskKey(s.APIKey)
}

// MaskKey hides all but the last four characters of key
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return strings.Repeat("*", len(key))
	default:
		return strings.Repeat("*", 8) + key[len(key)-4:]
	}
}

// WithFallbackKey returns s with key applied when s has no API key of its own
func (s Settings) WithFallbackKey(key string) Settings {
	if !s.HasAPIKey() {
		s.APIKey = strings.TrimSpace(key)
	}
	return s
}

// LoadSettings reads settings from store. Missing or empty entries fall back
// to their defaults; a missing key stays empty.
func LoadSettings(store KVStore) (Settings, error) {
	s := DefaultSettings()

	key, _, err := store.Get(KeyAPIKey)
	if err != nil {
		return s, err
	}
	s.APIKey = key

	if model, ok, err := store.Get(KeyModel); err != nil {
		return s, err
	} else if ok && strings.TrimSpace(model) != "" {
		s.Model = model
	}

	if prompt, ok, err := store.Get(KeySystemPrompt); err != nil {
		return s, err
	} else if ok && strings.TrimSpace(prompt) != "" {
		s.SystemPrompt = prompt
	}

	return s, nil
}

// SaveSettings writes all three settings in a single update
func SaveSettings(store KVStore, s Settings) error {
	return store.SetAll(map[string]string{
		KeyAPIKey:       s.APIKey,
		KeyModel:        s.Model,
		KeySystemPrompt: s.SystemPrompt,
	})
}

// ResetSettings removes every stored setting
func ResetSettings(store KVStore) error {
	return store.Delete(KeyAPIKey, KeyModel, KeySystemPrompt)
}

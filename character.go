package eliza

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Style holds writing directions applied when the agent speaks in chat or
// posts. All entries are prepended to both.
type Style struct {
	All  []string `yaml:"all" json:"all"`
	Chat []string `yaml:"chat" json:"chat"`
	Post []string `yaml:"post" json:"post"`
}

// CharacterSettings carries character-scoped configuration. Secrets resolve
// before plain settings in the layered lookup (see Settings).
type CharacterSettings struct {
	Secrets map[string]string `yaml:"secrets" json:"secrets"`
	Values  map[string]string `yaml:"values" json:"values"`
}

// Character is the static persona definition the runtime animates: identity,
// flavor lists sampled into each turn's state, declared knowledge, and
// per-template overrides.
type Character struct {
	Name       string            `yaml:"name" json:"name"`
	Username   string            `yaml:"username" json:"username"`
	System     string            `yaml:"system" json:"system"`
	Bio        []string          `yaml:"bio" json:"bio"`
	Lore       []string          `yaml:"lore" json:"lore"`
	Topics     []string          `yaml:"topics" json:"topics"`
	Adjectives []string          `yaml:"adjectives" json:"adjectives"`
	Knowledge  []string          `yaml:"knowledge" json:"knowledge"`
	Style      Style             `yaml:"style" json:"style"`
	Settings   CharacterSettings `yaml:"settings" json:"settings"`
	Templates  map[string]string `yaml:"templates" json:"templates"`
}

// LoadCharacter reads a character definition from a YAML file. A missing or
// nameless character is a configuration error.
func LoadCharacter(path string) (*Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading character file: %w", err)
	}
	var character Character
	if err := yaml.Unmarshal(data, &character); err != nil {
		return nil, fmt.Errorf("parsing character file %s: %w", path, err)
	}
	if character.Name == "" {
		return nil, fmt.Errorf("character file %s: %w", path, ErrCharacterRequired)
	}
	return &character, nil
}

package eliza

import "strings"

// Settings resolves configuration keys through an ordered chain: character
// secrets, then character settings, then process environment. The snapshot
// is taken once at construction; later environment changes are not seen.
type Settings struct {
	secrets   map[string]string
	character map[string]string
	process   map[string]string
}

// NewSettings builds a settings snapshot for the given character and the
// process environment in "KEY=VALUE" form (typically os.Environ()).
func NewSettings(character *Character, environ []string) *Settings {
	s := &Settings{
		secrets:   map[string]string{},
		character: map[string]string{},
		process:   map[string]string{},
	}
	if character != nil {
		for k, v := range character.Settings.Secrets {
			s.secrets[k] = v
		}
		for k, v := range character.Settings.Values {
			s.character[k] = v
		}
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			s.process[k] = v
		}
	}
	return s
}

// Get resolves key through the chain, reporting whether any layer held it.
func (s *Settings) Get(key string) (string, bool) {
	if v, ok := s.secrets[key]; ok {
		return v, true
	}
	if v, ok := s.character[key]; ok {
		return v, true
	}
	if v, ok := s.process[key]; ok {
		return v, true
	}
	return "", false
}

package credentials

import (
	"strings"
	"sync"

	"basemap/internal/analysis"
)

// Keys kept by a Store.
const (
	KeyPAT          = "pat"
	KeyBaseID       = "baseId"
	KeyGeminiAPIKey = "geminiApiKey"
	KeyGeminiPrompt = "geminiPrompt"
)

var Keys = []string{KeyPAT, KeyBaseID, KeyGeminiAPIKey, KeyGeminiPrompt}

// Store holds the user's credentials between runs. Writes are best effort:
// implementations log persistence failures instead of returning them.
type Store interface {
	Get(key string) string
	Set(key, value string)
	Delete(key string)
	// Purge removes every key in one go.
	Purge()
}

// Credentials is a snapshot of a Store.
type Credentials struct {
	PAT          string
	BaseID       string
	GeminiAPIKey string
	GeminiPrompt string
}

// Load reads all keys. An unset prompt yields the default analysis prompt.
func Load(s Store) Credentials {
	c := Credentials{
		PAT:          s.Get(KeyPAT),
		BaseID:       s.Get(KeyBaseID),
		GeminiAPIKey: s.Get(KeyGeminiAPIKey),
		GeminiPrompt: s.Get(KeyGeminiPrompt),
	}
	if strings.TrimSpace(c.GeminiPrompt) == "" {
		c.GeminiPrompt = analysis.DefaultPrompt
	}
	return c
}

// ResetPrompt puts the default prompt back.
func ResetPrompt(s Store) {
	s.Set(KeyGeminiPrompt, analysis.DefaultPrompt)
}

// Mask shows only the last four characters of a secret.
func Mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key]
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

func (m *MemoryStore) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range Keys {
		delete(m.values, k)
	}
}

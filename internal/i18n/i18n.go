// internal/i18n/i18n.go
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Catalogue holds one flat key -> message map per locale. Locale files are
// named after the locale, e.g. en.json and zh_TW.json.
type Catalogue struct {
	mu          sync.RWMutex
	messages    map[string]map[string]string
	defaultLang string
}

var (
	instance *Catalogue
	once     sync.Once
)

// Initialize loads every locale file in localesPath into the package
// catalogue. Later calls are no-ops.
func Initialize(localesPath, defaultLang string) error {
	var err error
	once.Do(func() {
		if defaultLang == "" {
			defaultLang = "en"
		}
		c := NewCatalogue(defaultLang)
		if err = c.Load(localesPath); err != nil {
			return
		}
		if !c.Has(defaultLang) {
			err = fmt.Errorf("default locale %q not found in %s", defaultLang, localesPath)
			return
		}
		instance = c
	})
	return err
}

func NewCatalogue(defaultLang string) *Catalogue {
	return &Catalogue{
		messages:    make(map[string]map[string]string),
		defaultLang: defaultLang,
	}
}

func (c *Catalogue) Load(localesPath string) error {
	files, err := filepath.Glob(filepath.Join(localesPath, "*.json"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no locale files in %s", localesPath)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", path, err)
		}

		var messages map[string]string
		if err := json.Unmarshal(data, &messages); err != nil {
			return fmt.Errorf("failed to parse locale file %s: %w", path, err)
		}

		lang := strings.TrimSuffix(filepath.Base(path), ".json")
		c.mu.Lock()
		c.messages[lang] = messages
		c.mu.Unlock()
	}
	return nil
}

func (c *Catalogue) Has(lang string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.messages[lang]
	return ok
}

func (c *Catalogue) lookup(lang, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.messages[lang][key]
	return text, ok
}

// T translates key into lang, falling back to the default locale and then to
// the key itself.
func (c *Catalogue) T(lang, key string, args ...interface{}) string {
	text, ok := c.lookup(lang, key)
	if !ok {
		if text, ok = c.lookup(c.defaultLang, key); !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

func (c *Catalogue) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func T(lang, key string, args ...interface{}) string {
	if instance == nil {
		return key
	}
	return instance.T(lang, key, args...)
}

// Languages lists the loaded locales.
func Languages() []string {
	if instance == nil {
		return []string{"en"}
	}
	return instance.Languages()
}

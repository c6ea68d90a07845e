package messages

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bargainbliss/linkbot/internal/core/store"
)

// Catalog resolves reply templates by key. Defaults are compiled in;
// the optional store supplies per-key overrides that survive restarts.
type Catalog struct {
	Store *store.Store

	mu        sync.RWMutex
	overrides map[string]string
}

// New returns a catalog backed by the given store. A nil store yields
// a defaults-only catalog.
func New(st *store.Store) *Catalog {
	return &Catalog{
		Store:     st,
		overrides: map[string]string{},
	}
}

// Reload replaces the in-memory overrides with the store's current rows.
func (c *Catalog) Reload(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.Store == nil {
		return nil
	}

	records, err := c.Store.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("reload templates: %w", err)
	}

	overrides := make(map[string]string, len(records))
	for _, record := range records {
		overrides[record.Key] = record.Template
	}

	c.mu.Lock()
	c.overrides = overrides
	c.mu.Unlock()

	return nil
}

// Set persists an override and applies it immediately.
func (c *Catalog) Set(ctx context.Context, key, template string) error {
	if c == nil {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("template key is required")
	}

	if c.Store != nil {
		if err := c.Store.UpsertTemplate(ctx, key, template, time.Now().UTC()); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if c.overrides == nil {
		c.overrides = map[string]string{}
	}
	c.overrides[key] = template
	c.mu.Unlock()

	return nil
}

// Lookup returns the effective template for a key and whether it exists.
func (c *Catalog) Lookup(key string) (string, bool) {
	if c != nil {
		c.mu.RLock()
		override, ok := c.overrides[key]
		c.mu.RUnlock()
		if ok {
			return override, true
		}
	}

	template, ok := defaultTemplates[key]
	return template, ok
}

// Render resolves a template and substitutes {name} placeholders from vars.
// Unknown keys render a visible marker rather than failing, and
// placeholders without a matching var are left intact.
func (c *Catalog) Render(key string, vars map[string]string) string {
	template, ok := c.Lookup(key)
	if !ok {
		return fmt.Sprintf("Message not found: %s", key)
	}

	if len(vars) == 0 {
		return template
	}

	replacements := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		replacements = append(replacements, "{"+name+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(template)
}

// Entry describes the effective template for a key.
type Entry struct {
	Key        string `json:"key"`
	Template   string `json:"template"`
	Overridden bool   `json:"overridden"`
}

// Entries returns every known key with its effective template. Stored
// overrides for keys outside the default set are included as well.
func (c *Catalog) Entries() []Entry {
	var overrides map[string]string
	if c != nil {
		c.mu.RLock()
		overrides = make(map[string]string, len(c.overrides))
		for key, value := range c.overrides {
			overrides[key] = value
		}
		c.mu.RUnlock()
	}

	entries := make([]Entry, 0, len(defaultTemplates)+len(overrides))
	for _, key := range DefaultKeys() {
		entry := Entry{Key: key, Template: defaultTemplates[key]}
		if override, ok := overrides[key]; ok {
			entry.Template = override
			entry.Overridden = true
			delete(overrides, key)
		}
		entries = append(entries, entry)
	}

	extra := make([]string, 0, len(overrides))
	for key := range overrides {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	for _, key := range extra {
		entries = append(entries, Entry{Key: key, Template: overrides[key], Overridden: true})
	}

	return entries
}

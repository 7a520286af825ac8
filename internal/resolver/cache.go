package resolver

import (
	"maps"
	"slices"
)

// Cache remembers, per installed (pack, group), the conditions observed at
// install time and whether each held.
type Cache struct {
	Entries map[string]map[string]map[string]bool `yaml:"entries,omitempty"`
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{Entries: make(map[string]map[string]map[string]bool)}
}

// Put replaces the observations of (packName, group).
func (c *Cache) Put(packName, group string, observed map[string]bool) {
	if c.Entries == nil {
		c.Entries = make(map[string]map[string]map[string]bool)
	}
	if c.Entries[packName] == nil {
		c.Entries[packName] = make(map[string]map[string]bool)
	}
	c.Entries[packName][group] = maps.Clone(observed)
}

// Get returns the observations of (packName, group).
func (c *Cache) Get(packName, group string) (map[string]bool, bool) {
	obs, ok := c.Entries[packName][group]
	return obs, ok
}

// Delete drops one entry.
func (c *Cache) Delete(packName, group string) {
	delete(c.Entries[packName], group)
	if len(c.Entries[packName]) == 0 {
		delete(c.Entries, packName)
	}
}

// DeletePack drops every entry of a pack.
func (c *Cache) DeletePack(packName string) {
	delete(c.Entries, packName)
}

// Packs lists cached pack names, sorted.
func (c *Cache) Packs() []string {
	return slices.Sorted(maps.Keys(c.Entries))
}

// Groups lists cached group names of a pack, sorted.
func (c *Cache) Groups(packName string) []string {
	return slices.Sorted(maps.Keys(c.Entries[packName]))
}

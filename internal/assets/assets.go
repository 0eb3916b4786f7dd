// Package assets loads models out of a stack of GRF archives.
package assets

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/rigview/internal/archive"
	"github.com/Faultbox/rigview/internal/model"
)

// ModelExts are the entry extensions model.Decode understands.
var ModelExts = map[string]bool{
	".rsm":  true,
	".gltf": true,
	".glb":  true,
	".yaml": true,
	".yml":  true,
}

type source struct {
	path    string
	archive *archive.Archive
}

// Manager reads entries from GRF archives.
// Archives are searched in reverse order (last added = highest priority).
type Manager struct {
	log      *zap.Logger
	archives []source
	cache    *Cache
	mu       sync.RWMutex
}

// Entry is a file found in one of the archives.
type Entry struct {
	Archive string
	Name    string
}

func (e Entry) String() string {
	return e.Archive + ":" + e.Name
}

// NewManager creates a manager with no archives.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:   log,
		cache: NewCache(),
	}
}

// AddArchive opens the GRF archive at path and puts it on top of the stack.
func (m *Manager) AddArchive(path string) error {
	a, err := archive.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.archives = append(m.archives, source{path: path, archive: a})
	m.mu.Unlock()

	m.log.Debug("archive added", zap.String("path", path), zap.Int("files", len(a.List())))
	return nil
}

// Find returns the entry that would be read for name.
func (m *Manager) Find(name string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		if m.archives[i].archive.Contains(name) {
			return Entry{Archive: m.archives[i].path, Name: name}, true
		}
	}
	return Entry{}, false
}

// ReadFile returns the contents of name from the highest priority archive
// holding it. Missing names give an error matching fs.ErrNotExist.
func (m *Manager) ReadFile(name string) ([]byte, Entry, error) {
	e, ok := m.Find(name)
	if !ok {
		return nil, Entry{}, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}

	key := e.String()
	if data, ok := m.cache.Get(key); ok {
		return data, e, nil
	}

	m.mu.RLock()
	var a *archive.Archive
	for _, s := range m.archives {
		if s.path == e.Archive {
			a = s.archive
		}
	}
	m.mu.RUnlock()

	data, err := a.ReadFile(name)
	if err != nil {
		return nil, e, fmt.Errorf("reading %s: %w", e, err)
	}
	m.cache.Set(key, data)
	return data, e, nil
}

// LoadModel decodes the model stored under name.
func (m *Manager) LoadModel(name string) (*model.Model, error) {
	data, e, err := m.ReadFile(name)
	if err != nil {
		return nil, err
	}
	mdl, err := model.Decode(name, data, m.log)
	if err != nil {
		return nil, err
	}
	mdl.Path = e.String()
	return mdl, nil
}

// Models lists the model entries of every archive in the order they were
// added. Entries are matched against pattern with Match.
func (m *Manager) Models(pattern string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, s := range m.archives {
		for _, name := range s.archive.List() {
			if ModelExts[filepath.Ext(name)] && Match(name, pattern) {
				out = append(out, Entry{Archive: s.path, Name: name})
			}
		}
	}
	return out
}

// Match reports whether an archive path matches pattern, either as a glob
// against its base name or as a substring of the whole path. Matching
// ignores case; an empty pattern matches everything.
func Match(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	name = strings.ToLower(name)
	pattern = strings.ToLower(pattern)
	if matched, _ := filepath.Match(pattern, filepath.Base(name)); matched {
		return true
	}
	return strings.Contains(name, pattern)
}

// Stats returns the cache hit and miss counts.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Close closes all archives.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.archives {
		s.archive.Close()
	}
	m.archives = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for entry contents.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Stats returns the hit and miss counts since the last Clear.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Clear empties the cache and resets its counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

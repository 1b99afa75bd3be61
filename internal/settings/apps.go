package settings

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"
)

// AppPref is the per-application forwarding preference. Applications are
// registered disabled on first sight; the user opts them in explicitly.
type AppPref struct {
	Package string `json:"package"`
	Name    string `json:"name,omitempty"`
	Enable  bool   `json:"enabled"`
}

// Enabled reports whether notifications from this application are
// forwarded.
func (p *AppPref) Enabled() bool {
	return p != nil && p.Enable
}

// Label returns the display name used when a notification carries no
// sender of its own. Falls back to the last package path segment.
func (p *AppPref) Label() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	if i := strings.LastIndex(p.Package, "."); i >= 0 {
		return p.Package[i+1:]
	}
	return p.Package
}

// AppStore tracks per-application preferences. The full set is loaded at
// startup and kept in memory; mutations are written through to disk.
type AppStore struct {
	d *diskv.Diskv

	mu   sync.RWMutex
	apps map[string]*AppPref
}

// NewAppStore opens the per-application store under basePath and loads
// every known application.
func NewAppStore(basePath string) (*AppStore, error) {
	if basePath == "" {
		var err error
		basePath, err = DefaultBasePath()
		if err != nil {
			return nil, err
		}
	}

	s := &AppStore{
		d: diskv.New(diskv.Options{
			BasePath:     filepath.Join(basePath, "apps"),
			CacheSizeMax: 256 * 1024,
		}),
		apps: make(map[string]*AppPref),
	}

	for key := range s.d.Keys(nil) {
		data, err := s.d.Read(key)
		if err != nil {
			continue
		}
		pref := &AppPref{}
		if err := json.Unmarshal(data, pref); err != nil {
			continue
		}
		if pref.Package == "" {
			pref.Package = key
		}
		s.apps[pref.Package] = pref
	}

	return s, nil
}

// Get returns the preference for pkg, or nil when the application has
// never been seen.
func (s *AppStore) Get(pkg string) *AppPref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apps[pkg]
}

// GetOrInit returns the preference for pkg, registering it disabled on
// first sight so it shows up for the user to opt in. name fills a missing
// display name.
func (s *AppStore) GetOrInit(pkg, name string) *AppPref {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pref, ok := s.apps[pkg]; ok {
		if pref.Name == "" && name != "" {
			pref.Name = name
			s.persistLocked(pref)
		}
		return pref
	}

	pref := &AppPref{Package: pkg, Name: name}
	s.apps[pkg] = pref
	s.persistLocked(pref)
	return pref
}

// SetEnabled toggles forwarding for pkg, registering it first if needed.
func (s *AppStore) SetEnabled(pkg string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pref, ok := s.apps[pkg]
	if !ok {
		pref = &AppPref{Package: pkg}
		s.apps[pkg] = pref
	}
	pref.Enable = enabled
	return s.persistLocked(pref)
}

// SetName records a display name for pkg.
func (s *AppStore) SetName(pkg, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pref, ok := s.apps[pkg]
	if !ok {
		pref = &AppPref{Package: pkg}
		s.apps[pkg] = pref
	}
	pref.Name = name
	return s.persistLocked(pref)
}

// All returns every known application preference, sorted by package.
func (s *AppStore) All() []*AppPref {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*AppPref, 0, len(s.apps))
	for _, pref := range s.apps {
		all = append(all, pref)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Package < all[j].Package
	})
	return all
}

func (s *AppStore) persistLocked(pref *AppPref) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("encode app preference %q: %w", pref.Package, err)
	}
	if err := s.d.Write(pref.Package, data); err != nil {
		return fmt.Errorf("persist app preference %q: %w", pref.Package, err)
	}
	return nil
}

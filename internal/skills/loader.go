package skills

import (
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// loaded is the immutable snapshot swapped atomically on reload.
type loaded struct {
	byName map[string]*Skill
	cache  map[string]cacheEntry
}

type cacheEntry struct {
	skill   *Skill
	modTime time.Time
}

// Loader discovers skills from the bundled catalog and from disk.
// Precedence: bundled < managed < workspace; a workspace skill named like a
// bundled one replaces it wholesale.
type Loader struct {
	managedDir   string
	workspaceDir string

	data atomic.Pointer[loaded]
}

// NewLoader creates a loader over the managed and workspace directories.
// Either may be "" to skip that source.
func NewLoader(managedDir, workspaceDir string) *Loader {
	l := &Loader{managedDir: managedDir, workspaceDir: workspaceDir}
	l.data.Store(&loaded{
		byName: map[string]*Skill{},
		cache:  map[string]cacheEntry{},
	})
	return l
}

// Reload rescans every source and swaps in the new snapshot. Unchanged
// files (by mtime) reuse their previous parse.
func (l *Loader) Reload() error {
	old := l.data.Load()

	byName := make(map[string]*Skill)
	cache := make(map[string]cacheEntry, len(old.cache))

	for _, skill := range loadBundled() {
		byName[skill.Name] = skill
	}
	l.loadDir(l.managedDir, SourceManaged, byName, old.cache, cache)
	l.loadDir(l.workspaceDir, SourceWorkspace, byName, old.cache, cache)

	l.data.Store(&loaded{byName: byName, cache: cache})
	L_debug("skills: reloaded", "count", len(byName))
	return nil
}

func (l *Loader) loadDir(dir string, source Source, byName map[string]*Skill, oldCache, newCache map[string]cacheEntry) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			L_warn("skills: cannot read directory", "path", dir, "error", err)
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), "SKILL.md")
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		var skill *Skill
		if cached, ok := oldCache[path]; ok && cached.modTime.Equal(info.ModTime()) {
			skill = cached.skill
		} else {
			skill, err = ParseFile(path, source)
			if err != nil {
				L_warn("skills: skipping unparseable skill", "path", path, "error", err)
				continue
			}
		}
		skill.Source = source

		if prev, ok := byName[skill.Name]; ok {
			L_debug("skills: overriding", "name", skill.Name, "was", prev.Source, "now", source)
		}
		byName[skill.Name] = skill
		newCache[path] = cacheEntry{skill: skill, modTime: info.ModTime()}
	}
}

// Get returns the skill with the given name, nil when absent.
func (l *Loader) Get(name string) *Skill {
	return l.data.Load().byName[name]
}

// All returns every loaded skill sorted by name.
func (l *Loader) All() []*Skill {
	data := l.data.Load()
	out := make([]*Skill, 0, len(data.byName))
	for _, s := range data.byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dirs returns the on-disk directories this loader reads, for watching.
func (l *Loader) Dirs() []string {
	var dirs []string
	if l.managedDir != "" {
		dirs = append(dirs, l.managedDir)
	}
	if l.workspaceDir != "" {
		dirs = append(dirs, l.workspaceDir)
	}
	return dirs
}

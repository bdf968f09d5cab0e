package skills

import (
	"embed"
	"fmt"
	"path"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

//go:embed catalog/*
var catalogFS embed.FS

// loadBundled parses every skill in the embedded catalog.
func loadBundled() []*Skill {
	entries, err := catalogFS.ReadDir("catalog")
	if err != nil {
		L_warn("skills: embedded catalog unreadable", "error", err)
		return nil
	}

	var out []*Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		content, err := catalogFS.ReadFile(path.Join("catalog", entry.Name(), "SKILL.md"))
		if err != nil {
			continue
		}
		skill, err := Parse(content, entry.Name(), SourceBundled)
		if err != nil {
			L_warn("skills: bad bundled skill", "name", entry.Name(), "error", err)
			continue
		}
		out = append(out, skill)
	}
	return out
}

// BundledContent returns the raw SKILL.md of a bundled skill, for
// "pagesmith skills show" and for seeding a managed copy the user can edit.
func BundledContent(name string) ([]byte, error) {
	content, err := catalogFS.ReadFile(path.Join("catalog", name, "SKILL.md"))
	if err != nil {
		return nil, fmt.Errorf("no bundled skill named %s", name)
	}
	return content, nil
}

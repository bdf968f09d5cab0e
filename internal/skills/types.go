// Package skills loads design-style packs that extend the system prompt.
//
// A skill is a directory containing SKILL.md: YAML frontmatter (name,
// description, optional model hints) followed by a markdown body that gets
// appended to the design prompt. Skills come from three places with
// increasing precedence: bundled in the binary, installed under the user's
// data directory, and checked into the current workspace.
package skills

import "time"

// Source identifies where a skill was loaded from.
type Source string

const (
	SourceBundled   Source = "bundled"   // ships with pagesmith
	SourceManaged   Source = "managed"   // ~/.pagesmith/skills
	SourceWorkspace Source = "workspace" // ./skills in the working directory
)

// Skill is one loaded style pack.
type Skill struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Models      []string  `json:"models,omitempty"` // suggested model ids
	Source      Source    `json:"source"`
	Location    string    `json:"location,omitempty"` // path to SKILL.md, "" for bundled
	Body        string    `json:"-"`                  // markdown appended to the system prompt
	ContentSHA  string    `json:"contentSha"`
	LoadedAt    time.Time `json:"-"`
}

// frontmatter is the YAML header of a SKILL.md file.
type frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Models      []string `yaml:"models"`
}

package skills

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Parse builds a Skill from raw SKILL.md content. fallbackName is used when
// the frontmatter carries no name, normally the skill directory name.
func Parse(content []byte, fallbackName string, source Source) (*Skill, error) {
	hash := sha256.Sum256(content)

	header, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	var fm frontmatter
	if yamlErr := yaml.Unmarshal(header, &fm); yamlErr != nil {
		// Unquoted colons in descriptions break strict YAML. Fall back to a
		// line scanner for the flat keys.
		fm = scanFrontmatter(header)
		if fm.Name == "" && fm.Description == "" {
			return nil, fmt.Errorf("unparseable frontmatter: %w", yamlErr)
		}
	}

	name := strings.TrimSpace(fm.Name)
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return nil, fmt.Errorf("skill has no name")
	}

	return &Skill{
		Name:        name,
		Description: strings.TrimSpace(fm.Description),
		Models:      fm.Models,
		Source:      source,
		Body:        strings.TrimSpace(string(body)),
		ContentSHA:  hex.EncodeToString(hash[:]),
		LoadedAt:    time.Now(),
	}, nil
}

// ParseFile loads and parses a SKILL.md from disk.
func ParseFile(path string, source Source) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skill file: %w", err)
	}

	skill, err := Parse(content, filepath.Base(filepath.Dir(path)), source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	skill.Location = path
	return skill, nil
}

// splitFrontmatter separates the --- delimited YAML header from the body.
func splitFrontmatter(content []byte) (header, body []byte, err error) {
	if !bytes.HasPrefix(content, []byte("---")) {
		return nil, nil, fmt.Errorf("missing frontmatter delimiter")
	}
	rest := content[3:]
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return nil, nil, fmt.Errorf("unterminated frontmatter")
	}
	header = rest[:idx]
	body = rest[idx+4:]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}
	return header, body, nil
}

// scanFrontmatter is the lenient fallback for headers strict YAML rejects.
// It handles flat "key: value" lines and a "models:" list of "- item" lines.
func scanFrontmatter(header []byte) frontmatter {
	var fm frontmatter
	inModels := false

	for _, raw := range strings.Split(string(header), "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if inModels && (indented || strings.HasPrefix(trimmed, "-")) {
			if item, ok := strings.CutPrefix(trimmed, "-"); ok {
				if item = strings.TrimSpace(item); item != "" {
					fm.Models = append(fm.Models, item)
				}
			}
			continue
		}
		inModels = false

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "name":
			fm.Name = value
		case "description":
			fm.Description = value
		case "models":
			inModels = value == ""
			if value != "" {
				for _, item := range strings.Split(strings.Trim(value, "[]"), ",") {
					if item = strings.TrimSpace(item); item != "" {
						fm.Models = append(fm.Models, item)
					}
				}
			}
		}
	}
	return fm
}

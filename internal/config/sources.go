package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// sourcesFile is the YAML shape of the source registry:
//
//	sources:
//	  - id: example-feed
//	    name: Example Feed
//	    url: https://example.com/rss
//	    kind: rss
//	    priority: 5
//	    active: true
type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Kind     string `yaml:"kind"`
	Priority int    `yaml:"priority"`
	Active   *bool  `yaml:"active"` // omitted means active
}

// LoadSources reads the source registry from a YAML file.
func LoadSources(path string) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	sources := make([]model.Source, 0, len(file.Sources))
	seen := make(map[string]bool)
	for i, entry := range file.Sources {
		if entry.ID == "" {
			return nil, fmt.Errorf("source %d: missing id", i)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("source %d: duplicate id %q", i, entry.ID)
		}
		seen[entry.ID] = true
		if entry.URL == "" {
			return nil, fmt.Errorf("source %q: missing url", entry.ID)
		}
		switch entry.Kind {
		case model.SourceKindRSS, model.SourceKindAPI, model.SourceKindSocial:
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", entry.ID, entry.Kind)
		}

		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		sources = append(sources, model.Source{
			ID:        entry.ID,
			Name:      name,
			URL:       entry.URL,
			Kind:      entry.Kind,
			Active:    active,
			Priority:  entry.Priority,
			CreatedAt: now,
		})
	}
	return sources, nil
}

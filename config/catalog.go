package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one catalog entry
type Source struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	URL  string `yaml:"url"`
}

// Catalog is the list of configured news sources
type Catalog struct {
	Sources []Source `yaml:"sources"`
}

// LoadCatalog reads the source catalog. The file may hold either a
// top-level "sources" list or a bare list of sources.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source catalog %s: %w", path, err)
	}
	return ParseCatalog(data, path)
}

// ParseCatalog decodes raw catalog YAML
func ParseCatalog(data []byte, name string) (*Catalog, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing source catalog %s: %w", name, err)
	}

	var cat Catalog
	if len(node.Content) > 0 {
		root := node.Content[0]
		var err error
		if root.Kind == yaml.SequenceNode {
			err = root.Decode(&cat.Sources)
		} else {
			err = root.Decode(&cat)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing source catalog %s: %w", name, err)
		}
	}

	if err := validateCatalog(&cat); err != nil {
		return nil, fmt.Errorf("source catalog %s: %w", name, err)
	}
	return &cat, nil
}

// Unknown types are allowed here; the fetcher skips them.
func validateCatalog(cat *Catalog) error {
	for i, s := range cat.Sources {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: source %d: name is required", ErrInvalid, i)
		}
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("%w: source %q: url is required", ErrInvalid, s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("%w: source %q: invalid url: %v", ErrInvalid, s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: source %q: url scheme must be http or https, got %q", ErrInvalid, s.Name, u.Scheme)
		}
	}
	return nil
}

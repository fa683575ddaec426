// Package snippet loads snippet manifests: YAML files listing the code
// samples a page or server offers for running.
//
//	snippets:
//	  - id: hello
//	    title: Hello
//	    language: python
//	    code: |
//	      print("hello")
package snippet

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/caffeineduck/coderunner/language"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("snippet not found")

// Snippet is one runnable code sample.
type Snippet struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title,omitempty" json:"title,omitempty"`
	Language string `yaml:"language" json:"language"`
	Code     string `yaml:"code" json:"code"`
	Stdin    string `yaml:"stdin,omitempty" json:"stdin,omitempty"`
}

// File is a parsed manifest.
type File struct {
	Snippets []Snippet `yaml:"snippets"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snippets: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a manifest. Language names are resolved to
// descriptor keys, so "py" in a manifest becomes "python".
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse snippets: %w", err)
	}

	seen := make(map[string]bool, len(f.Snippets))
	for i := range f.Snippets {
		s := &f.Snippets[i]
		if s.ID == "" {
			return nil, fmt.Errorf("snippet %d: id is required", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("snippet %q: duplicate id", s.ID)
		}
		seen[s.ID] = true

		d, err := language.Resolve(s.Language)
		if err != nil {
			return nil, fmt.Errorf("snippet %q: %w", s.ID, err)
		}
		s.Language = d.Key

		if s.Code == "" {
			return nil, fmt.Errorf("snippet %q: code is required", s.ID)
		}
	}
	return &f, nil
}

// Get returns the snippet with the given id.
func (f *File) Get(id string) (Snippet, error) {
	for _, s := range f.Snippets {
		if s.ID == id {
			return s, nil
		}
	}
	return Snippet{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}
